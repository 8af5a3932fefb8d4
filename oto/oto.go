// Package oto implements the rumpu.AudioContext interface on top of the
// ebitengine/oto/v3 library, so the player can output sound on windows,
// linux and macOS with the same code.
package oto

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/rumpu"
)

type (
	// OtoContext wraps an oto/v3 context so that it implements
	// rumpu.AudioContext.
	OtoContext struct {
		context *oto.Context
		ready   chan struct{}
	}

	// OtoPlayback is the rumpu.CloserWaiter returned by Play. Closing it
	// stops pulling audio from the callback; Wait blocks until the
	// callback has returned io.EOF and the buffered audio has drained.
	OtoPlayback struct {
		player    *oto.Player
		source    *callbackSource
		closeOnce sync.Once
		closeErr  error
	}

	// callbackSource adapts the float32 callback to the io.Reader the oto
	// player pulls its bytes from. It is only ever read by the audio
	// goroutine.
	callbackSource struct {
		callback func(rumpu.AudioBuffer) error
		buffer   rumpu.AudioBuffer
		bytes    []byte
		finished chan error
		done     bool
	}
)

// NewContext creates and initializes a new audio context, playing stereo
// 16-bit sound at the rumpu.SampleRate sample rate.
func NewContext() (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rumpu.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	return &OtoContext{context: context, ready: ready}, nil
}

// Play starts pulling audio from the callback. The callback should fill
// the whole buffer on every call and return io.EOF when the stream ends.
func (c *OtoContext) Play(callback func(buf rumpu.AudioBuffer) error) rumpu.CloserWaiter {
	source := &callbackSource{callback: callback, finished: make(chan error, 1)}
	player := c.context.NewPlayer(source)
	player.Play()
	return &OtoPlayback{player: player, source: source}
}

// Suspended reports whether the OS has not yet handed over the audio
// device to us.
func (c *OtoContext) Suspended() bool {
	select {
	case <-c.ready:
		return false
	default:
		return true
	}
}

func (c *OtoContext) Resume() error {
	if err := c.context.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	return nil
}

// Close is a no-op, as an oto/v3 context cannot be closed once created.
func (c *OtoContext) Close() error { return nil }

// Close stops the playback, without waiting for the buffered audio to
// finish playing. It is safe to call multiple times.
func (p *OtoPlayback) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.player.Close()
		select {
		case p.source.finished <- nil:
		default: // the callback already finished the stream
		}
	})
	if p.closeErr != nil {
		return fmt.Errorf("cannot close oto player: %w", p.closeErr)
	}
	return nil
}

// Wait blocks until the callback has ended the stream, lets the buffered
// audio play to the end and then closes the player. It returns the error
// the callback returned, if it was something else than io.EOF.
func (p *OtoPlayback) Wait() error {
	err := <-p.source.finished
	for p.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if closeErr := p.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (s *callbackSource) Read(out []byte) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	frames := len(out) / 4 // stereo, 2 bytes per channel
	if frames == 0 {
		return 0, nil
	}
	if cap(s.buffer) < frames {
		s.buffer = make(rumpu.AudioBuffer, frames)
	}
	s.buffer = s.buffer[:frames]
	s.buffer.Fill([2]float32{})
	if err := s.callback(s.buffer); err != nil {
		s.done = true
		if err == io.EOF {
			err = nil
		}
		s.finished <- err
		return 0, io.EOF
	}
	// we reuse the old capacity of s.bytes by setting its length to zero,
	// and save the returned slice so we can reuse it next time
	s.bytes = FloatBufferTo16BitLE(s.buffer, s.bytes[:0])
	return copy(out, s.bytes), nil
}
