package rumpu

import "io"

type (
	// AudioBuffer is a buffer of stereo audio samples of the form
	// [][2]float32{{l0, r0}, {l1, r1}, ...}
	AudioBuffer [][2]float32

	// AudioContext represents the low-level audio drivers. There should be
	// at most one AudioContext in an application. The interface is
	// implemented at least by oto.OtoContext and by the test fakes in the
	// engine package.
	AudioContext interface {
		// Play starts the playback, pulling audio from the callback until
		// the returned CloserWaiter is closed. The callback is called from
		// the audio goroutine and should fill the whole buffer on every
		// call.
		Play(callback func(buf AudioBuffer) error) CloserWaiter

		// Suspended reports whether the backend is currently suspended or
		// otherwise not producing audio.
		Suspended() bool

		// Resume asks a suspended backend to start producing audio again.
		// The transport requests this before its first tick; a failure means
		// the transport stays stopped.
		Resume() error

		Close() error
	}

	// CloserWaiter can be closed, and Wait blocks until the playback
	// goroutine has actually wound down (or errored).
	CloserWaiter interface {
		Close() error
		Wait() error
	}
)

// Fill sets every sample in the buffer to the given frame. Mostly used as
// buf.Fill([2]float32{}) to zero a buffer before summing into it.
func (buf AudioBuffer) Fill(frame [2]float32) {
	for i := range buf {
		buf[i] = frame
	}
}

// Source returns a callback that streams the contents of buf and returns
// io.EOF once everything has been consumed, so a fully rendered buffer can
// be played back with
//
//	waiter := audioContext.Play(buffer.Source())
//	waiter.Wait()
func (buf AudioBuffer) Source() func(out AudioBuffer) error {
	pos := 0
	return func(out AudioBuffer) error {
		if pos >= len(buf) {
			return io.EOF
		}
		n := copy(out, buf[pos:])
		pos += n
		out[n:].Fill([2]float32{})
		return nil
	}
}
