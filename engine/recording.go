package engine

import (
	"errors"

	"github.com/vsariola/rumpu"
)

// NumClipSlots is the number of loop capture slots.
const NumClipSlots = 4

var ErrRecordingUnsupported = errors.New("microphone capture is not supported by the audio backend")

type (
	// Recorder captures fixed-length loops from the master output into
	// clips and plays them back, looping, into the master bus. It lives
	// inside the player; the UI talks to it through the clip messages.
	//
	// The capture tap sits after the limiter, so a clip records exactly
	// what was heard, including other clips that were playing. Playback
	// is summed in before the limiter, which then protects against the
	// layered loops clipping.
	Recorder struct {
		slots [NumClipSlots]Clip
	}

	// Clip is one captured loop.
	Clip struct {
		audio     rumpu.AudioBuffer
		remaining int // frames still to capture; 0 when not recording
		pos       int
		playing   bool
	}

	ClipState int
)

const (
	ClipEmpty ClipState = iota
	ClipRecording
	ClipStopped
	ClipPlaying
)

func (s ClipState) String() string {
	switch s {
	case ClipRecording:
		return "recording"
	case ClipStopped:
		return "stopped"
	case ClipPlaying:
		return "playing"
	}
	return "empty"
}

// Record starts capturing frames of the master output into the slot,
// replacing whatever the slot held.
func (rec *Recorder) Record(slot, frames int) {
	if s := rec.slot(slot); s != nil && frames > 0 {
		s.audio = s.audio[:0]
		s.remaining = frames
		s.pos = 0
		s.playing = false
	}
}

// Play starts looping the clip in the slot from its beginning. No-op if
// the slot is empty or still recording.
func (rec *Recorder) Play(slot int) {
	if s := rec.slot(slot); s != nil && s.remaining == 0 && len(s.audio) > 0 {
		s.pos = 0
		s.playing = true
	}
}

func (rec *Recorder) Stop(slot int) {
	if s := rec.slot(slot); s != nil {
		s.playing = false
	}
}

// Clear discards the contents of the slot, stopping its capture and
// playback.
func (rec *Recorder) Clear(slot int) {
	if s := rec.slot(slot); s != nil {
		*s = Clip{audio: s.audio[:0]}
	}
}

// Mix adds the playing clips to the master buffers, looping each clip
// back to its start when it runs out.
func (rec *Recorder) Mix(l, r []float32) {
	for i := range rec.slots {
		s := &rec.slots[i]
		if !s.playing || len(s.audio) == 0 {
			continue
		}
		for j := range l {
			frame := s.audio[s.pos]
			l[j] += frame[0]
			r[j] += frame[1]
			if s.pos++; s.pos >= len(s.audio) {
				s.pos = 0
			}
		}
	}
}

// Tap captures the final master output into the recording slots. Returns
// a bitmask of the slots whose capture just completed.
func (rec *Recorder) Tap(buffer rumpu.AudioBuffer) (finished int) {
	for i := range rec.slots {
		s := &rec.slots[i]
		if s.remaining <= 0 {
			continue
		}
		n := min(s.remaining, len(buffer))
		s.audio = append(s.audio, buffer[:n]...)
		if s.remaining -= n; s.remaining == 0 {
			finished |= 1 << i
		}
	}
	return finished
}

// State returns the state of the slot for the UI.
func (rec *Recorder) State(slot int) ClipState {
	s := rec.slot(slot)
	switch {
	case s == nil || (len(s.audio) == 0 && s.remaining == 0):
		return ClipEmpty
	case s.remaining > 0:
		return ClipRecording
	case s.playing:
		return ClipPlaying
	}
	return ClipStopped
}

// Seconds returns the captured length of the slot in seconds.
func (rec *Recorder) Seconds(slot int) float64 {
	if s := rec.slot(slot); s != nil {
		return float64(len(s.audio)) / rumpu.SampleRate
	}
	return 0
}

// CopyAudio appends a copy of the captured audio in the slot into dst,
// for exporting. Returns false if the slot is empty or still recording.
func (rec *Recorder) CopyAudio(slot int, dst *rumpu.AudioBuffer) bool {
	s := rec.slot(slot)
	if s == nil || s.remaining > 0 || len(s.audio) == 0 {
		return false
	}
	*dst = append(*dst, s.audio...)
	return true
}

// EnableMicrophone would mix microphone capture into the recording tap.
// No backend we run on exposes capture devices, so enabling always fails
// with ErrRecordingUnsupported; the playback and capture paths are
// unaffected.
func (rec *Recorder) EnableMicrophone(enabled bool) error {
	if enabled {
		return ErrRecordingUnsupported
	}
	return nil
}

func (rec *Recorder) slot(slot int) *Clip {
	if slot < 0 || slot >= NumClipSlots {
		return nil
	}
	return &rec.slots[slot]
}
