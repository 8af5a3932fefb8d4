package engine

import (
	"time"

	"github.com/vsariola/rumpu"
)

// Messages to the player. These are sent through Broker.ToPlayer and
// drained at the top of every Process call, so a mutation can never land
// in the middle of a render block.
type (
	// StartMsg starts the transport. Starting an already running
	// transport is a no-op.
	StartMsg struct{}

	// StopMsg stops the transport, resets the step index to 0 and clears
	// the highlights. Voices that are already sounding play to completion.
	StopMsg struct{}

	// BPMMsg sets the tempo. The new tempo takes effect when the next
	// step is scheduled; the step currently counting down keeps its
	// length.
	BPMMsg struct{ BPM int }

	// RoutingMsg switches between the global effect chain and the
	// per-track chains, rebuilding all routes.
	RoutingMsg struct{ rumpu.RoutingScope }

	// EffectMsg sets the enablement state of one effect and rebuilds the
	// affected routes. Setting an effect to its current state does not
	// touch the routes.
	EffectMsg struct {
		Effect  rumpu.EffectID
		Enabled bool
	}

	// ToggleStepMsg toggles one step in the grid.
	ToggleStepMsg struct {
		Track, Step int
	}

	// TrackVolumeMsg sets the volume of one track. It is read the next
	// time a step on that track fires; sounding voices keep the volume
	// they were triggered with.
	TrackVolumeMsg struct {
		Track  int
		Volume float32
	}

	// TriggerMsg triggers one track immediately, outside the step grid.
	// Used by the pad keys and MIDI input.
	TriggerMsg struct{ Track int }

	// SessionMsg replaces the whole session: grid, tempo, routing scope
	// and effect toggles. Sent when a file or preset is loaded.
	SessionMsg struct{ rumpu.Session }

	// RecordClipMsg starts capturing the master output into the given
	// slot. The capture length is (60/tempo)*beatsPerBar*bars frames,
	// counted from the moment the message is processed.
	RecordClipMsg struct{ Slot int }

	// PlayClipMsg starts looping the clip in the given slot into the
	// master bus. No-op if the slot is empty.
	PlayClipMsg struct{ Slot int }

	// StopClipMsg stops the playback of the given slot.
	StopClipMsg struct{ Slot int }

	// ClearClipMsg discards the clip in the given slot, stopping its
	// playback and recording.
	ClearClipMsg struct{ Slot int }

	// ExportClipMsg asks for a copy of the captured audio in the given
	// slot, answered with a ClipAudioMsg. The file writing happens on the
	// UI side, never in the audio goroutine.
	ExportClipMsg struct{ Slot int }

	// MicrophoneMsg asks to mix microphone capture into the recording
	// tap. The backend does not support capture, so the player always
	// answers with an error alert; the audio path is unaffected.
	MicrophoneMsg struct{ Enabled bool }

	// PanicMsg makes the player drop all sounding voices immediately.
	PanicMsg struct{}
)

type (
	// Alert is a message to the user, shown by the UI as a popup.
	Alert struct {
		Name     string // alerts with the same name replace each other
		Priority AlertPriority
		Message  string
		Duration time.Duration
	}

	AlertPriority int

	// ClipStateMsg tells the UI the state of one recording slot.
	ClipStateMsg struct {
		Slot    int
		State   ClipState
		Seconds float64 // length of the clip, 0 if empty
	}

	// ClipAudioMsg carries a copy of a captured clip to the UI, which
	// encodes and writes it. The buffer is borrowed from the broker pool;
	// the receiver returns it with Broker.PutAudioBuffer once done.
	ClipAudioMsg struct {
		Slot  int
		Audio *rumpu.AudioBuffer
	}
)

const (
	None AlertPriority = iota
	Info
	Warning
	Error
)

const defaultAlertDuration = 3 * time.Second
