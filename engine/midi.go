package engine

type (
	// MIDIContext is what the cmds need from a MIDI driver: the
	// player-facing event context plus device management. The gomidi
	// package implements it on top of rtmidi when cgo is available;
	// NullMIDIContext stands in otherwise.
	MIDIContext interface {
		PlayerProcessContext

		// ListInputDevices returns the names of the connectable MIDI
		// inputs.
		ListInputDevices() []string

		// TryToOpenBy opens the input device whose name contains the
		// given string, or the first available one if first is true.
		// Returns false if nothing was opened.
		TryToOpenBy(name string, first bool) bool

		Close()
	}

	// NullMIDIContext is a MIDIContext with no devices and no events.
	NullMIDIContext struct{}
)

func (NullMIDIContext) NextEvent(frame int64) (MIDINoteEvent, bool) {
	return MIDINoteEvent{}, false
}
func (NullMIDIContext) EventDeadline() (int64, bool)  { return 0, false }
func (NullMIDIContext) FinishBlock(frame int64)       {}
func (NullMIDIContext) ListInputDevices() []string    { return nil }
func (NullMIDIContext) TryToOpenBy(string, bool) bool { return false }
func (NullMIDIContext) Close()                        {}
