//go:build !cgo

package cmd

import (
	"github.com/vsariola/rumpu/engine"
)

func NewMidiContext(broker *engine.Broker) engine.MIDIContext {
	// with no cgo, we cannot use rtmidi, so return a null context
	return engine.NullMIDIContext{}
}
