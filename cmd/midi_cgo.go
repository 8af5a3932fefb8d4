//go:build cgo

package cmd

import (
	"github.com/vsariola/rumpu/engine"
	"github.com/vsariola/rumpu/engine/gomidi"
)

func NewMidiContext(broker *engine.Broker) engine.MIDIContext {
	return gomidi.NewContext(broker)
}
