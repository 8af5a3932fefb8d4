// Package gomidi implements the engine.MIDIContext interface on top of
// rtmidi, turning MIDI note ons into pad triggers and the realtime
// start/stop messages into transport messages.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/engine"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	RTMIDIContext struct {
		broker             *engine.Broker
		driver             *rtmididrv.Driver
		currentIn          drivers.In
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
		events             chan timestampedMsg
		eventsBuf          []timestampedMsg
		eventIndex         int

		// offset maps the driver timestamps to the player's sample
		// clock: playerFrame = driverFrame - offset. It is set when the
		// first event is seen and nudged after that, as the two clocks
		// run free of each other.
		offset    int64
		offsetSet bool
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}

	timestampedMsg struct {
		frame int64 // driver timestamp in frames
		msg   midi.Message
	}
)

// NewContext opens the rtmidi driver. If that fails, the context still
// works; it just has no input devices.
func NewContext(broker *engine.Broker) *RTMIDIContext {
	m := RTMIDIContext{broker: broker, events: make(chan timestampedMsg, 1024)}
	// there's not much we can do if this fails, so just use m.driver =
	// nil to indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

func (c *RTMIDIContext) ListInputDevices() []string {
	devices := c.devices()
	ret := make([]string, 0, len(devices))
	for _, d := range devices {
		ret = append(ret, d.String())
	}
	return ret
}

// TryToOpenBy opens the input device whose name contains the given
// string, or the first available device if takeFirst is true.
func (c *RTMIDIContext) TryToOpenBy(name string, takeFirst bool) bool {
	if name == "" && !takeFirst {
		return false
	}
	for _, device := range c.devices() {
		if takeFirst || strings.Contains(device.String(), name) {
			return device.Open() == nil
		}
	}
	return false
}

func (c *RTMIDIContext) devices() []RTMIDIDevice {
	if c.devicesInitialized || c.driver == nil {
		return c.inputDevices
	}
	if ins, err := c.driver.Ins(); err == nil {
		for _, in := range ins {
			c.inputDevices = append(c.inputDevices, RTMIDIDevice{context: c, in: in})
		}
	}
	c.devicesInitialized = true
	return c.inputDevices
}

// Open opens the input device, closing the currently open one if
// necessary.
func (d RTMIDIDevice) Open() error {
	if d.context.currentIn == d.in {
		return nil
	}
	if d.context.driver == nil {
		return errors.New("no driver available")
	}
	if d.context.HasDeviceOpen() {
		d.context.currentIn.Close()
	}
	d.context.currentIn = d.in
	if err := d.in.Open(); err != nil {
		d.context.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(d.in, d.context.HandleMessage); err != nil {
		d.in.Close()
		d.context.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (d RTMIDIDevice) String() string { return d.in.String() }

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}

// HandleMessage is called by the driver goroutine. The realtime transport
// messages go straight to the player as transport messages; note ons and
// offs are queued with their timestamps for sample-accurate triggering.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	if msg.Is(midi.StartMsg) {
		engine.TrySend(c.broker.ToPlayer, any(engine.StartMsg{}))
		return
	}
	if msg.Is(midi.StopMsg) {
		engine.TrySend(c.broker.ToPlayer, any(engine.StopMsg{}))
		return
	}
	f := int64(timestampms) * rumpu.SampleRate / 1000
	select {
	case c.events <- timestampedMsg{frame: f, msg: msg}: // if the channel is full, just drop the message
	default:
	}
}

// NextEvent returns the next note event due at or before the given frame,
// consuming it. Non-note messages due by then are consumed and skipped.
func (c *RTMIDIContext) NextEvent(frame int64) (event engine.MIDINoteEvent, ok bool) {
	c.drain()
	if !c.offsetSet && c.eventIndex < len(c.eventsBuf) {
		// map the first event to the current frame, so it plays
		// immediately
		c.offset = c.eventsBuf[c.eventIndex].frame - frame
		c.offsetSet = true
	}
	if c.eventIndex > 0 {
		// an event was consumed, check how badly we need to adjust the
		// timing. delta should never be negative, because we do not
		// consume an event until the current frame is past the frame of
		// the event. But if it has been a while since we consumed one,
		// delta may be *positive* i.e. we consume the event too late, so
		// adjust the internal clock towards the consumed event.
		delta := frame - (c.eventsBuf[c.eventIndex-1].frame - c.offset)
		c.offset -= delta / 5
	}
	for c.eventIndex < len(c.eventsBuf) {
		m := c.eventsBuf[c.eventIndex]
		f := m.frame - c.offset
		if f > frame {
			break
		}
		c.eventIndex++
		var channel, key, velocity uint8
		isNoteOn := m.msg.GetNoteOn(&channel, &key, &velocity)
		isNoteOff := !isNoteOn && m.msg.GetNoteOff(&channel, &key, &velocity)
		if isNoteOn || isNoteOff {
			return engine.MIDINoteEvent{
				Frame:    f,
				On:       isNoteOn,
				Channel:  int(channel),
				Note:     key,
				Velocity: velocity,
			}, true
		}
	}
	return engine.MIDINoteEvent{}, false
}

// EventDeadline returns the player frame of the earliest pending event.
func (c *RTMIDIContext) EventDeadline() (int64, bool) {
	c.drain()
	if c.offsetSet && c.eventIndex < len(c.eventsBuf) {
		return c.eventsBuf[c.eventIndex].frame - c.offset, true
	}
	return 0, false
}

func (c *RTMIDIContext) drain() {
	for {
		select {
		case msg := <-c.events:
			c.eventsBuf = append(c.eventsBuf, msg)
		default:
			return
		}
	}
}

// FinishBlock drops the consumed events and, if events are still
// pending, nudges the clock so that they render as close to the time
// they were received as the block size allows.
func (c *RTMIDIContext) FinishBlock(frame int64) {
	if c.eventIndex > 0 {
		copy(c.eventsBuf, c.eventsBuf[c.eventIndex:])
		c.eventsBuf = c.eventsBuf[:len(c.eventsBuf)-c.eventIndex]
		c.eventIndex = 0
	}
	if len(c.eventsBuf) > 0 {
		if f := c.eventsBuf[0].frame - c.offset; f > frame {
			c.offset += (f - frame) / 5
		}
	}
}
