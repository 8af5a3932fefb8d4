// Package rumpu contains the domain types of the rumpu drum machine: the
// session (step grid, tempo, effect toggles), the effect and track
// identifiers, and the audio buffer / audio backend abstractions. The
// packages dsp and engine build the actual signal processing and the
// real-time playback on top of these types.
package rumpu

import (
	"fmt"
)

// SampleRate is the fixed sample rate of the whole engine. All the DSP
// constants (envelope times, delay lengths, impulse responses) assume this
// rate, so it is a constant rather than a parameter.
const SampleRate = 44100

type (
	// TrackKind identifies the instrument recipe a track triggers. Each kind
	// maps to a fixed voice construction in the dsp package.
	TrackKind int

	// EffectID identifies one of the statically allocated effect units, or
	// the pitch toggle. The integer value of an EffectID is its canonical
	// series position: when several effects are enabled, the signal always
	// passes through them in increasing EffectID order, regardless of the
	// order they were toggled in.
	EffectID int

	// EffectSet is the enablement state of all effects. The zero value has
	// every effect disabled.
	EffectSet [NumEffects]bool
)

const (
	KindKick TrackKind = iota
	KindSnare
	KindBass
	KindChord
)

const (
	EffectHighpass EffectID = iota
	EffectLowpass
	EffectDistortion
	EffectTremolo
	EffectRingmod
	EffectPhaser
	EffectFlanger
	EffectChorus
	EffectEcho
	EffectReverb
	EffectPanner
	EffectLevel

	// EffectPitch doubles the frequencies of future voices. It is part of
	// the enablement set but takes no position in the signal route.
	EffectPitch

	NumEffects int = iota
)

// NumRouted is the number of effects that occupy a position in the signal
// route; the EffectIDs below NumRouted are routed, the rest are flags.
const NumRouted = int(EffectPitch)

var trackKindNames = [...]string{"kick", "snare", "bass", "chord"}

var effectNames = [...]string{"highpass", "lowpass", "distortion", "tremolo",
	"ringmod", "phaser", "flanger", "chorus", "echo", "reverb", "panner",
	"level", "pitch"}

func (k TrackKind) String() string {
	if k < 0 || int(k) >= len(trackKindNames) {
		return fmt.Sprintf("TrackKind(%d)", int(k))
	}
	return trackKindNames[k]
}

func (e EffectID) String() string {
	if e < 0 || int(e) >= len(effectNames) {
		return fmt.Sprintf("EffectID(%d)", int(e))
	}
	return effectNames[e]
}

// Routed returns true if the effect occupies a position in the signal route.
// Pitch is the only non-routed effect: it is read by the voice factory at
// trigger time instead.
func (e EffectID) Routed() bool {
	return e >= 0 && int(e) < NumRouted
}

// ParseTrackKind returns the TrackKind with the given name, as used in the
// session files.
func ParseTrackKind(name string) (TrackKind, error) {
	for i, n := range trackKindNames {
		if n == name {
			return TrackKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown track kind %q", name)
}

// ParseEffect returns the EffectID with the given name, as used in the
// session files and the effect toggle messages.
func ParseEffect(name string) (EffectID, error) {
	for i, n := range effectNames {
		if n == name {
			return EffectID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", name)
}

// Enabled returns the enablement state of the given effect; out of range
// effects are reported as disabled.
func (s *EffectSet) Enabled(e EffectID) bool {
	if e < 0 || int(e) >= NumEffects {
		return false
	}
	return s[e]
}

// Set sets the enablement state of the given effect and returns true if the
// state actually changed. Out of range effects are ignored.
func (s *EffectSet) Set(e EffectID, enabled bool) bool {
	if e < 0 || int(e) >= NumEffects {
		return false
	}
	if s[e] == enabled {
		return false
	}
	s[e] = enabled
	return true
}

// Names returns the names of the enabled effects, in EffectID order, in the
// form the Session.Effects field uses.
func (s *EffectSet) Names() []string {
	var ret []string
	for e, enabled := range s {
		if enabled {
			ret = append(ret, EffectID(e).String())
		}
	}
	return ret
}
