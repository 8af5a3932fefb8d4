package rumpu

import (
	"errors"
	"fmt"
)

type (
	// Session is the whole state of the drum machine that is persisted to
	// disk: the tempo, the step grid and the initial effect toggles. It is
	// the explicit configuration object handed to the engine; there is no
	// package level mutable state anywhere, so tests can construct a fresh
	// Session per case.
	Session struct {
		// BPM is the tempo as an integer; one step is an eighth note, so a
		// step lasts (60/BPM)/2 seconds. Clamped to >= 1 everywhere, so the
		// step interval can never collapse to zero or negative.
		BPM int

		// Routing selects whether the effect chain is rebuilt globally (all
		// tracks share one entry bus) or per track (each track owns an entry
		// bus and its own effect unit bank).
		Routing RoutingScope

		// Effects is the initial enablement state of the effect units.
		Effects []string `yaml:",flow,omitempty"`

		// Tracks is the step grid. All tracks must have the same number of
		// steps.
		Tracks []Track
	}

	// Track is one row of the step grid: an instrument kind, a fixed-length
	// sequence of step-active flags and a volume scalar. The engine borrows
	// it read-only once per tick; only collaborator messages mutate it.
	Track struct {
		Name   string
		Kind   TrackKind
		Volume float32
		Steps  Steps `yaml:",flow"`
	}

	// Steps is the step-active flags of one track, in practice just a slice
	// of bools with convenience functions that treat out of bounds indices
	// as inactive.
	Steps []bool

	// RoutingScope selects between one global effect chain and one chain per
	// track.
	RoutingScope int
)

const (
	RoutingGlobal RoutingScope = iota
	RoutingPerTrack
)

// DefaultStepsPerBar is the grid length used by the presets and by new
// sessions: eight eighth notes, one 4/4 bar.
const DefaultStepsPerBar = 8

const (
	MinBPM = 1
	MaxBPM = 999
)

func (r RoutingScope) String() string {
	if r == RoutingPerTrack {
		return "pertrack"
	}
	return "global"
}

func (r *RoutingScope) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	switch name {
	case "", "global":
		*r = RoutingGlobal
	case "pertrack":
		*r = RoutingPerTrack
	default:
		return fmt.Errorf("unknown routing scope %q", name)
	}
	return nil
}

func (r RoutingScope) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

func (t TrackKind) MarshalYAML() (interface{}, error) { return t.String(), nil }

func (t *TrackKind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	kind, err := ParseTrackKind(name)
	if err != nil {
		return err
	}
	*t = kind
	return nil
}

func (s Steps) Active(index int) bool {
	if index < 0 || index >= len(s) {
		return false
	}
	return s[index]
}

// Set sets the step at index, growing the slice if necessary so that
// toggling a step beyond the current length works; the new slots are
// inactive.
func (s *Steps) Set(index int, active bool) {
	if index < 0 {
		return
	}
	for len(*s) <= index {
		*s = append(*s, false)
	}
	(*s)[index] = active
}

func (s Steps) Copy() Steps {
	ret := make(Steps, len(s))
	copy(ret, s)
	return ret
}

func (t *Track) Copy() Track {
	return Track{Name: t.Name, Kind: t.Kind, Volume: t.Volume, Steps: t.Steps.Copy()}
}

func (s *Session) Copy() Session {
	tracks := make([]Track, len(s.Tracks))
	for i, t := range s.Tracks {
		tracks[i] = t.Copy()
	}
	effects := make([]string, len(s.Effects))
	copy(effects, s.Effects)
	return Session{BPM: s.BPM, Routing: s.Routing, Effects: effects, Tracks: tracks}
}

// StepsPerBar returns the grid length of the session; all tracks have the
// same length, enforced by Validate.
func (s *Session) StepsPerBar() int {
	if len(s.Tracks) == 0 {
		return DefaultStepsPerBar
	}
	return len(s.Tracks[0].Steps)
}

// EffectSet parses the Effects list into an enablement set. Unknown names
// are skipped; they are reported by Validate instead, so that reading a
// session stays usable even if it was written by a newer version.
func (s *Session) EffectSet() (ret EffectSet) {
	for _, name := range s.Effects {
		if e, err := ParseEffect(name); err == nil {
			ret[e] = true
		}
	}
	return ret
}

func (s *Session) Validate() error {
	if s.BPM < MinBPM {
		return errors.New("BPM should be >= 1")
	}
	if len(s.Tracks) == 0 {
		return errors.New("session should have at least one track")
	}
	for i := range s.Tracks[:len(s.Tracks)-1] {
		if len(s.Tracks[i].Steps) != len(s.Tracks[i+1].Steps) {
			return errors.New("every track should have the same number of steps")
		}
	}
	if len(s.Tracks[0].Steps) < 1 {
		return errors.New("tracks should have at least one step")
	}
	for _, t := range s.Tracks {
		if t.Kind < 0 || int(t.Kind) >= len(trackKindNames) {
			return fmt.Errorf("track %q has an unknown kind", t.Name)
		}
	}
	for _, name := range s.Effects {
		if _, err := ParseEffect(name); err != nil {
			return err
		}
	}
	return nil
}

// ClampBPM clamps a tempo to the valid range. Malformed tempi are guarded by
// clamping at the boundary, never by raising.
func ClampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// ClampVolume floors negative volumes to zero. Values above 1 are allowed;
// the master limiter is the safety net against them.
func ClampVolume(vol float32) float32 {
	if vol < 0 {
		return 0
	}
	return vol
}

// IntervalSeconds returns the duration of one step in seconds:
// (60/BPM)/2, eighth note resolution against a 4/4 assumption.
func IntervalSeconds(bpm int) float64 {
	return 60 / float64(ClampBPM(bpm)) / 2
}

// SamplesPerStep returns the duration of one step in frames. With the tempo
// clamped to >= 1, the result is always positive.
func SamplesPerStep(bpm int) int {
	return SampleRate * 60 / (ClampBPM(bpm) * 2)
}

// LoopSamples returns the length of a recorded loop in frames:
// (60/BPM) * beatsPerBar * bars.
func LoopSamples(bpm, beatsPerBar, bars int) int {
	return SampleRate * 60 * beatsPerBar * bars / ClampBPM(bpm)
}
