package engine

import "github.com/vsariola/rumpu"

// DefaultSession is what cmd/rumpu opens with when no session file is
// given: the same basic rock beat as presets/default.yml, kick on the
// downbeats and snare on the backbeats, with the bass and chord rows
// ready but silent.
func DefaultSession() rumpu.Session {
	return rumpu.Session{
		BPM: 120,
		Tracks: []rumpu.Track{
			{Name: "Kick", Kind: rumpu.KindKick, Volume: 1, Steps: rumpu.Steps{true, false, false, false, true, false, false, false}},
			{Name: "Snare", Kind: rumpu.KindSnare, Volume: 0.8, Steps: rumpu.Steps{false, false, true, false, false, false, true, false}},
			{Name: "Bass", Kind: rumpu.KindBass, Volume: 0.9, Steps: make(rumpu.Steps, 8)},
			{Name: "Chord", Kind: rumpu.KindChord, Volume: 0.7, Steps: make(rumpu.Steps, 8)},
		},
	}
}
