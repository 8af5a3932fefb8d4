package tui

import (
	"github.com/vsariola/rumpu"
	"gopkg.in/yaml.v3"
)

// The yank buffer holds one track row as YAML, so what was yanked stays
// readable and a row can be moved between sessions by pasting the text
// into a session file.
type yankedTrack struct {
	Kind  rumpu.TrackKind
	Steps rumpu.Steps `yaml:",flow"`
}

func yankTrack(track rumpu.Track) (string, error) {
	data, err := yaml.Marshal(yankedTrack{Kind: track.Kind, Steps: track.Steps.Copy()})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func pasteTrack(data string) (rumpu.Steps, error) {
	var t yankedTrack
	if err := yaml.Unmarshal([]byte(data), &t); err != nil {
		return nil, err
	}
	return t.Steps, nil
}
