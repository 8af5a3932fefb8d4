package engine_test

import (
	"sort"
	"testing"

	"github.com/vsariola/rumpu/engine"
)

func TestLoadPresets(t *testing.T) {
	presets := engine.LoadPresets()
	if len(presets) < 4 {
		t.Fatalf("%v presets, want at least the built-in four", len(presets))
	}
	if !sort.SliceIsSorted(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name }) {
		t.Errorf("presets are not sorted by name")
	}
	foundDefault := false
	for _, p := range presets {
		if err := p.Session.Validate(); err != nil {
			t.Errorf("preset %q does not validate: %v", p.Name, err)
		}
		if p.Name == "default" {
			foundDefault = true
			if p.User {
				t.Errorf("the built-in default preset is marked as a user preset")
			}
			if len(p.Session.Tracks) != 4 {
				t.Errorf("the default preset has %v tracks, want 4", len(p.Session.Tracks))
			}
		}
	}
	if !foundDefault {
		t.Fatalf("no preset named default")
	}
}
