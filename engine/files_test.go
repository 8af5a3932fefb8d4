package engine_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/engine"
)

func TestReadSessionYAML(t *testing.T) {
	data := []byte(`bpm: 95
routing: pertrack
effects: [echo, reverb]
tracks:
  - name: Kick
    kind: kick
    volume: 1
    steps: [true, false, false, false, true, false, false, false]
`)
	session, err := engine.ReadSession(data)
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if session.BPM != 95 {
		t.Errorf("bpm %v, want 95", session.BPM)
	}
	if session.Routing != rumpu.RoutingPerTrack {
		t.Errorf("routing %v, want pertrack", session.Routing)
	}
	set := session.EffectSet()
	if !set.Enabled(rumpu.EffectEcho) || !set.Enabled(rumpu.EffectReverb) || set.Enabled(rumpu.EffectChorus) {
		t.Errorf("effect set %v, want echo and reverb only", session.Effects)
	}
	if len(session.Tracks) != 1 || session.Tracks[0].Kind != rumpu.KindKick {
		t.Fatalf("tracks %+v, want one kick track", session.Tracks)
	}
	steps := session.Tracks[0].Steps
	if !steps.Active(0) || steps.Active(1) || !steps.Active(4) {
		t.Errorf("steps %v, want steps 0 and 4 active", steps)
	}
}

func TestReadSessionJSON(t *testing.T) {
	data := []byte(`{"BPM": 120, "Tracks": [{"Name": "kick", "Kind": 0, "Volume": 1, "Steps": [true, false]}]}`)
	session, err := engine.ReadSession(data)
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if session.BPM != 120 || len(session.Tracks) != 1 {
		t.Fatalf("got %+v, want the json session", session)
	}
	if session.Routing != rumpu.RoutingGlobal {
		t.Errorf("routing %v, want the global default", session.Routing)
	}
}

func TestReadSessionErrors(t *testing.T) {
	if _, err := engine.ReadSession([]byte("bpm: 120\ntracks: []\n")); err == nil {
		t.Errorf("a session with no tracks parsed successfully")
	}
	if _, err := engine.ReadSession([]byte("}{ not a session")); err == nil {
		t.Errorf("garbage parsed successfully")
	}
	if _, err := engine.ReadSession([]byte("bpm: 120\neffects: [warp]\ntracks:\n  - kind: kick\n    steps: [true]\n")); err == nil {
		t.Errorf("a session with an unknown effect parsed successfully")
	}
}

func TestWriteReadSessionRoundTrip(t *testing.T) {
	session := testSession()
	session.Effects = []string{"echo", "reverb"}
	session.Routing = rumpu.RoutingPerTrack
	data, err := engine.WriteSession(session)
	if err != nil {
		t.Fatalf("write session: %v", err)
	}
	got, err := engine.ReadSession(data)
	if err != nil {
		t.Fatalf("read the written session back: %v", err)
	}
	if !reflect.DeepEqual(got, session) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, session)
	}
}

func TestSaveLoadSessionFile(t *testing.T) {
	session := testSession()
	path := filepath.Join(t.TempDir(), "sub", "groove.yml")
	if err := engine.SaveSessionFile(path, session); err != nil {
		t.Fatalf("save session: %v", err)
	}
	got, err := engine.LoadSessionFile(path)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !reflect.DeepEqual(got, session) {
		t.Fatalf("loaded session mismatch:\ngot  %+v\nwant %+v", got, session)
	}
	if _, err := engine.LoadSessionFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("loading a missing file succeeded")
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("save did not create the directory: %v", err)
	}
}
