package engine_test

import (
	"reflect"
	"slices"
	"testing"

	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/engine"
)

func effects(ids ...rumpu.EffectID) (ret rumpu.EffectSet) {
	for _, id := range ids {
		ret[id] = true
	}
	return ret
}

func TestPathFollowsCanonicalOrder(t *testing.T) {
	r := engine.NewRouter(rumpu.RoutingGlobal, rumpu.EffectSet{}, 1)
	toggled := []rumpu.EffectID{rumpu.EffectPanner, rumpu.EffectEcho, rumpu.EffectDistortion, rumpu.EffectHighpass}
	for _, e := range toggled {
		if !r.SetEffect(e, true) {
			t.Fatalf("enabling %v reported no change", e)
		}
	}
	want := []rumpu.EffectID{rumpu.EffectHighpass, rumpu.EffectDistortion, rumpu.EffectEcho, rumpu.EffectPanner}
	if got := r.Path(0); !reflect.DeepEqual(got, want) {
		t.Fatalf("path after enabling %v: got %v, want %v", toggled, got, want)
	}
}

func TestPathIndependentOfToggleOrder(t *testing.T) {
	a := engine.NewRouter(rumpu.RoutingGlobal, rumpu.EffectSet{}, 1)
	b := engine.NewRouter(rumpu.RoutingGlobal, rumpu.EffectSet{}, 1)
	ids := []rumpu.EffectID{rumpu.EffectLowpass, rumpu.EffectFlanger, rumpu.EffectReverb, rumpu.EffectLevel}
	for _, id := range ids {
		a.SetEffect(id, true)
	}
	for i := len(ids) - 1; i >= 0; i-- {
		b.SetEffect(ids[i], true)
	}
	if !reflect.DeepEqual(a.Edges(0), b.Edges(0)) {
		t.Fatalf("toggle order changed the route: %v vs %v", a.Edges(0), b.Edges(0))
	}
}

func TestProbeWalkMatchesEnabledEffects(t *testing.T) {
	sets := [][]rumpu.EffectID{
		nil,
		{rumpu.EffectReverb},
		{rumpu.EffectPitch},
		{rumpu.EffectHighpass, rumpu.EffectLowpass, rumpu.EffectPitch},
		{rumpu.EffectTremolo, rumpu.EffectChorus, rumpu.EffectLevel},
		{rumpu.EffectHighpass, rumpu.EffectLowpass, rumpu.EffectDistortion,
			rumpu.EffectTremolo, rumpu.EffectRingmod, rumpu.EffectPhaser,
			rumpu.EffectFlanger, rumpu.EffectChorus, rumpu.EffectEcho,
			rumpu.EffectReverb, rumpu.EffectPanner, rumpu.EffectLevel},
	}
	for _, set := range sets {
		r := engine.NewRouter(rumpu.RoutingGlobal, effects(set...), 1)
		var want []rumpu.EffectID
		for id := rumpu.EffectID(0); id.Routed(); id++ {
			if slices.Contains(set, id) {
				want = append(want, id)
			}
		}
		if got := r.Path(0); !reflect.DeepEqual(got, want) {
			t.Errorf("effects %v: path %v, want %v", set, got, want)
		}
		edges := r.Edges(0)
		if len(edges) != len(want)+1 {
			t.Fatalf("effects %v: %v edges, want %v", set, len(edges), len(want)+1)
		}
		if edges[0].From != engine.NodeEntry {
			t.Fatalf("effects %v: route starts from %v, want entry", set, edges[0].From)
		}
		for i := range edges[:len(edges)-1] {
			if edges[i].To != edges[i+1].From {
				t.Fatalf("effects %v: route broken between %v and %v", set, edges[i].To, edges[i+1].From)
			}
		}
		if edges[len(edges)-1].To != engine.NodeMaster {
			t.Fatalf("effects %v: route ends at %v, want master", set, edges[len(edges)-1].To)
		}
	}
}

func TestSetEffectSameStateKeepsRoute(t *testing.T) {
	r := engine.NewRouter(rumpu.RoutingGlobal, effects(rumpu.EffectDistortion, rumpu.EffectEcho), 1)
	before := r.Edges(0)
	if r.SetEffect(rumpu.EffectDistortion, true) {
		t.Fatalf("re-enabling an enabled effect reported a change")
	}
	if r.SetEffect(rumpu.EffectReverb, false) {
		t.Fatalf("re-disabling a disabled effect reported a change")
	}
	if got := r.Edges(0); !reflect.DeepEqual(got, before) {
		t.Fatalf("route changed: got %v, want %v", got, before)
	}
}

func TestToggleRoundTripRestoresRoute(t *testing.T) {
	r := engine.NewRouter(rumpu.RoutingGlobal, effects(rumpu.EffectHighpass, rumpu.EffectReverb), 1)
	before := r.Edges(0)
	if !r.SetEffect(rumpu.EffectChorus, true) {
		t.Fatalf("enabling chorus reported no change")
	}
	if mid := r.Edges(0); len(mid) != len(before)+1 {
		t.Fatalf("enabling chorus: %v edges, want %v", len(mid), len(before)+1)
	}
	if !r.SetEffect(rumpu.EffectChorus, false) {
		t.Fatalf("disabling chorus reported no change")
	}
	if got := r.Edges(0); !reflect.DeepEqual(got, before) {
		t.Fatalf("route after toggling chorus on and off: got %v, want %v", got, before)
	}
}

func TestRoutingScopes(t *testing.T) {
	r := engine.NewRouter(rumpu.RoutingGlobal, effects(rumpu.EffectEcho), 4)
	if got := r.Buses(); got != 1 {
		t.Fatalf("global scope: %v buses, want 1", got)
	}
	r.SetScope(rumpu.RoutingPerTrack, 4)
	if got := r.Buses(); got != 4 {
		t.Fatalf("per-track scope: %v buses, want 4", got)
	}
	for i := 1; i < r.Buses(); i++ {
		if !reflect.DeepEqual(r.Path(i), r.Path(0)) {
			t.Fatalf("bus %v has path %v, bus 0 has %v", i, r.Path(i), r.Path(0))
		}
	}
	r.SetScope(rumpu.RoutingGlobal, 4)
	if got := r.Buses(); got != 1 {
		t.Fatalf("back to global scope: %v buses, want 1", got)
	}
	r.SetScope(rumpu.RoutingPerTrack, 0)
	if got := r.Buses(); got != 1 {
		t.Fatalf("per-track scope with no tracks: %v buses, want 1", got)
	}
}

func TestNodeIDString(t *testing.T) {
	tests := []struct {
		node engine.NodeID
		want string
	}{
		{engine.NodeEntry, "entry"},
		{engine.NodeMaster, "master"},
		{engine.NodeID(rumpu.EffectEcho), "echo"},
	}
	for _, test := range tests {
		if got := test.node.String(); got != test.want {
			t.Errorf("NodeID(%d): got %q, want %q", int(test.node), got, test.want)
		}
	}
}
