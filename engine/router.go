package engine

import (
	"slices"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/dsp"
)

type (
	// NodeID identifies one connectable point in the signal graph of a
	// single entry bus: the entry point, one of the routed effect units,
	// or the master bus. Routed effects use their rumpu.EffectID value.
	NodeID int

	// Edge is one directed connection in a realized route.
	Edge struct {
		From, To NodeID
	}

	// Router owns the effect enablement set and the realized route of
	// every entry bus. All changes to the routes go through SetEffect and
	// SetScope; call sites never hand-assemble chains. The realized edges
	// are not just bookkeeping: rendering walks them from the entry point
	// to decide which units the audio passes through.
	Router struct {
		effects rumpu.EffectSet
		scope   rumpu.RoutingScope
		buses   []*bus
	}

	// bus is one entry point with its own effect unit bank, realized
	// edges and scratch buffers. With global routing there is a single
	// bus; with per-track routing each track owns one.
	bus struct {
		bank  *dsp.Bank
		edges []Edge
		path  []rumpu.EffectID
		l, r  []float32

		// declicking state: ramp is -1 right after a route change, then
		// counts the remaining compensation frames down; lastL/lastR are
		// the last samples the bus produced and rampL/rampR the offsets
		// that fade away over the ramp.
		ramp         int
		rampL, rampR float32
		lastL, lastR float32
	}
)

const (
	NodeEntry  NodeID = -1
	NodeMaster NodeID = NodeID(rumpu.NumRouted)
)

// routeRampFrames is the length of the declick ramp a bus applies after
// its route has been rebuilt, about 5 ms. The step between the old and
// the new route output decays to zero over this many frames instead of
// popping.
const routeRampFrames = rumpu.SampleRate / 200

func (n NodeID) String() string {
	switch n {
	case NodeEntry:
		return "entry"
	case NodeMaster:
		return "master"
	}
	return rumpu.EffectID(n).String()
}

func NewRouter(scope rumpu.RoutingScope, effects rumpu.EffectSet, tracks int) *Router {
	r := &Router{effects: effects}
	r.SetScope(scope, tracks)
	return r
}

// SetEffect sets the enablement state of one effect and rebuilds the
// route of every bus. Returns true if the state actually changed; setting
// an effect to its current state leaves the realized routes untouched, so
// a double toggle cannot create duplicate edges.
func (r *Router) SetEffect(effect rumpu.EffectID, enabled bool) bool {
	if !r.effects.Set(effect, enabled) {
		return false
	}
	if effect.Routed() {
		r.rebuild()
	}
	return true
}

// SetEffects replaces the whole enablement set, rebuilding all routes.
func (r *Router) SetEffects(effects rumpu.EffectSet) {
	r.effects = effects
	r.rebuild()
}

// SetScope switches between the one global chain and the per-track
// chains and rebuilds everything. Buses that survive the switch keep
// their effect unit states; new buses get fresh banks.
func (r *Router) SetScope(scope rumpu.RoutingScope, tracks int) {
	r.scope = scope
	n := 1
	if scope == rumpu.RoutingPerTrack {
		n = max(tracks, 1)
	}
	for len(r.buses) < n {
		r.buses = append(r.buses, &bus{bank: dsp.NewBank()})
	}
	r.buses = r.buses[:n]
	r.rebuild()
}

func (r *Router) Scope() rumpu.RoutingScope { return r.scope }

func (r *Router) Enabled(effect rumpu.EffectID) bool { return r.effects.Enabled(effect) }

func (r *Router) Effects() rumpu.EffectSet { return r.effects }

// Buses returns the number of entry buses: 1 when the routing scope is
// global, one per track otherwise.
func (r *Router) Buses() int { return len(r.buses) }

// Edges returns a snapshot of the realized route of the given entry bus.
func (r *Router) Edges(entry int) []Edge { return slices.Clone(r.buses[entry].edges) }

// Path returns the units a probe signal injected at the given entry point
// passes through before reaching the master bus, in order, by walking the
// realized edges.
func (r *Router) Path(entry int) []rumpu.EffectID {
	return slices.Clone(r.buses[entry].path)
}

func (r *Router) rebuild() {
	for _, b := range r.buses {
		b.rebuild(r.effects)
	}
}

// begin prepares every bus for rendering n frames.
func (r *Router) begin(n int) {
	for _, b := range r.buses {
		b.begin(n)
	}
}

// busFor returns the bus the given track renders into.
func (r *Router) busFor(track int) *bus {
	if r.scope == rumpu.RoutingPerTrack && track >= 0 && track < len(r.buses) {
		return r.buses[track]
	}
	return r.buses[0]
}

// rebuild tears down the edges created by the previous rebuild and
// connects the entry point, the enabled units in their canonical order
// and the master bus into a chain. The canonical order is the EffectID
// order, so the series position of a unit never depends on the order the
// effects were toggled in.
func (b *bus) rebuild(effects rumpu.EffectSet) {
	for len(b.edges) > 0 {
		b.disconnect(b.edges[len(b.edges)-1])
	}
	prev := NodeEntry
	for id := rumpu.EffectID(0); id.Routed(); id++ {
		if !effects.Enabled(id) {
			continue
		}
		b.connect(Edge{prev, NodeID(id)})
		prev = NodeID(id)
	}
	b.connect(Edge{prev, NodeMaster})
	path := b.walk(nil)
	if !slices.Equal(path, b.path) {
		b.ramp = -1
	}
	b.path = path
}

// connect adds an edge to the realized route, unless it is already there.
func (b *bus) connect(e Edge) {
	if slices.Contains(b.edges, e) {
		return
	}
	b.edges = append(b.edges, e)
}

// disconnect removes an edge from the realized route. Disconnecting an
// edge that does not exist is expected during rebuilds and is a no-op.
func (b *bus) disconnect(e Edge) {
	if i := slices.Index(b.edges, e); i >= 0 {
		b.edges = slices.Delete(b.edges, i, i+1)
	}
}

// walk traverses the realized edges from the entry point towards the
// master bus and appends the units the signal passes through to dst, in
// order.
func (b *bus) walk(dst []rumpu.EffectID) []rumpu.EffectID {
	node := NodeEntry
	for node != NodeMaster {
		next, ok := b.next(node)
		if !ok {
			break
		}
		if next != NodeMaster {
			dst = append(dst, rumpu.EffectID(next))
		}
		node = next
	}
	return dst
}

func (b *bus) next(from NodeID) (NodeID, bool) {
	for _, e := range b.edges {
		if e.From == from {
			return e.To, true
		}
	}
	return 0, false
}

// begin prepares the bus for rendering n frames, zeroing its scratch
// buffers so the voices can sum into them.
func (b *bus) begin(n int) {
	setSliceLength(&b.l, n)
	setSliceLength(&b.r, n)
	vek32.Zeros_Into(b.l, n)
	vek32.Zeros_Into(b.r, n)
}

// process runs the bus contents through the units on its path and adds
// the result to the master buffers. After a route change the output
// restarts from the last sample the old route produced and the residual
// offset fades out linearly over routeRampFrames, so sounding voices
// cross the swap without a click.
func (b *bus) process(ml, mr []float32) {
	n := len(ml)
	b.bank.Process(b.path, b.l[:n], b.r[:n])
	if b.ramp < 0 {
		b.rampL = b.lastL - b.l[0]
		b.rampR = b.lastR - b.r[0]
		b.ramp = routeRampFrames
	}
	for i := 0; b.ramp > 0 && i < n; i, b.ramp = i+1, b.ramp-1 {
		g := float32(b.ramp) / routeRampFrames
		b.l[i] += b.rampL * g
		b.r[i] += b.rampR * g
	}
	vek32.Add_Inplace(ml, b.l[:n])
	vek32.Add_Inplace(mr, b.r[:n])
	b.lastL = b.l[n-1]
	b.lastR = b.r[n-1]
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}
