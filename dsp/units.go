package dsp

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/rumpu"
)

type (
	// Unit is one effect in the bank. Process runs the effect over a planar
	// stereo buffer in place. Idle advances the unit's time-dependent state
	// (modulator phases, feedback loops, convolution tails) by n frames of
	// silence; it is called instead of Process whenever the unit is not
	// routed, so that re-enabling the unit resumes its sweep mid-phase
	// rather than restarting it.
	Unit interface {
		ID() rumpu.EffectID
		Process(l, r []float32)
		Idle(n int)
	}

	// Bank holds one instance of every routed effect unit, indexed by
	// rumpu.EffectID so that ascending index order is the canonical series
	// order. All units are constructed once; toggling only changes which
	// units the carrier signal passes through.
	Bank struct {
		units [rumpu.NumRouted]Unit
	}
)

func NewBank() *Bank {
	b := &Bank{}
	b.units[rumpu.EffectHighpass] = newHighpass()
	b.units[rumpu.EffectLowpass] = newLowpass()
	b.units[rumpu.EffectDistortion] = newDistortion()
	b.units[rumpu.EffectTremolo] = newTremolo()
	b.units[rumpu.EffectRingmod] = newRingmod()
	b.units[rumpu.EffectPhaser] = newPhaser()
	b.units[rumpu.EffectFlanger] = newFlanger()
	b.units[rumpu.EffectChorus] = newChorus()
	b.units[rumpu.EffectEcho] = newEcho()
	b.units[rumpu.EffectReverb] = newReverb()
	b.units[rumpu.EffectPanner] = newPanner()
	b.units[rumpu.EffectLevel] = newLevel()
	return b
}

// Unit returns the unit for the given effect, or nil if the effect has no
// series position (e.g. the pitch toggle).
func (b *Bank) Unit(id rumpu.EffectID) Unit {
	if !id.Routed() {
		return nil
	}
	return b.units[id]
}

// Process runs the chain units in the given order over the buffer and idles
// every unit not on the chain, keeping their modulators continuous. The
// chain is expected in canonical order; the bank does not reorder it.
func (b *Bank) Process(chain []rumpu.EffectID, l, r []float32) {
	var used [rumpu.NumRouted]bool
	for _, id := range chain {
		if !id.Routed() {
			continue
		}
		used[id] = true
		b.units[id].Process(l, r)
	}
	for id, u := range b.units {
		if !used[id] {
			u.Idle(len(l))
		}
	}
}

type highpass struct {
	coeff biquadCoeff
	state [2]biquadState
}

// 20 Hz cutoff leaves the audible band untouched; the unit colors the sound
// only if the cutoff is raised.
func newHighpass() *highpass {
	return &highpass{coeff: highpassCoeffs(20, math.Sqrt2/2)}
}

func (u *highpass) ID() rumpu.EffectID { return rumpu.EffectHighpass }
func (u *highpass) Idle(int)           {}

func (u *highpass) Process(l, r []float32) {
	u.state[0].Filter(l, u.coeff)
	u.state[1].Filter(r, u.coeff)
}

type lowpass struct {
	coeff biquadCoeff
	state [2]biquadState
}

func newLowpass() *lowpass {
	return &lowpass{coeff: lowpassCoeffs(20000, math.Sqrt2/2)}
}

func (u *lowpass) ID() rumpu.EffectID { return rumpu.EffectLowpass }
func (u *lowpass) Idle(int)           {}

func (u *lowpass) Process(l, r []float32) {
	u.state[0].Filter(l, u.coeff)
	u.state[1].Filter(r, u.coeff)
}

const (
	distortionAmount     = 50
	distortionCurveCount = rumpu.SampleRate
)

type distortion struct {
	curve   []float32
	over    [2]oversamplerState
	scratch []float32
}

func newDistortion() *distortion {
	d := &distortion{curve: make([]float32, distortionCurveCount)}
	k := float64(distortionAmount)
	n := float64(len(d.curve))
	deg := 20 * math.Pi / 180
	for i := range d.curve {
		x := 2*float64(i)/n - 1
		d.curve[i] = float32((3 + k) * x * deg / (math.Pi + k*math.Abs(x)))
	}
	return d
}

func (u *distortion) ID() rumpu.EffectID { return rumpu.EffectDistortion }
func (u *distortion) Idle(int)           {}

// Process shapes the signal at 4x the sample rate: polyphase upsample, map
// every sample through the curve, then decimate back.
func (u *distortion) Process(l, r []float32) {
	setSliceLength(&u.scratch, 4*len(l))
	for chn, buf := range [2][]float32{l, r} {
		o := u.over[chn].Oversample(buf, u.scratch)
		for i, v := range o {
			o[i] = u.shape(v)
		}
		decimate(buf, o)
	}
}

func (u *distortion) shape(x float32) float32 {
	pos := (x + 1) * 0.5 * float32(len(u.curve))
	if pos <= 0 {
		return u.curve[0]
	}
	if pos >= float32(len(u.curve)-1) {
		return u.curve[len(u.curve)-1]
	}
	i := int(pos)
	frac := pos - float32(i)
	return u.curve[i]*(1-frac) + u.curve[i+1]*frac
}

type tremolo struct {
	osc         lfo
	bias, depth float32
}

// bias + depth*sin stays in [0,1] so the gain never goes negative.
func newTremolo() *tremolo {
	return &tremolo{osc: newLFO(4), bias: 0.5, depth: 0.5}
}

func (u *tremolo) ID() rumpu.EffectID { return rumpu.EffectTremolo }
func (u *tremolo) Idle(n int)         { u.osc.skip(n) }

func (u *tremolo) Process(l, r []float32) {
	for i := range l {
		g := u.bias + u.depth*float32(u.osc.next())
		l[i] *= g
		r[i] *= g
	}
}

type ringmod struct {
	osc lfo
}

func newRingmod() *ringmod {
	return &ringmod{osc: newLFO(30)}
}

func (u *ringmod) ID() rumpu.EffectID { return rumpu.EffectRingmod }
func (u *ringmod) Idle(n int)         { u.osc.skip(n) }

func (u *ringmod) Process(l, r []float32) {
	for i := range l {
		g := float32(u.osc.next())
		l[i] *= g
		r[i] *= g
	}
}

const (
	phaserStages  = 4
	phaserMinFreq = 350
	phaserMaxFreq = 1600
)

type (
	phaser struct {
		osc    lfo
		stages [2][phaserStages]allpassState
	}

	allpassState struct {
		x1, y1 float32
	}
)

func newPhaser() *phaser {
	return &phaser{osc: newLFO(0.5)}
}

func (u *phaser) ID() rumpu.EffectID { return rumpu.EffectPhaser }
func (u *phaser) Idle(n int)         { u.osc.skip(n) }

// All four stages share the swept center frequency; the phased signal is
// mixed 50/50 with the dry signal to produce the notches.
func (u *phaser) Process(l, r []float32) {
	channels := [2][]float32{l, r}
	mid := float64(phaserMinFreq+phaserMaxFreq) / 2
	halfSpan := float64(phaserMaxFreq-phaserMinFreq) / 2
	for i := range l {
		freq := mid + halfSpan*u.osc.next()
		t := math.Tan(math.Pi * freq / rumpu.SampleRate)
		a := float32((t - 1) / (t + 1))
		for chn, buf := range channels {
			x := buf[i]
			y := x
			for s := range u.stages[chn] {
				st := &u.stages[chn][s]
				y2 := a*y + st.x1 - a*st.y1
				st.x1, st.y1 = y, y2
				y = y2
			}
			buf[i] = 0.5 * (x + y)
		}
	}
}

type flanger struct {
	osc      lfo
	feedback float32
	lines    [2]delayLine
}

func newFlanger() *flanger {
	n := int(0.010 * rumpu.SampleRate)
	return &flanger{
		osc:      newLFO(0.25),
		feedback: 0.5,
		lines:    [2]delayLine{newDelayLine(n), newDelayLine(n)},
	}
}

func (u *flanger) ID() rumpu.EffectID { return rumpu.EffectFlanger }

func (u *flanger) Process(l, r []float32) {
	channels := [2][]float32{l, r}
	for i := range l {
		delay := (3.5 + 3*u.osc.next()) * framesPerMs
		for chn, buf := range channels {
			line := &u.lines[chn]
			d := line.read(delay)
			line.write(buf[i] + u.feedback*d)
			buf[i] = 0.5 * (buf[i] + d)
		}
	}
}

// The feedback loop keeps circulating with zero input while unrouted.
func (u *flanger) Idle(n int) {
	for range n {
		delay := (3.5 + 3*u.osc.next()) * framesPerMs
		for chn := range u.lines {
			line := &u.lines[chn]
			line.write(u.feedback * line.read(delay))
		}
	}
}

type chorus struct {
	osc   lfo
	lines [2]delayLine
}

func newChorus() *chorus {
	n := int(0.040 * rumpu.SampleRate)
	return &chorus{
		osc:   newLFO(3.5),
		lines: [2]delayLine{newDelayLine(n), newDelayLine(n)},
	}
}

func (u *chorus) ID() rumpu.EffectID { return rumpu.EffectChorus }

func (u *chorus) Process(l, r []float32) {
	channels := [2][]float32{l, r}
	for i := range l {
		delay := (25 + 8*u.osc.next()) * framesPerMs
		for chn, buf := range channels {
			line := &u.lines[chn]
			d := line.read(delay)
			line.write(buf[i])
			buf[i] = 0.5 * (buf[i] + d)
		}
	}
}

func (u *chorus) Idle(n int) {
	u.osc.skip(n)
	for range n {
		for chn := range u.lines {
			u.lines[chn].write(0)
		}
	}
}

const echoDelayFrames = int(0.3 * rumpu.SampleRate)

type echo struct {
	feedback float32
	lines    [2]delayLine
}

func newEcho() *echo {
	n := echoDelayFrames + 2
	return &echo{
		feedback: 0.33,
		lines:    [2]delayLine{newDelayLine(n), newDelayLine(n)},
	}
}

func (u *echo) ID() rumpu.EffectID { return rumpu.EffectEcho }

func (u *echo) Process(l, r []float32) {
	channels := [2][]float32{l, r}
	for i := range l {
		for chn, buf := range channels {
			line := &u.lines[chn]
			d := line.read(float64(echoDelayFrames))
			line.write(buf[i] + u.feedback*d)
			buf[i] += d
		}
	}
}

// The delay→feedback→delay loop is wired permanently, so pending repeats
// keep decaying while the unit is unrouted and are heard if it is re-enabled
// before they fade out.
func (u *echo) Idle(n int) {
	for range n {
		for chn := range u.lines {
			line := &u.lines[chn]
			line.write(u.feedback * line.read(float64(echoDelayFrames)))
		}
	}
}

type panner struct {
	pan float32
}

func newPanner() *panner {
	return &panner{}
}

func (u *panner) ID() rumpu.EffectID { return rumpu.EffectPanner }
func (u *panner) Idle(int)           {}

// Equal-power stereo pan. At center the unit passes the signal through
// bit-exact; panning left folds the right channel into the left and
// attenuates the right, mirrored for panning right.
func (u *panner) Process(l, r []float32) {
	if u.pan == 0 {
		return
	}
	pan := float64(u.pan)
	if pan <= 0 {
		x := pan + 1
		gl := float32(math.Cos(x * math.Pi / 2))
		gr := float32(math.Sin(x * math.Pi / 2))
		for i := range l {
			l[i] += r[i] * gl
			r[i] *= gr
		}
	} else {
		gl := float32(math.Cos(pan * math.Pi / 2))
		gr := float32(math.Sin(pan * math.Pi / 2))
		for i := range l {
			nl := l[i] * gl
			r[i] += l[i] * gr
			l[i] = nl
		}
	}
}

type level struct {
	gain float32
}

func newLevel() *level {
	return &level{gain: 1}
}

func (u *level) ID() rumpu.EffectID { return rumpu.EffectLevel }
func (u *level) Idle(int)           {}

func (u *level) Process(l, r []float32) {
	if u.gain == 1 {
		return
	}
	vek32.MulNumber_Inplace(l, u.gain)
	vek32.MulNumber_Inplace(r, u.gain)
}
