package dsp

import (
	"math"

	"github.com/vsariola/rumpu"
)

// GuardFrames is how long after a voice's envelope has finished the voice is
// still kept connected, so the stop is guaranteed to have rendered before
// the voice is released.
const GuardFrames = rumpu.SampleRate / 20 // 50 ms

// every snare plays the same noise, as if reading a prerendered buffer
const noiseSeed = 19

const (
	kickSeconds  = 0.5
	snareSeconds = 0.2
	bassSeconds  = 0.5
	chordSeconds = 1.0
)

type (
	// Voice is the short-lived generator+envelope group for one triggered
	// sound event. It renders additively into planar stereo buffers between
	// its start and end frames and is released by the engine GuardFrames
	// after the end. A voice's generators and envelopes are entirely its
	// own; routing changes never touch them.
	Voice struct {
		kind  rumpu.TrackKind
		start int64
		end   int64
		oscs  []osc
	}

	osc struct {
		shape    waveform
		phase    float64
		freq     float64
		glide    float64 // per-frame frequency multiplier, 1 when fixed
		amp      float64
		decay    float64 // per-frame amplitude multiplier
		rnd      lcg
		filter   biquadCoeff
		fstate   biquadState
		filtered bool
	}

	waveform int
)

const (
	sineWave waveform = iota
	squareWave
	noiseWave
)

// Trigger builds the voice for one sound event of the given track kind,
// scheduled at the absolute frame when. volume is floored to Epsilon before
// it seeds the exponential decay. pitched doubles the oscillator frequencies
// of the kinds that listen to it (bass and chord); it is captured here, at
// trigger time, so a later toggle never bends a sounding voice.
func Trigger(kind rumpu.TrackKind, when int64, volume float32, pitched bool) *Voice {
	v := &Voice{kind: kind, start: when}
	switch kind {
	case rumpu.KindKick:
		v.end = when + int64(kickSeconds*rumpu.SampleRate)
		v.oscs = []osc{{
			shape: sineWave,
			freq:  150,
			glide: expCoef(150, 0.001, kickSeconds),
			amp:   epsFloor(volume),
			decay: expCoef(epsFloor(volume), Epsilon, kickSeconds),
		}}
	case rumpu.KindSnare:
		v.end = when + int64(snareSeconds*rumpu.SampleRate)
		v.oscs = []osc{{
			shape:    noiseWave,
			glide:    1,
			rnd:      newLCG(noiseSeed),
			amp:      epsFloor(volume),
			decay:    expCoef(epsFloor(volume), Epsilon, snareSeconds),
			filter:   highpassCoeffs(1000, math.Sqrt2/2),
			filtered: true,
		}}
	case rumpu.KindBass:
		freq := 55.0
		if pitched {
			freq *= 2
		}
		v.end = when + int64(bassSeconds*rumpu.SampleRate)
		v.oscs = []osc{{
			shape: squareWave,
			freq:  freq,
			glide: 1,
			amp:   epsFloor(volume * 0.5),
			decay: expCoef(epsFloor(volume*0.5), Epsilon, bassSeconds),
		}}
	case rumpu.KindChord:
		v.end = when + int64(chordSeconds*rumpu.SampleRate)
		for _, freq := range [3]float64{261.63, 329.63, 392.00} {
			if pitched {
				freq *= 2
			}
			v.oscs = append(v.oscs, osc{
				shape: sineWave,
				freq:  freq,
				glide: 1,
				amp:   epsFloor(volume * 0.25),
				decay: expCoef(epsFloor(volume*0.25), Epsilon, chordSeconds),
			})
		}
	}
	return v
}

func epsFloor(volume float32) float64 {
	return math.Max(float64(volume), Epsilon)
}

func (v *Voice) Kind() rumpu.TrackKind { return v.kind }
func (v *Voice) Start() int64          { return v.start }
func (v *Voice) End() int64            { return v.end }

// ReleaseAt is the absolute frame after which the voice may be removed.
func (v *Voice) ReleaseAt() int64 { return v.end + GuardFrames }

// Frequencies returns the current frequency of each generator.
func (v *Voice) Frequencies() []float64 {
	freqs := make([]float64, len(v.oscs))
	for i := range v.oscs {
		freqs[i] = v.oscs[i].freq
	}
	return freqs
}

// Render adds the voice into the stereo buffer whose first frame is bufStart,
// clipping to the overlap of the buffer and the voice's start..end window.
// Buffers must be rendered in order for the envelopes to stay on schedule.
func (v *Voice) Render(l, r []float32, bufStart int64) {
	lo := v.start - bufStart
	if lo < 0 {
		lo = 0
	}
	hi := v.end - bufStart
	if hi > int64(len(l)) {
		hi = int64(len(l))
	}
	for i := lo; i < hi; i++ {
		var sum float32
		for j := range v.oscs {
			sum += v.oscs[j].sample()
		}
		l[i] += sum
		r[i] += sum
	}
}

func (o *osc) sample() float32 {
	var raw float32
	switch o.shape {
	case sineWave:
		raw = float32(math.Sin(2 * math.Pi * o.phase))
	case squareWave:
		if o.phase < 0.5 {
			raw = 1
		} else {
			raw = -1
		}
	case noiseWave:
		raw = o.rnd.next()
	}
	o.phase += o.freq / rumpu.SampleRate
	if o.phase >= 1 {
		o.phase -= 1
	}
	o.freq *= o.glide
	if o.filtered {
		c, s := &o.filter, &o.fstate
		y := c.b0*raw + c.b1*s.x1 + c.b2*s.x2 - c.a1*s.y1 - c.a2*s.y2
		s.x2, s.x1 = s.x1, raw
		s.y2, s.y1 = s.y1, y
		raw = y
	}
	out := raw * float32(o.amp)
	o.amp *= o.decay
	return out
}
