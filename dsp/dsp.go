// Package dsp implements the signal processing of the drum machine: the
// statically allocated effect units, the ephemeral note voices and the
// master limiter. Everything works on planar stereo buffers (two []float32
// slices of equal length), at the fixed rumpu.SampleRate. The units never
// allocate while processing.
package dsp

import (
	"math"

	"github.com/vsariola/rumpu"
)

// Epsilon is the floor applied to every value used as the start or end of an
// exponential ramp. Exponential ramps toward zero or negative values are
// invalid, so volumes and glide targets are clamped to this before use.
const Epsilon = 1e-4

const framesPerMs = float64(rumpu.SampleRate) / 1000

type (
	// lcg is the pseudorandom generator used for noise voices and the
	// reverb impulse response. A multiplicative congruential generator is
	// plenty for audio noise and keeps the output reproducible for the
	// golden tests.
	lcg struct {
		seed uint32
	}

	// lfo is a low frequency sine oscillator used as a modulation source
	// inside the effect units. The modulators start running at unit
	// construction and keep their phase advancing even when the unit is not
	// routed, so re-enabling an effect resumes the sweep where it would
	// have been.
	lfo struct {
		phase float64
		inc   float64
	}

	biquadCoeff struct {
		b0, b1, b2, a1, a2 float32
	}

	biquadState struct {
		x1, x2, y1, y2 float32
	}
)

func newLCG(seed uint32) lcg { return lcg{seed: seed} }

func (n *lcg) next() float32 {
	n.seed *= 16007
	return float32(int32(n.seed)) / -2147483648.0
}

func newLFO(freq float64) lfo {
	return lfo{inc: freq / rumpu.SampleRate}
}

func (l *lfo) next() float64 {
	v := math.Sin(2 * math.Pi * l.phase)
	l.phase += l.inc
	if l.phase >= 1 {
		l.phase -= 1
	}
	return v
}

// skip advances the phase by n frames without producing output; used to keep
// a bypassed unit's modulation running.
func (l *lfo) skip(n int) {
	l.phase += l.inc * float64(n)
	l.phase -= math.Floor(l.phase)
}

// Filter runs the biquad over the buffer in place, direct form 1.
func (state *biquadState) Filter(buffer []float32, coeff biquadCoeff) {
	s := *state
	for i := 0; i < len(buffer); i++ {
		x := buffer[i]
		y := coeff.b0*x + coeff.b1*s.x1 + coeff.b2*s.x2 - coeff.a1*s.y1 - coeff.a2*s.y2
		s.x2, s.x1 = s.x1, x
		s.y2, s.y1 = s.y1, y
		buffer[i] = y
	}
	*state = s
}

// lowpassCoeffs returns RBJ cookbook lowpass coefficients, normalized so that
// a0 = 1.
func lowpassCoeffs(freq, q float64) biquadCoeff {
	w0 := 2 * math.Pi * freq / rumpu.SampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	a0 := 1 + alpha
	return biquadCoeff{
		b0: float32((1 - cosw0) / 2 / a0),
		b1: float32((1 - cosw0) / a0),
		b2: float32((1 - cosw0) / 2 / a0),
		a1: float32(-2 * cosw0 / a0),
		a2: float32((1 - alpha) / a0),
	}
}

func highpassCoeffs(freq, q float64) biquadCoeff {
	w0 := 2 * math.Pi * freq / rumpu.SampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	a0 := 1 + alpha
	return biquadCoeff{
		b0: float32((1 + cosw0) / 2 / a0),
		b1: float32(-(1 + cosw0) / a0),
		b2: float32((1 + cosw0) / 2 / a0),
		a1: float32(-2 * cosw0 / a0),
		a2: float32((1 - alpha) / a0),
	}
}

// expCoef returns the per-frame multiplier that takes a value from `from` to
// `to` in `seconds`, both floored to Epsilon. This is the discrete version
// of an exponential ramp between two strictly positive values.
func expCoef(from, to, seconds float64) float64 {
	if from < Epsilon {
		from = Epsilon
	}
	if to < Epsilon {
		to = Epsilon
	}
	return math.Pow(to/from, 1/(seconds*rumpu.SampleRate))
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}

// delayLine is a simple circular buffer with linear interpolated reads, used
// by the chorus, flanger and echo units.
type delayLine struct {
	buffer []float32
	pos    int
}

func newDelayLine(maxFrames int) delayLine {
	return delayLine{buffer: make([]float32, maxFrames)}
}

func (d *delayLine) write(sample float32) {
	d.buffer[d.pos] = sample
	d.pos++
	if d.pos >= len(d.buffer) {
		d.pos = 0
	}
}

// read returns the sample delay frames before the current write position,
// with linear interpolation for fractional delays. delay is clamped to the
// line length.
func (d *delayLine) read(delay float64) float32 {
	if delay < 1 {
		delay = 1
	}
	if max := float64(len(d.buffer) - 2); delay > max {
		delay = max
	}
	intpart := int(delay)
	frac := float32(delay - float64(intpart))
	i0 := d.pos - intpart
	if i0 < 0 {
		i0 += len(d.buffer)
	}
	i1 := i0 - 1
	if i1 < 0 {
		i1 += len(d.buffer)
	}
	return d.buffer[i0]*(1-frac) + d.buffer[i1]*frac
}
