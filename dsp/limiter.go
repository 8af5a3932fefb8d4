package dsp

import (
	"math"

	"github.com/vsariola/rumpu"
)

// Limiter caps the master output at Threshold. A peak envelope follows the
// larger channel magnitude with the Attack time constant on the way up and
// Release on the way down; whenever the envelope exceeds the threshold, both
// channels are scaled by threshold/envelope. Below the threshold the samples
// pass through untouched.
type Limiter struct {
	Threshold float32
	Attack    float64 // attack time constant in seconds
	Release   float64 // release time constant in seconds
	peak      float64
}

func NewLimiter() *Limiter {
	return &Limiter{Threshold: 0.95, Attack: 1.5e-3, Release: 0.05}
}

func (lim *Limiter) Process(l, r []float32) {
	// from https://en.wikipedia.org/wiki/Exponential_smoothing
	alphaAttack := 1 - math.Exp(-1.0/(lim.Attack*rumpu.SampleRate))
	alphaRelease := 1 - math.Exp(-1.0/(lim.Release*rumpu.SampleRate))
	threshold := float64(lim.Threshold)
	peak := lim.peak
	for i := range l {
		env := math.Max(math.Abs(float64(l[i])), math.Abs(float64(r[i])))
		a := alphaRelease
		if env > peak {
			a = alphaAttack
		}
		peak += (env - peak) * a
		if peak > threshold {
			g := float32(threshold / peak)
			l[i] *= g
			r[i] *= g
		}
	}
	lim.peak = peak
}
