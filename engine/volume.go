package engine

import (
	"errors"
	"math"

	"github.com/vsariola/rumpu"
)

type (
	// Volume is an average volume in decibels (dBFS) for the left and
	// right channels, so a full scale sine wave sits around -3 dB.
	Volume [2]float64

	// VolumeAnalyzer measures the volume of the master output, with
	// exponential smoothing of the attack and release.
	VolumeAnalyzer struct {
		Level   Volume  // current level of the left and right channels
		Attack  float64 // attack time constant in seconds
		Release float64 // release time constant in seconds
		Min     float64 // minimum level in decibels
		Max     float64 // maximum level in decibels
	}
)

var errNaN = errors.New("NaN detected in master output")

// NewVolumeAnalyzer returns a VolumeAnalyzer with the smoothing constants
// used for the master meters.
func NewVolumeAnalyzer() *VolumeAnalyzer {
	return &VolumeAnalyzer{
		Level:   Volume{-100, -100},
		Attack:  0.3,
		Release: 0.3,
		Min:     -100,
		Max:     20,
	}
}

// Update updates the Level of the volume analyzer, by analyzing the given
// buffer. Returns errNaN if NaNs were detected, but the Level is updated
// from the remaining samples and the analyzer stays usable.
func (v *VolumeAnalyzer) Update(buffer rumpu.AudioBuffer) (err error) {
	// from https://en.wikipedia.org/wiki/Exponential_smoothing
	alphaAttack := 1 - math.Exp(-1.0/(v.Attack*rumpu.SampleRate))
	alphaRelease := 1 - math.Exp(-1.0/(v.Release*rumpu.SampleRate))
	for chn := range 2 {
		level := v.Level[chn]
		for i := range buffer {
			sample2 := float64(buffer[i][chn]) * float64(buffer[i][chn])
			if math.IsNaN(sample2) {
				if err == nil {
					err = errNaN
				}
				continue
			}
			dB := 10 * math.Log10(sample2)
			if dB < v.Min || math.IsNaN(dB) {
				dB = v.Min
			}
			if dB > v.Max {
				dB = v.Max
			}
			alpha := alphaRelease
			if dB > level {
				alpha = alphaAttack
			}
			level += (dB - level) * alpha
		}
		v.Level[chn] = level
	}
	return err
}
