package oto

import (
	"math"

	"github.com/vsariola/rumpu"
)

// FloatBufferTo16BitLE converts a stereo float buffer to interleaved
// 16-bit little-endian samples, appending them to the to slice. Values
// outside [-1, 1] are clamped.
func FloatBufferTo16BitLE(buffer rumpu.AudioBuffer, to []byte) []byte {
	for _, frame := range buffer {
		for _, v := range frame {
			var s int16
			if v < -1.0 {
				s = -math.MaxInt16
			} else if v > 1.0 {
				s = math.MaxInt16
			} else {
				s = int16(v * math.MaxInt16)
			}
			to = append(to, byte(s), byte(s>>8))
		}
	}
	return to
}
