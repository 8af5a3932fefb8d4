package dsp

import (
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/vsariola/rumpu"
)

const (
	reverbSeconds   = 2.8
	reverbExponent  = 2.5
	reverbSeed      = 20200527
	reverbBlockSize = 1024
	reverbFFTSize   = 2 * reverbBlockSize
)

type (
	// reverb convolves the carrier with a synthetic stereo impulse response,
	// partitioned into frequency-domain blocks so the cost per sample stays
	// flat regardless of the impulse length. The output is the wet signal
	// only. The convolution introduces one block (~23 ms) of pre-delay,
	// which reads as the early reflection gap of a room.
	reverb struct {
		conv [2]convolver
	}

	// convolver is the single-channel partitioned convolution engine: a
	// ring of past input spectra multiplied against the impulse partitions,
	// accumulated, inverse transformed and overlap-added.
	convolver struct {
		plan    *algofft.Plan[complex128]
		parts   [][]complex128 // impulse response partitions, frequency domain
		past    [][]complex128 // ring of past input block spectra
		pos     int            // ring index of the newest block
		inBuf   []float32
		inFill  int
		outBuf  []float32
		outPos  int
		tail    []float32
		tmp     []complex128
		acc     []complex128
		silence int // consecutive silent input blocks
	}
)

func newReverb() *reverb {
	plan, err := algofft.NewPlan64(reverbFFTSize)
	if err != nil {
		panic(err)
	}
	ir := reverbImpulse(reverbSeed)
	r := &reverb{}
	for chn := range r.conv {
		r.conv[chn].init(plan, ir[chn])
	}
	return r
}

// reverbImpulse builds the stereo impulse response: uniform noise with an
// exponent-shaped decay envelope, normalized to unit energy per channel.
func reverbImpulse(seed uint32) [2][]float32 {
	n := int(reverbSeconds * rumpu.SampleRate)
	rnd := newLCG(seed)
	var ir [2][]float32
	for chn := range ir {
		ir[chn] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		env := float32(math.Pow(1-float64(i)/float64(n), reverbExponent))
		for chn := range ir {
			ir[chn][i] = rnd.next() * env
		}
	}
	for chn := range ir {
		var energy float64
		for _, v := range ir[chn] {
			energy += float64(v) * float64(v)
		}
		gain := float32(1 / math.Sqrt(energy))
		for i := range ir[chn] {
			ir[chn][i] *= gain
		}
	}
	return ir
}

func (c *convolver) init(plan *algofft.Plan[complex128], ir []float32) {
	numParts := (len(ir) + reverbBlockSize - 1) / reverbBlockSize
	c.plan = plan
	c.parts = make([][]complex128, numParts)
	c.past = make([][]complex128, numParts)
	c.inBuf = make([]float32, reverbBlockSize)
	c.outBuf = make([]float32, reverbBlockSize)
	c.tail = make([]float32, reverbBlockSize)
	c.tmp = make([]complex128, reverbFFTSize)
	c.acc = make([]complex128, reverbFFTSize)
	c.silence = numParts
	for p := range c.parts {
		for i := range c.tmp {
			c.tmp[i] = 0
		}
		for i := p * reverbBlockSize; i < len(ir) && i < (p+1)*reverbBlockSize; i++ {
			c.tmp[i-p*reverbBlockSize] = complex(float64(ir[i]), 0)
		}
		c.parts[p] = make([]complex128, reverbFFTSize)
		if err := c.plan.Forward(c.parts[p], c.tmp); err != nil {
			panic(err)
		}
		c.past[p] = make([]complex128, reverbFFTSize)
	}
}

func (u *reverb) ID() rumpu.EffectID { return rumpu.EffectReverb }

func (u *reverb) Process(l, r []float32) {
	u.conv[0].process(l)
	u.conv[1].process(r)
}

// The convolution tail keeps playing out internally while the unit is
// unrouted, so re-enabling it mid-decay picks up whatever remains.
func (u *reverb) Idle(n int) {
	u.conv[0].idle(n)
	u.conv[1].idle(n)
}

// process replaces buf with the wet signal, one sample in, one sample out,
// with a one block internal latency.
func (c *convolver) process(buf []float32) {
	for i, x := range buf {
		buf[i] = c.outBuf[c.outPos]
		c.outPos++
		c.inBuf[c.inFill] = x
		c.inFill++
		if c.inFill == reverbBlockSize {
			c.processBlock()
		}
	}
}

func (c *convolver) idle(n int) {
	for ; n > 0; n-- {
		c.outPos++
		c.inBuf[c.inFill] = 0
		c.inFill++
		if c.inFill == reverbBlockSize {
			c.processBlock()
		}
	}
}

func (c *convolver) processBlock() {
	quiet := true
	for _, v := range c.inBuf {
		if v != 0 {
			quiet = false
			break
		}
	}
	if quiet {
		c.silence++
	} else {
		c.silence = 0
	}
	c.inFill = 0
	c.outPos = 0
	if c.silence >= len(c.parts) {
		// every spectrum in the ring is zero; skip the transforms
		for i := range c.outBuf {
			c.outBuf[i] = c.tail[i]
			c.tail[i] = 0
		}
		return
	}
	c.pos++
	if c.pos >= len(c.past) {
		c.pos = 0
	}
	x := c.past[c.pos]
	for i := 0; i < reverbBlockSize; i++ {
		c.tmp[i] = complex(float64(c.inBuf[i]), 0)
	}
	for i := reverbBlockSize; i < reverbFFTSize; i++ {
		c.tmp[i] = 0
	}
	if err := c.plan.Forward(x, c.tmp); err != nil {
		panic(err)
	}
	for i := range c.acc {
		c.acc[i] = 0
	}
	for p := range c.parts {
		idx := c.pos - p
		if idx < 0 {
			idx += len(c.past)
		}
		past, part := c.past[idx], c.parts[p]
		for i := range c.acc {
			c.acc[i] += past[i] * part[i]
		}
	}
	c.inverse(c.tmp, c.acc)
	for i := 0; i < reverbBlockSize; i++ {
		c.outBuf[i] = float32(real(c.tmp[i])) + c.tail[i]
		c.tail[i] = float32(real(c.tmp[reverbBlockSize+i]))
	}
}

// inverse computes the inverse transform with the forward plan, using
// IFFT(x) = conj(FFT(conj(x)))/N. src is clobbered.
func (c *convolver) inverse(dst, src []complex128) {
	for i := range src {
		src[i] = cmplx.Conj(src[i])
	}
	if err := c.plan.Forward(dst, src); err != nil {
		panic(err)
	}
	scale := complex(1/float64(len(src)), 0)
	for i := range dst {
		dst[i] = cmplx.Conj(dst[i]) * scale
	}
}
