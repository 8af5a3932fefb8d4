package dsp_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/dsp"
)

const errorThreshold = 1e-2

func sineBuffer(freq float64, amplitude float32, n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = amplitude * float32(math.Sin(2*math.Pi*freq*float64(i)/rumpu.SampleRate))
	}
	return buf
}

func rms(buf []float32) float64 {
	var sum float64
	for _, v := range buf {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func TestFiltersTransparentAtExtremes(t *testing.T) {
	for _, id := range []rumpu.EffectID{rumpu.EffectHighpass, rumpu.EffectLowpass} {
		bank := dsp.NewBank()
		l := sineBuffer(1000, 0.5, 8192)
		r := sineBuffer(1000, 0.5, 8192)
		want := rms(l[1024:])
		bank.Process([]rumpu.EffectID{id}, l, r)
		got := rms(l[1024:])
		if math.Abs(got-want) > 1e-3*want {
			t.Errorf("%v at its extreme cutoff changed the signal level from %v to %v", id, want, got)
		}
	}
}

func TestPannerCenterIsTransparent(t *testing.T) {
	bank := dsp.NewBank()
	l := sineBuffer(440, 0.7, 2048)
	r := sineBuffer(660, 0.3, 2048)
	wantL := append([]float32(nil), l...)
	wantR := append([]float32(nil), r...)
	bank.Process([]rumpu.EffectID{rumpu.EffectPanner}, l, r)
	if !reflect.DeepEqual(l, wantL) || !reflect.DeepEqual(r, wantR) {
		t.Fatalf("center-panned signal was modified")
	}
}

func TestLevelUnityIsTransparent(t *testing.T) {
	bank := dsp.NewBank()
	l := sineBuffer(440, 0.7, 2048)
	r := sineBuffer(440, 0.7, 2048)
	want := append([]float32(nil), l...)
	bank.Process([]rumpu.EffectID{rumpu.EffectLevel}, l, r)
	if !reflect.DeepEqual(l, want) {
		t.Fatalf("unity level stage modified the signal")
	}
}

func TestDistortionFollowsCurve(t *testing.T) {
	curve := func(x float64) float64 {
		const k = 50
		return (3 + k) * x * 20 * (math.Pi / 180) / (math.Pi + k*math.Abs(x))
	}
	for _, x := range []float32{0.1, 0.5, -0.5, 0.9} {
		bank := dsp.NewBank()
		n := 2048
		l := make([]float32, n)
		r := make([]float32, n)
		for i := range l {
			l[i] = x
			r[i] = x
		}
		bank.Process([]rumpu.EffectID{rumpu.EffectDistortion}, l, r)
		want := curve(float64(x))
		got := float64(l[n-1])
		if math.Abs(got-want) > 2*errorThreshold {
			t.Errorf("steady state response to %v: got %v, want %v", x, got, want)
		}
	}
}

func TestTremoloSweepsFullGainRange(t *testing.T) {
	bank := dsp.NewBank()
	n := rumpu.SampleRate / 2
	l := make([]float32, n)
	r := make([]float32, n)
	for i := range l {
		l[i] = 1
		r[i] = 1
	}
	bank.Process([]rumpu.EffectID{rumpu.EffectTremolo}, l, r)
	minv, maxv := float32(1), float32(0)
	for _, v := range l {
		minv = min(minv, v)
		maxv = max(maxv, v)
	}
	if minv < -1e-6 || maxv > 1+1e-6 {
		t.Fatalf("tremolo gain left the valid range: min %v, max %v", minv, maxv)
	}
	if minv > 0.05 || maxv < 0.95 {
		t.Fatalf("tremolo barely modulated: min %v, max %v", minv, maxv)
	}
}

// A unit left out of the chain must advance its modulator phase exactly as
// if it had been processing, so that re-enabling it resumes mid-sweep.
func TestBypassedUnitKeepsModulatorPhase(t *testing.T) {
	const chunk = 512
	dc := func() []float32 {
		buf := make([]float32, chunk)
		for i := range buf {
			buf[i] = 1
		}
		return buf
	}
	tremolo := []rumpu.EffectID{rumpu.EffectTremolo}

	contBank := dsp.NewBank()
	contL, contR := dc(), dc()
	contBank.Process(tremolo, contL, contR)
	contL, contR = dc(), dc()
	contBank.Process(tremolo, contL, contR)

	idleBank := dsp.NewBank()
	idleL, idleR := dc(), dc()
	idleBank.Process(nil, idleL, idleR)
	idleL, idleR = dc(), dc()
	idleBank.Process(tremolo, idleL, idleR)

	for i := range contL {
		if math.Abs(float64(contL[i]-idleL[i])) > 1e-4 {
			t.Fatalf("gain diverged at sample %v: %v vs %v", i, contL[i], idleL[i])
		}
	}
}

// The echo loop is wired permanently: repeats keep circulating and decaying
// even while the unit is not routed.
func TestEchoRepeatsSurviveBypass(t *testing.T) {
	const chunk = 4410 // the echo delay is exactly 3 chunks
	echo := []rumpu.EffectID{rumpu.EffectEcho}
	bank := dsp.NewBank()
	out := make([]float32, 0, 7*chunk)
	for i := 0; i < 7; i++ {
		l := make([]float32, chunk)
		r := make([]float32, chunk)
		if i == 0 {
			l[0], r[0] = 1, 1
		}
		chain := echo
		if i >= 1 && i <= 3 {
			chain = nil // bypass over the first repeat
		}
		bank.Process(chain, l, r)
		out = append(out, l...)
	}
	if math.Abs(float64(out[0]-1)) > 1e-6 {
		t.Fatalf("dry impulse missing: got %v", out[0])
	}
	// the first repeat at 3 chunks fell into the bypass window; the second
	// repeat must still arrive on schedule, attenuated by the feedback gain
	if got := float64(out[6*chunk]); math.Abs(got-0.33) > 1e-3 {
		t.Fatalf("second repeat: got %v, want 0.33", got)
	}
}

func TestEchoFeedbackDecay(t *testing.T) {
	bank := dsp.NewBank()
	n := 3*13230 + 100
	l := make([]float32, n)
	r := make([]float32, n)
	l[0], r[0] = 1, 1
	bank.Process([]rumpu.EffectID{rumpu.EffectEcho}, l, r)
	repeats := []struct {
		pos  int
		want float64
	}{
		{13230, 1},
		{2 * 13230, 0.33},
		{3 * 13230, 0.33 * 0.33},
	}
	for _, re := range repeats {
		if got := float64(l[re.pos]); math.Abs(got-re.want) > 1e-3 {
			t.Errorf("repeat at %v: got %v, want %v", re.pos, got, re.want)
		}
	}
}
