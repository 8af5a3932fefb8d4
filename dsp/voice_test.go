package dsp_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/dsp"
)

func TestTriggerFrequencies(t *testing.T) {
	tests := []struct {
		kind    rumpu.TrackKind
		pitched bool
		want    []float64
	}{
		{rumpu.KindKick, false, []float64{150}},
		{rumpu.KindKick, true, []float64{150}}, // the kick ignores the pitch toggle
		{rumpu.KindBass, false, []float64{55}},
		{rumpu.KindBass, true, []float64{110}},
		{rumpu.KindChord, false, []float64{261.63, 329.63, 392.00}},
		{rumpu.KindChord, true, []float64{523.26, 659.26, 784.00}},
	}
	for _, test := range tests {
		v := dsp.Trigger(test.kind, 0, 1, test.pitched)
		got := v.Frequencies()
		if len(got) != len(test.want) {
			t.Fatalf("%v pitched=%v: got %v generators, want %v", test.kind, test.pitched, len(got), len(test.want))
		}
		for i := range got {
			if math.Abs(got[i]-test.want[i]) > 1e-9 {
				t.Errorf("%v pitched=%v generator %v: got %v Hz, want %v Hz", test.kind, test.pitched, i, got[i], test.want[i])
			}
		}
	}
}

func TestVoiceDurations(t *testing.T) {
	tests := []struct {
		kind   rumpu.TrackKind
		frames int64
	}{
		{rumpu.KindKick, 22050},
		{rumpu.KindSnare, 8820},
		{rumpu.KindBass, 22050},
		{rumpu.KindChord, 44100},
	}
	for _, test := range tests {
		v := dsp.Trigger(test.kind, 1000, 1, false)
		if got := v.End() - v.Start(); got != test.frames {
			t.Errorf("%v duration: got %v frames, want %v", test.kind, got, test.frames)
		}
		if got := v.ReleaseAt() - v.End(); got != dsp.GuardFrames {
			t.Errorf("%v guard: got %v frames, want %v", test.kind, got, dsp.GuardFrames)
		}
	}
}

func TestKickDecaysToSilence(t *testing.T) {
	v := dsp.Trigger(rumpu.KindKick, 0, 1, false)
	n := 24255
	l := make([]float32, n)
	r := make([]float32, n)
	v.Render(l, r, 0)
	var head float32
	for _, s := range l[:2000] {
		head = max(head, float32(math.Abs(float64(s))))
	}
	if head < 0.5 {
		t.Fatalf("kick opened too quiet: peak %v", head)
	}
	var tail float32
	for _, s := range l[19845:22050] {
		tail = max(tail, float32(math.Abs(float64(s))))
	}
	if tail > 2e-3 {
		t.Fatalf("kick tail still audible: peak %v", tail)
	}
	for i := 22050; i < n; i++ {
		if l[i] != 0 {
			t.Fatalf("kick produced output at %v, after its stop frame", i)
		}
	}
}

func TestVoiceRenderSplitsAcrossBuffers(t *testing.T) {
	whole := dsp.Trigger(rumpu.KindKick, 300, 1, false)
	wl := make([]float32, 23040)
	wr := make([]float32, 23040)
	whole.Render(wl, wr, 0)

	split := dsp.Trigger(rumpu.KindKick, 300, 1, false)
	sl := make([]float32, 23040)
	sr := make([]float32, 23040)
	for pos := 0; pos < len(sl); pos += 512 {
		split.Render(sl[pos:pos+512], sr[pos:pos+512], int64(pos))
	}
	if !reflect.DeepEqual(wl, sl) || !reflect.DeepEqual(wr, sr) {
		t.Fatalf("chunked render differs from whole-buffer render")
	}
	for i := 0; i < 300; i++ {
		if wl[i] != 0 {
			t.Fatalf("voice sounded at %v, before its scheduled frame 300", i)
		}
	}
	if wl[300] == 0 && wl[301] == 0 && wl[302] == 0 {
		t.Fatalf("voice did not start at its scheduled frame")
	}
}

func TestSnareIsReproducible(t *testing.T) {
	render := func() []float32 {
		v := dsp.Trigger(rumpu.KindSnare, 0, 1, false)
		l := make([]float32, 8820)
		r := make([]float32, 8820)
		v.Render(l, r, 0)
		return l
	}
	a, b := render(), render()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two snare hits rendered differently")
	}
	var mean, energy float64
	for _, s := range a[:2205] {
		mean += float64(s)
		energy += float64(s) * float64(s)
	}
	mean /= 2205
	if math.Abs(mean) > 0.01 {
		t.Errorf("highpassed noise has a DC offset: %v", mean)
	}
	if math.Sqrt(energy/2205) < 0.05 {
		t.Errorf("snare has too little energy in its first 50 ms")
	}
}

func TestBassSquarePolarity(t *testing.T) {
	v := dsp.Trigger(rumpu.KindBass, 0, 1, false)
	l := make([]float32, 1000)
	r := make([]float32, 1000)
	v.Render(l, r, 0)
	if l[0] <= 0 {
		t.Fatalf("square wave should open positive, got %v", l[0])
	}
	// half a period of 55 Hz is ~401 frames
	if l[450] >= 0 {
		t.Fatalf("square wave should have flipped negative by frame 450, got %v", l[450])
	}
}

func TestVolumeFlooredBeforeExponentialRamp(t *testing.T) {
	// a zero volume must not produce NaNs or infinities in the envelope
	v := dsp.Trigger(rumpu.KindKick, 0, 0, false)
	l := make([]float32, 22050)
	r := make([]float32, 22050)
	v.Render(l, r, 0)
	for i, s := range l {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatalf("invalid sample %v at %v", s, i)
		}
		if math.Abs(float64(s)) > 2e-4 {
			t.Fatalf("zero-volume voice is audible: %v at %v", s, i)
		}
	}
}
