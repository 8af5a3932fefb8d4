package engine_test

import (
	"math"
	"testing"

	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/engine"
)

func TestRecorderCaptureAndPlayback(t *testing.T) {
	var rec engine.Recorder
	rec.Record(0, 100)
	if got := rec.State(0); got != engine.ClipRecording {
		t.Fatalf("state after record: %v, want recording", got)
	}
	buf := make(rumpu.AudioBuffer, 60)
	for i := range buf {
		buf[i] = [2]float32{float32(i) / 100, -float32(i) / 100}
	}
	if finished := rec.Tap(buf); finished != 0 {
		t.Fatalf("capture finished after 60 of 100 frames")
	}
	if finished := rec.Tap(buf); finished != 1 {
		t.Fatalf("capture did not finish: bitmask %v, want 1", finished)
	}
	if got := rec.State(0); got != engine.ClipStopped {
		t.Fatalf("state after capture: %v, want stopped", got)
	}
	if got, want := rec.Seconds(0), 100.0/rumpu.SampleRate; math.Abs(got-want) > 1e-9 {
		t.Fatalf("clip length %v s, want %v s", got, want)
	}
	rec.Play(0)
	if got := rec.State(0); got != engine.ClipPlaying {
		t.Fatalf("state after play: %v, want playing", got)
	}
	// the clip is 100 frames: the first 60 of the ramp, then its first
	// 40 again; mixing 150 frames wraps back to the clip start at 100
	l := make([]float32, 150)
	r := make([]float32, 150)
	rec.Mix(l, r)
	if l[10] != float32(10)/100 || r[10] != -float32(10)/100 {
		t.Fatalf("frame 10: got %v/%v, want the captured ramp", l[10], r[10])
	}
	if l[60] != 0 {
		t.Fatalf("frame 60: got %v, want the second tap to start over at 0", l[60])
	}
	if l[100] != 0 || l[110] != float32(10)/100 {
		t.Fatalf("frames 100 and 110: got %v and %v, want the loop to wrap", l[100], l[110])
	}
	rec.Stop(0)
	if got := rec.State(0); got != engine.ClipStopped {
		t.Fatalf("state after stop: %v, want stopped", got)
	}
	rec.Clear(0)
	if got := rec.State(0); got != engine.ClipEmpty {
		t.Fatalf("state after clear: %v, want empty", got)
	}
	if got := rec.Seconds(0); got != 0 {
		t.Fatalf("cleared clip still %v s long", got)
	}
}

func TestRecorderIgnoresInvalidSlots(t *testing.T) {
	var rec engine.Recorder
	rec.Record(-1, 100)
	rec.Record(engine.NumClipSlots, 100)
	rec.Play(99)
	rec.Clear(-3)
	if got := rec.State(-1); got != engine.ClipEmpty {
		t.Fatalf("state of an invalid slot: %v, want empty", got)
	}
	buf := make(rumpu.AudioBuffer, 16)
	if finished := rec.Tap(buf); finished != 0 {
		t.Fatalf("an invalid slot captured audio: bitmask %v", finished)
	}
}

func TestRecorderPlayRequiresCapturedAudio(t *testing.T) {
	var rec engine.Recorder
	rec.Play(0) // empty
	if got := rec.State(0); got != engine.ClipEmpty {
		t.Fatalf("playing an empty slot: state %v, want empty", got)
	}
	rec.Record(0, 100)
	rec.Play(0) // still recording
	if got := rec.State(0); got != engine.ClipRecording {
		t.Fatalf("playing a recording slot: state %v, want recording", got)
	}
}

func TestRecorderMicrophoneUnsupported(t *testing.T) {
	var rec engine.Recorder
	if err := rec.EnableMicrophone(true); err == nil {
		t.Fatalf("enabling the microphone succeeded, want an error")
	}
	if err := rec.EnableMicrophone(false); err != nil {
		t.Fatalf("disabling the microphone: %v", err)
	}
}

// The player side of the capture: a RecordClipMsg captures 8 bars of 4
// beats from the moment the message is processed, and reports the clip
// stopped when done.
func TestClipCaptureThroughPlayer(t *testing.T) {
	broker := engine.NewBroker()
	p := engine.NewPlayer(broker, nil, testSession())
	engine.TrySend(broker.ToPlayer, any(engine.RecordClipMsg{Slot: 1}))
	frames := rumpu.LoopSamples(120, 4, 8)
	var states []engine.ClipStateMsg
	buffer := make(rumpu.AudioBuffer, 4096)
	for pos := 0; pos < frames+4096; pos += 4096 {
		p.Process(buffer, engine.NullMIDIContext{})
	drain:
		for {
			select {
			case msg := <-broker.ToUI:
				if m, ok := msg.Data.(engine.ClipStateMsg); ok {
					states = append(states, m)
				}
			default:
				break drain
			}
		}
	}
	if len(states) < 2 {
		t.Fatalf("got %v clip state messages, want at least the start and the finish", len(states))
	}
	if got := states[0]; got.Slot != 1 || got.State != engine.ClipRecording {
		t.Fatalf("first clip state: %+v, want slot 1 recording", got)
	}
	last := states[len(states)-1]
	if last.Slot != 1 || last.State != engine.ClipStopped {
		t.Fatalf("last clip state: %+v, want slot 1 stopped", last)
	}
	if want := float64(frames) / rumpu.SampleRate; math.Abs(last.Seconds-want) > 1e-9 {
		t.Fatalf("captured %v s, want %v s", last.Seconds, want)
	}
	engine.TrySend(broker.ToPlayer, any(engine.PlayClipMsg{Slot: 1}))
	p.Process(buffer, engine.NullMIDIContext{})
drainPlay:
	for {
		select {
		case msg := <-broker.ToUI:
			if m, ok := msg.Data.(engine.ClipStateMsg); ok {
				states = append(states, m)
			}
		default:
			break drainPlay
		}
	}
	if last := states[len(states)-1]; last.State != engine.ClipPlaying {
		t.Fatalf("clip state after play: %+v, want playing", last)
	}
}

// Exporting answers with the captured audio in a pooled buffer; an empty
// slot answers with a warning instead.
func TestClipExportThroughPlayer(t *testing.T) {
	broker := engine.NewBroker()
	p := engine.NewPlayer(broker, nil, testSession())
	engine.TrySend(broker.ToPlayer, any(engine.RecordClipMsg{Slot: 0}))
	frames := rumpu.LoopSamples(120, 4, 8)
	buffer := make(rumpu.AudioBuffer, 4096)
	for pos := 0; pos < frames+4096; pos += 4096 {
		p.Process(buffer, engine.NullMIDIContext{})
	}
	for len(broker.ToUI) > 0 {
		<-broker.ToUI
	}
	engine.TrySend(broker.ToPlayer, any(engine.ExportClipMsg{Slot: 0}))
	engine.TrySend(broker.ToPlayer, any(engine.ExportClipMsg{Slot: 3}))
	p.Process(buffer, engine.NullMIDIContext{})
	var audio *rumpu.AudioBuffer
	warned := false
drain:
	for {
		select {
		case msg := <-broker.ToUI:
			switch d := msg.Data.(type) {
			case engine.ClipAudioMsg:
				if d.Slot != 0 {
					t.Fatalf("clip audio for slot %v, want 0", d.Slot)
				}
				audio = d.Audio
			case engine.Alert:
				if d.Name == "Recording" && d.Priority == engine.Warning {
					warned = true
				}
			}
		default:
			break drain
		}
	}
	if audio == nil {
		t.Fatalf("no clip audio message arrived")
	}
	if len(*audio) != frames {
		t.Fatalf("exported %v frames, want %v", len(*audio), frames)
	}
	broker.PutAudioBuffer(audio)
	if !warned {
		t.Fatalf("exporting an empty slot did not warn")
	}
}
