package engine

import (
	"container/heap"
	"errors"
	"fmt"
	"time"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/dsp"
)

type (
	// Player is the audio side of the drum machine: it renders the
	// triggered voices through the routed effect chains into the master
	// bus, ticks the step sequencer and retires voices whose teardown
	// deadline has passed. Process is called by the audio backend; all
	// the communication in and out of the player goes through the broker
	// channels, so the player never blocks on the UI.
	Player struct {
		session rumpu.Session // the player's own copy of the session
		router  *Router
		voices  voiceQueue
		limiter *dsp.Limiter
		volume  *VolumeAnalyzer
		rec     Recorder

		playing   bool
		step      int   // the step index the next tick will fire
		highlight int   // the step index the UI should highlight, -1 for none
		untilTick int   // frames until the next tick is due
		frame     int64 // the absolute frame at the start of the render window

		ml, mr  []float32 // master bus scratch
		cpuLoad float64

		audio  rumpu.AudioContext // used only to resume a suspended backend
		broker *Broker
	}

	// PlayerProcessContext carries the frame-stamped MIDI events of one
	// Process call.
	PlayerProcessContext interface {
		// NextEvent returns the next MIDI event with Frame <= frame,
		// consuming it; ok is false when no event is due by then.
		NextEvent(frame int64) (event MIDINoteEvent, ok bool)

		// EventDeadline returns the frame of the earliest pending event,
		// so the player can end its render window there and handle the
		// event sample-accurately. ok is false when nothing is pending.
		EventDeadline() (frame int64, ok bool)

		// FinishBlock tells the context that the player has rendered up
		// to the given frame, so it can keep its clock in sync and drop
		// stale events.
		FinishBlock(frame int64)
	}

	// MIDINoteEvent is a MIDI note on/off, frame-stamped against the
	// player's sample clock.
	MIDINoteEvent struct {
		Frame    int64
		On       bool
		Channel  int
		Note     byte
		Velocity byte
	}
)

var (
	ErrBackendUnavailable = errors.New("audio backend is unavailable")
	ErrBackendSuspended   = errors.New("audio backend is suspended")
)

// Captured loops default to 8 bars of 4 beats at the current tempo.
const (
	recordBeatsPerBar = 4
	recordBars        = 8
)

// numRenderTries is how many render windows one Process call may take;
// only a bug could need more, so past this we bail out instead of looping
// forever inside the audio callback.
const numRenderTries = 10000

func NewPlayer(broker *Broker, audio rumpu.AudioContext, session rumpu.Session) *Player {
	s := session.Copy()
	s.BPM = rumpu.ClampBPM(s.BPM)
	return &Player{
		broker:    broker,
		audio:     audio,
		session:   s,
		router:    NewRouter(s.Routing, s.EffectSet(), len(s.Tracks)),
		limiter:   dsp.NewLimiter(),
		volume:    NewVolumeAnalyzer(),
		highlight: -1,
	}
}

// Process renders len(buffer) frames of audio. It first drains the
// pending messages, so every mutation lands between render windows and a
// toggle can never leave a half-rebuilt route for the voices of a tick.
// The rendering advances in windows bounded by the next tick and the next
// MIDI event.
func (p *Player) Process(buffer rumpu.AudioBuffer, context PlayerProcessContext) {
	startTime := time.Now()
	frames := len(buffer)
	defer func() {
		if r := recover(); r != nil {
			// a crash in the DSP code must not take the audio goroutine
			// down: drop everything, go silent and tell the user
			p.voices = p.voices[:0]
			p.stop()
			buffer.Fill([2]float32{})
			p.SendAlert("PlayerCrash", fmt.Sprintf("player crashed: %v", r), Error)
			p.send(nil)
		}
	}()
	p.processMessages()
	for tries := 0; len(buffer) > 0; tries++ {
		if tries >= numRenderTries {
			buffer.Fill([2]float32{})
			p.SendAlert("PlayerLoop", "player was stuck in the render loop", Error)
			break
		}
		if p.playing && p.untilTick <= 0 {
			p.tick()
		}
		for ev, ok := context.NextEvent(p.frame); ok; ev, ok = context.NextEvent(p.frame) {
			p.handleMIDI(ev)
		}
		n := len(buffer)
		if p.playing {
			n = min(n, p.untilTick)
		}
		if deadline, ok := context.EventDeadline(); ok {
			n = min(n, int(deadline-p.frame))
		}
		if n <= 0 {
			n = 1
		}
		p.render(buffer[:n])
		buffer = buffer[n:]
		p.frame += int64(n)
		if p.playing {
			p.untilTick -= n
		}
		context.FinishBlock(p.frame)
		p.send(nil)
	}
	elapsed := float64(time.Since(startTime)) / float64(time.Second)
	p.cpuLoad = elapsed / (float64(frames) / rumpu.SampleRate)
}

// render renders one window: the voices sum into their buses, the buses
// run their routed units and sum into the master, and the master goes
// through the clip playback, the limiter, the meters and the recording
// tap.
func (p *Player) render(buffer rumpu.AudioBuffer) {
	n := len(buffer)
	p.router.begin(n)
	for _, pv := range p.voices {
		b := p.router.busFor(pv.track)
		pv.voice.Render(b.l, b.r, p.frame)
	}
	setSliceLength(&p.ml, n)
	setSliceLength(&p.mr, n)
	vek32.Zeros_Into(p.ml, n)
	vek32.Zeros_Into(p.mr, n)
	for _, b := range p.router.buses {
		b.process(p.ml, p.mr)
	}
	p.rec.Mix(p.ml, p.mr)
	p.limiter.Process(p.ml, p.mr)
	for i := range buffer {
		buffer[i] = [2]float32{p.ml[i], p.mr[i]}
	}
	if err := p.volume.Update(buffer); err != nil {
		p.SendAlert("VolumeAnalyzer", err.Error(), Warning)
	}
	if finished := p.rec.Tap(buffer); finished != 0 {
		for slot := range NumClipSlots {
			if finished&(1<<slot) != 0 {
				p.sendClipState(slot)
				p.SendAlert("Recording", fmt.Sprintf("clip %d finished recording", slot+1), Info)
			}
		}
	}
	end := p.frame + int64(n)
	for len(p.voices) > 0 && p.voices[0].voice.ReleaseAt() <= end {
		heap.Pop(&p.voices)
	}
}

// tick fires every active step at the current index across all tracks,
// with identical trigger timestamps, then re-reads the tempo for the next
// interval and advances the step index.
func (p *Player) tick() {
	for track := range p.session.Tracks {
		t := &p.session.Tracks[track]
		if t.Steps.Active(p.step) {
			p.trigger(track, t.Volume)
		}
	}
	p.highlight = p.step
	if steps := p.session.StepsPerBar(); steps > 0 {
		p.step = (p.step + 1) % steps
	} else {
		p.step = 0
	}
	p.untilTick = rumpu.SamplesPerStep(p.session.BPM)
}

// trigger triggers the given track at the current frame. The pitch
// toggle is captured here, so a later toggle never bends a voice that is
// already sounding.
func (p *Player) trigger(track int, volume float32) {
	kind := p.session.Tracks[track].Kind
	pitched := p.router.Enabled(rumpu.EffectPitch)
	voice := dsp.Trigger(kind, p.frame, rumpu.ClampVolume(volume), pitched)
	heap.Push(&p.voices, playerVoice{voice: voice, track: track})
}

// start starts the transport. No-op if it is already running. A
// suspended audio backend is resumed first; if that fails, the transport
// stays stopped and the failure is reported.
func (p *Player) start() {
	if p.playing {
		return
	}
	if p.audio != nil && p.audio.Suspended() {
		if err := p.audio.Resume(); err != nil {
			p.SendAlert("Transport", fmt.Sprintf("%v: %v", ErrBackendSuspended, err), Error)
			return
		}
	}
	p.playing = true
	p.untilTick = 0 // the first tick fires right away
}

// stop stops the transport, resets the step index to 0 and clears the
// highlight. Only the next tick is cancelled: voices that are already
// sounding keep their scheduled stop frames and play to completion.
func (p *Player) stop() {
	p.playing = false
	p.step = 0
	p.highlight = -1
}

func (p *Player) setSession(session rumpu.Session) {
	s := session.Copy()
	s.BPM = rumpu.ClampBPM(s.BPM)
	p.session = s
	p.router.SetScope(s.Routing, len(s.Tracks))
	p.router.SetEffects(s.EffectSet())
	if p.step >= s.StepsPerBar() {
		p.step = 0
	}
}

func (p *Player) processMessages() {
loop:
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case StartMsg:
				p.start()
			case StopMsg:
				p.stop()
			case BPMMsg:
				p.session.BPM = rumpu.ClampBPM(m.BPM)
			case RoutingMsg:
				p.session.Routing = m.RoutingScope
				p.router.SetScope(m.RoutingScope, len(p.session.Tracks))
			case EffectMsg:
				p.router.SetEffect(m.Effect, m.Enabled)
			case ToggleStepMsg:
				if m.Track >= 0 && m.Track < len(p.session.Tracks) {
					t := &p.session.Tracks[m.Track]
					t.Steps.Set(m.Step, !t.Steps.Active(m.Step))
				}
			case TrackVolumeMsg:
				if m.Track >= 0 && m.Track < len(p.session.Tracks) {
					p.session.Tracks[m.Track].Volume = rumpu.ClampVolume(m.Volume)
				}
			case TriggerMsg:
				if m.Track >= 0 && m.Track < len(p.session.Tracks) {
					p.trigger(m.Track, p.session.Tracks[m.Track].Volume)
				}
			case SessionMsg:
				p.setSession(m.Session)
			case RecordClipMsg:
				frames := rumpu.LoopSamples(p.session.BPM, recordBeatsPerBar, recordBars)
				p.rec.Record(m.Slot, frames)
				p.sendClipState(m.Slot)
			case PlayClipMsg:
				p.rec.Play(m.Slot)
				p.sendClipState(m.Slot)
			case StopClipMsg:
				p.rec.Stop(m.Slot)
				p.sendClipState(m.Slot)
			case ClearClipMsg:
				p.rec.Clear(m.Slot)
				p.sendClipState(m.Slot)
			case ExportClipMsg:
				bufPtr := p.broker.GetAudioBuffer()
				if !p.rec.CopyAudio(m.Slot, bufPtr) {
					p.broker.PutAudioBuffer(bufPtr)
					p.SendAlert("Recording", fmt.Sprintf("clip %d has nothing to export", m.Slot+1), Warning)
				} else if !p.send(ClipAudioMsg{Slot: m.Slot, Audio: bufPtr}) {
					p.broker.PutAudioBuffer(bufPtr)
				}
			case MicrophoneMsg:
				if err := p.rec.EnableMicrophone(m.Enabled); err != nil {
					p.SendAlert("Microphone", err.Error(), Error)
				}
			case PanicMsg:
				p.voices = p.voices[:0]
			}
		default:
			break loop
		}
	}
}

// handleMIDI triggers the pads from MIDI note ons, picking the track by
// the general MIDI percussion mapping and scaling the track volume by
// the velocity. Note offs carry nothing for us, as the voices are
// one-shots.
func (p *Player) handleMIDI(ev MIDINoteEvent) {
	if !ev.On {
		return
	}
	kind, ok := kindForNote(ev.Note)
	if !ok {
		return
	}
	for track := range p.session.Tracks {
		if p.session.Tracks[track].Kind == kind {
			volume := p.session.Tracks[track].Volume * float32(ev.Velocity) / 127
			p.trigger(track, volume)
			return
		}
	}
}

// kindForNote maps a general MIDI percussion note to a track kind: 35/36
// are the kicks, 37-40 the snares and claps, the toms up to 50 stand in
// for the bass and the cymbals above that play the chord.
func kindForNote(note byte) (rumpu.TrackKind, bool) {
	switch {
	case note < 35:
		return 0, false
	case note <= 36:
		return rumpu.KindKick, true
	case note <= 40:
		return rumpu.KindSnare, true
	case note <= 50:
		return rumpu.KindBass, true
	}
	return rumpu.KindChord, true
}

// send sends the transport status to the UI, with the given data boxed
// in, never blocking. Returns false if the message was dropped.
func (p *Player) send(data any) bool {
	return TrySend(p.broker.ToUI, MsgToUI{
		HasTransport: true,
		Playing:      p.playing,
		Step:         p.highlight,
		Level:        p.volume.Level,
		Voices:       len(p.voices),
		CPULoad:      p.cpuLoad,
		Data:         data,
	})
}

// SendAlert sends an alert for the UI to pop up.
func (p *Player) SendAlert(name, message string, priority AlertPriority) {
	p.send(Alert{Name: name, Message: message, Priority: priority, Duration: defaultAlertDuration})
}

func (p *Player) sendClipState(slot int) {
	p.send(ClipStateMsg{Slot: slot, State: p.rec.State(slot), Seconds: p.rec.Seconds(slot)})
}

// Render renders the session offline: the whole step grid, repeated for
// the given number of bars, plus tailSeconds of ring-out so the echo and
// reverb tails are kept.
func Render(session rumpu.Session, bars int, tailSeconds float64) (rumpu.AudioBuffer, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if bars < 1 {
		return nil, errors.New("number of bars should be >= 1")
	}
	broker := NewBroker()
	p := NewPlayer(broker, nil, session)
	loopFrames := rumpu.SamplesPerStep(session.BPM) * session.StepsPerBar() * bars
	tailFrames := int(tailSeconds * rumpu.SampleRate)
	buffer := make(rumpu.AudioBuffer, loopFrames+max(tailFrames, 0))
	TrySend(broker.ToPlayer, any(StartMsg{}))
	const chunk = 4096 // render in blocks like the realtime path would
	for pos := 0; pos < loopFrames; pos += chunk {
		p.Process(buffer[pos:min(pos+chunk, loopFrames)], NullMIDIContext{})
	}
	TrySend(broker.ToPlayer, any(StopMsg{}))
	for pos := loopFrames; pos < len(buffer); pos += chunk {
		p.Process(buffer[pos:min(pos+chunk, len(buffer))], NullMIDIContext{})
	}
	return buffer, nil
}
