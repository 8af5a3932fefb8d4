// Package tui is the terminal front of the drum machine: a bubbletea
// program with three panels (the step grid, the effect bank and the clip
// slots). It keeps its own copy of the session, mirrors every edit to
// the player through the broker and redraws from the transport statuses
// the player streams back.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/engine"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// Model is the bubbletea model. It is a value: Update returns the
	// modified copy, bubbletea style, and only the broker, the alerts
	// and the preset list are shared through pointers.
	Model struct {
		broker  *engine.Broker
		session rumpu.Session   // the UI's copy; the player has its own
		effects rumpu.EffectSet // current toggles, written back on save
		presets []engine.Preset
		preset  int // index of the last applied preset, -1 for none
		path    string

		panel  panel
		track  int // grid cursor row
		step   int // grid cursor column
		effect int // effect bank cursor
		slot   int // clip slot cursor
		yank   string

		playing bool
		lit     int // step the player is on, -1 when stopped
		level   engine.Volume
		voices  int
		cpuLoad float64
		clips   [engine.NumClipSlots]clipInfo

		alerts   *Alerts
		caser    cases.Caser
		quitting bool
	}

	panel int

	clipInfo struct {
		state   engine.ClipState
		seconds float64
	}

	// playerMsg is one batch of broker traffic: the newest transport
	// status plus every boxed data message since the previous batch.
	playerMsg struct {
		status engine.MsgToUI
		datas  []any
	}

	// closeMsg is sent when the player side asks the UI to exit.
	closeMsg struct{}
)

const (
	panelGrid panel = iota
	panelEffects
	panelClips
	numPanels
)

const alertDuration = 3 * time.Second

func NewModel(broker *engine.Broker, session rumpu.Session, path string, presets []engine.Preset) Model {
	return Model{
		broker:  broker,
		session: session.Copy(),
		effects: session.EffectSet(),
		presets: presets,
		preset:  -1,
		path:    path,
		lit:     -1,
		alerts:  NewAlerts(),
		caser:   cases.Title(language.English),
	}
}

// Run runs the terminal UI until the user quits or the player side asks
// it to close. It closes broker.FinishedUI on the way out, so whoever
// waits on it knows the terminal has been restored.
func Run(m Model, opts ...tea.ProgramOption) error {
	defer close(m.broker.FinishedUI)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

// listenPlayer waits for broker traffic and greedily drains whatever
// else is already queued, so a burst of transport statuses becomes a
// single redraw instead of hundreds.
func listenPlayer(broker *engine.Broker) tea.Cmd {
	return func() tea.Msg {
		var ret playerMsg
		select {
		case msg := <-broker.ToUI:
			ret.add(msg)
		case <-broker.CloseUI:
			return closeMsg{}
		}
		for {
			select {
			case msg := <-broker.ToUI:
				ret.add(msg)
			default:
				return ret
			}
		}
	}
}

func (p *playerMsg) add(msg engine.MsgToUI) {
	if msg.HasTransport {
		p.status = msg
	}
	if msg.Data != nil {
		p.datas = append(p.datas, msg.Data)
	}
}

func (m Model) Init() tea.Cmd {
	return listenPlayer(m.broker)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case playerMsg:
		if msg.status.HasTransport {
			m.playing = msg.status.Playing
			m.lit = msg.status.Step
			m.level = msg.status.Level
			m.voices = msg.status.Voices
			m.cpuLoad = msg.status.CPULoad
		}
		for _, data := range msg.datas {
			switch d := data.(type) {
			case engine.Alert:
				m.alerts.Add(d)
			case engine.ClipStateMsg:
				if d.Slot >= 0 && d.Slot < engine.NumClipSlots {
					m.clips[d.Slot] = clipInfo{state: d.State, seconds: d.Seconds}
				}
			case engine.ClipAudioMsg:
				m.writeClip(d)
			}
		}
		m.alerts.Prune()
		return m, listenPlayer(m.broker)
	case closeMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.panel = (m.panel + 1) % numPanels
	case "p":
		if m.playing {
			m.send(engine.StopMsg{})
		} else {
			m.send(engine.StartMsg{})
		}
	case "+", "=":
		m.setBPM(m.session.BPM + 5)
	case "-", "_":
		m.setBPM(m.session.BPM - 5)
	case "g":
		if m.session.Routing == rumpu.RoutingGlobal {
			m.session.Routing = rumpu.RoutingPerTrack
		} else {
			m.session.Routing = rumpu.RoutingGlobal
		}
		m.send(engine.RoutingMsg{RoutingScope: m.session.Routing})
	case "s":
		m.saveSession()
	case "i":
		m.send(engine.MicrophoneMsg{Enabled: true})
	case "!":
		m.send(engine.PanicMsg{})
	case ",":
		m.applyPreset(-1)
	case ".":
		m.applyPreset(1)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if track := int(key[0] - '1'); track < len(m.session.Tracks) {
			m.send(engine.TriggerMsg{Track: track})
		}
	default:
		switch m.panel {
		case panelGrid:
			m.handleGridKey(key)
		case panelEffects:
			m.handleEffectsKey(key)
		case panelClips:
			m.handleClipsKey(key)
		}
	}
	return m, nil
}

func (m *Model) handleGridKey(key string) {
	switch key {
	case "h", "left":
		if m.step > 0 {
			m.step--
		}
	case "l", "right":
		if m.step < m.session.StepsPerBar()-1 {
			m.step++
		}
	case "k", "up":
		if m.track > 0 {
			m.track--
		}
	case "j", "down":
		if m.track < len(m.session.Tracks)-1 {
			m.track++
		}
	case " ":
		if m.track < len(m.session.Tracks) {
			t := &m.session.Tracks[m.track]
			t.Steps.Set(m.step, !t.Steps.Active(m.step))
			m.send(engine.ToggleStepMsg{Track: m.track, Step: m.step})
		}
	case "c":
		m.clearTrack()
	case "y":
		m.yankTrack()
	case "v":
		m.pasteTrack()
	case "[":
		m.setVolume(-0.05)
	case "]":
		m.setVolume(0.05)
	}
}

func (m *Model) handleEffectsKey(key string) {
	switch key {
	case "h", "left", "k", "up":
		if m.effect > 0 {
			m.effect--
		}
	case "l", "right", "j", "down":
		if m.effect < rumpu.NumEffects-1 {
			m.effect++
		}
	case " ":
		effect := rumpu.EffectID(m.effect)
		enabled := !m.effects.Enabled(effect)
		m.effects.Set(effect, enabled)
		m.session.Effects = m.effects.Names()
		m.send(engine.EffectMsg{Effect: effect, Enabled: enabled})
	}
}

func (m *Model) handleClipsKey(key string) {
	switch key {
	case "h", "left", "k", "up":
		if m.slot > 0 {
			m.slot--
		}
	case "l", "right", "j", "down":
		if m.slot < engine.NumClipSlots-1 {
			m.slot++
		}
	case " ":
		if m.clips[m.slot].state == engine.ClipPlaying {
			m.send(engine.StopClipMsg{Slot: m.slot})
		} else {
			m.send(engine.PlayClipMsg{Slot: m.slot})
		}
	case "r":
		m.send(engine.RecordClipMsg{Slot: m.slot})
	case "x":
		m.send(engine.ClearClipMsg{Slot: m.slot})
	case "e":
		m.send(engine.ExportClipMsg{Slot: m.slot})
	}
}

func (m *Model) setBPM(bpm int) {
	m.session.BPM = rumpu.ClampBPM(bpm)
	m.send(engine.BPMMsg{BPM: m.session.BPM})
}

func (m *Model) setVolume(delta float32) {
	if m.track >= len(m.session.Tracks) {
		return
	}
	t := &m.session.Tracks[m.track]
	t.Volume = rumpu.ClampVolume(t.Volume + delta)
	m.send(engine.TrackVolumeMsg{Track: m.track, Volume: t.Volume})
}

// clearTrack turns off every step of the cursor row, mirroring each
// turned-off step to the player so the grids cannot drift apart.
func (m *Model) clearTrack() {
	if m.track >= len(m.session.Tracks) {
		return
	}
	t := &m.session.Tracks[m.track]
	for step := range t.Steps {
		if t.Steps[step] {
			t.Steps[step] = false
			m.send(engine.ToggleStepMsg{Track: m.track, Step: step})
		}
	}
}

func (m *Model) yankTrack() {
	if m.track >= len(m.session.Tracks) {
		return
	}
	data, err := yankTrack(m.session.Tracks[m.track])
	if err != nil {
		m.alert("Yank", fmt.Sprintf("cannot yank: %v", err), engine.Error)
		return
	}
	m.yank = data
	m.alert("Yank", fmt.Sprintf("yanked %s", m.session.Tracks[m.track].Name), engine.Info)
}

// pasteTrack overwrites the cursor row with the yanked steps, clipped to
// the grid length. Like clearTrack, it sends the player one toggle per
// changed step.
func (m *Model) pasteTrack() {
	if m.yank == "" || m.track >= len(m.session.Tracks) {
		return
	}
	steps, err := pasteTrack(m.yank)
	if err != nil {
		m.alert("Paste", fmt.Sprintf("cannot paste: %v", err), engine.Error)
		return
	}
	t := &m.session.Tracks[m.track]
	for step := range t.Steps {
		if steps.Active(step) != t.Steps[step] {
			t.Steps[step] = steps.Active(step)
			m.send(engine.ToggleStepMsg{Track: m.track, Step: step})
		}
	}
}

func (m *Model) applyPreset(delta int) {
	if len(m.presets) == 0 {
		return
	}
	m.preset = ((m.preset+delta)%len(m.presets) + len(m.presets)) % len(m.presets)
	m.session = m.presets[m.preset].Session.Copy()
	m.effects = m.session.EffectSet()
	m.clampCursor()
	m.send(engine.SessionMsg{Session: m.session.Copy()})
	m.alert("Preset", fmt.Sprintf("preset: %s", m.presets[m.preset].Name), engine.Info)
}

func (m *Model) clampCursor() {
	if n := len(m.session.Tracks); m.track >= n && n > 0 {
		m.track = n - 1
	}
	if n := m.session.StepsPerBar(); m.step >= n && n > 0 {
		m.step = n - 1
	}
}

func (m *Model) saveSession() {
	if m.path == "" {
		m.path = "session.yml"
	}
	m.session.Effects = m.effects.Names()
	if err := engine.SaveSessionFile(m.path, m.session); err != nil {
		m.alert("Save", err.Error(), engine.Error)
		return
	}
	m.alert("Save", fmt.Sprintf("saved %s", m.path), engine.Info)
}

// writeClip encodes an exported clip as float32 wav and writes it next
// to the session file. The audio buffer is on loan from the broker pool
// and goes back as soon as it is encoded.
func (m *Model) writeClip(msg engine.ClipAudioMsg) {
	wav, err := msg.Audio.Wav(false)
	m.broker.PutAudioBuffer(msg.Audio)
	if err != nil {
		m.alert("Export", fmt.Sprintf("cannot encode clip: %v", err), engine.Error)
		return
	}
	path := filepath.Join(filepath.Dir(m.path), fmt.Sprintf("clip%d.wav", msg.Slot+1))
	if err := os.WriteFile(path, wav, 0644); err != nil {
		m.alert("Export", fmt.Sprintf("cannot write clip: %v", err), engine.Error)
		return
	}
	m.alert("Export", fmt.Sprintf("exported %s", path), engine.Info)
}

// send mirrors a UI edit to the player, never blocking; the queue is
// long enough that filling it up means the player is gone.
func (m *Model) send(msg any) {
	if !engine.TrySend(m.broker.ToPlayer, msg) {
		m.alert("PlayerChannel", "player message queue is full", engine.Error)
	}
}

func (m *Model) alert(name, message string, priority engine.AlertPriority) {
	m.alerts.Add(engine.Alert{Name: name, Message: message, Priority: priority, Duration: alertDuration})
}
