package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vsariola/rumpu"
	"github.com/vsariola/rumpu/engine"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeTab    = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true).Underline(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("237")).Padding(0, 1)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196")).Padding(0, 1)
)

var panelNames = [numPanels]string{"grid", "effects", "clips"}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(m.headerView())
	out.WriteString("\n\n")
	out.WriteString(m.tabsView())
	out.WriteString("\n\n")
	switch m.panel {
	case panelGrid:
		out.WriteString(m.gridView())
	case panelEffects:
		out.WriteString(m.effectsView())
	case panelClips:
		out.WriteString(m.clipsView())
	}
	out.WriteString("\n")
	out.WriteString(m.meterView())
	out.WriteString("\n")
	for _, alert := range m.alerts.Visible() {
		out.WriteString(alertStyleFor(alert.Priority).Render(alert.Message))
		out.WriteString("\n")
	}
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.helpView()))
	out.WriteString("\n")
	return out.String()
}

func (m Model) headerView() string {
	playState := "STOP"
	if m.playing {
		playState = "PLAY"
	}
	step := "-"
	if m.lit >= 0 {
		step = fmt.Sprintf("%d/%d", m.lit+1, m.session.StepsPerBar())
	}
	name := "untitled"
	if m.path != "" {
		name = filepath.Base(m.path)
	}
	return headerStyle.Render(fmt.Sprintf("rumpu  %s  %s  %3dbpm  step %s  %s  %d voices  cpu %2.0f%%",
		name, playState, m.session.BPM, step, m.session.Routing, m.voices, m.cpuLoad*100))
}

func (m Model) tabsView() string {
	tabs := make([]string, numPanels)
	for i, name := range panelNames {
		if panel(i) == m.panel {
			tabs[i] = activeTab.Render(name)
		} else {
			tabs[i] = dimStyle.Render(name)
		}
	}
	return " " + strings.Join(tabs, "   ")
}

// gridView draws the step grid, one row per track: the pad key, the
// name, the volume and one rune per step. The playhead wins over the
// active mark, the cursor turns the rune into its outlined variant.
func (m Model) gridView() string {
	var out strings.Builder
	for track := range m.session.Tracks {
		t := &m.session.Tracks[track]
		fmt.Fprintf(&out, "%d %-8s %4.2f  ", track+1, t.Name, t.Volume)
		for step := range t.Steps {
			if step > 0 && step%4 == 0 {
				out.WriteString(" ")
			}
			out.WriteString(stepRune(t.Steps[step], step == m.lit,
				m.panel == panelGrid && track == m.track && step == m.step))
		}
		out.WriteString("\n")
	}
	return out.String()
}

func stepRune(active, lit, cursor bool) string {
	switch {
	case lit && cursor:
		return "▷"
	case lit:
		return "▶"
	case active && cursor:
		return "◉"
	case active:
		return "●"
	case cursor:
		return "○"
	}
	return "·"
}

// effectsView lists the effect bank. Enabled routed effects show their
// position in the chain, which is always their bank order, no matter
// the order they were toggled in.
func (m Model) effectsView() string {
	var out strings.Builder
	position := 0
	for i := range rumpu.NumEffects {
		effect := rumpu.EffectID(i)
		cursor := "  "
		if m.panel == panelEffects && i == m.effect {
			cursor = "▶ "
		}
		check := " "
		if m.effects.Enabled(effect) {
			check = "x"
		}
		note := ""
		if m.effects.Enabled(effect) && effect.Routed() {
			position++
			note = fmt.Sprintf("#%d in chain", position)
		} else if effect == rumpu.EffectPitch {
			note = "flag, affects new notes"
		}
		fmt.Fprintf(&out, "%s[%s] %-12s %s\n", cursor, check, m.caser.String(effect.String()), dimStyle.Render(note))
	}
	return out.String()
}

func (m Model) clipsView() string {
	var out strings.Builder
	for slot := range engine.NumClipSlots {
		cursor := "  "
		if m.panel == panelClips && slot == m.slot {
			cursor = "▶ "
		}
		clip := m.clips[slot]
		length := ""
		if clip.seconds > 0 {
			length = fmt.Sprintf("%.1fs", clip.seconds)
		}
		fmt.Fprintf(&out, "%s%d. %-10s %s\n", cursor, slot+1, clip.state, length)
	}
	return out.String()
}

func (m Model) meterView() string {
	return fmt.Sprintf(" L %s\n R %s", meterBar(m.level[0]), meterBar(m.level[1]))
}

// meterBar draws one level bar, -60..0 dB over 30 cells.
func meterBar(dB float64) string {
	const width = 30
	filled := int((dB + 60) / 60 * width)
	filled = max(0, min(width, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m Model) helpView() string {
	global := "tab:panel  p:play  +/-:tempo  g:routing  s:save  ,/.:preset  1-9:pads  i:mic  q:quit"
	switch m.panel {
	case panelEffects:
		return "h/l:move  space:toggle\n " + global
	case panelClips:
		return "h/l:move  space:play/stop  r:record  x:clear  e:export\n " + global
	}
	return "hjkl:move  space:toggle  c:clear  y:yank  v:paste  [/]:volume\n " + global
}

func alertStyleFor(priority engine.AlertPriority) lipgloss.Style {
	switch priority {
	case engine.Warning:
		return warningStyle
	case engine.Error:
		return errorStyle
	}
	return infoStyle
}
