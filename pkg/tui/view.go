package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/rig"
	"github.com/james-see/ideamachine/pkg/theory"
)

var (
	accent   = lipgloss.Color("#39FF14")
	warm     = lipgloss.Color("#FFFF00")
	silver   = lipgloss.Color("#C0C0C0")
	darkGray = lipgloss.Color("#333333")
	dimGray  = lipgloss.Color("#666666")

	// control palette names to colors
	palette = map[string]lipgloss.Color{
		"purple": lipgloss.Color("#B084F5"),
		"teal":   lipgloss.Color("#2EC4B6"),
		"blue":   lipgloss.Color("#4D9DE0"),
		"orange": lipgloss.Color("#FF9F1C"),
		"yellow": lipgloss.Color("#FFE66D"),
		"green":  lipgloss.Color("#7BD389"),
		"cyan":   lipgloss.Color("#5BC0EB"),
		"pink":   lipgloss.Color("#F15BB5"),
	}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimGray).
			Width(12)

	menuStyle = lipgloss.NewStyle().
			Foreground(silver).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(warm)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	padStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimGray).
			Foreground(dimGray).
			Width(5).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)
)

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" IDEA MACHINE "))
	s.WriteString("\n")

	switch m.state {
	case StateEnabling:
		s.WriteString(boxStyle.Render(fmt.Sprintf("%s Enabling MIDI...", m.spinner.View())))
	case StateNotReady:
		s.WriteString(m.viewNotReady())
		s.WriteString("\n")
		s.WriteString(m.help.View(notReadyHelp{}))
	case StatePlaying:
		s.WriteString(m.viewPlaying())
		s.WriteString("\n")
		s.WriteString(m.help.View(playHelp{}))
	case StateRoleMenu:
		s.WriteString(m.viewRoleMenu())
		s.WriteString("\n")
		s.WriteString(m.help.View(menuHelp{}))
	case StateDeviceMenu:
		s.WriteString(m.viewDeviceMenu())
		s.WriteString("\n")
		s.WriteString(m.help.View(menuHelp{}))
	}
	return s.String()
}

func (m Model) viewNotReady() string {
	var s strings.Builder
	s.WriteString(errorStyle.Render("✗ MIDI not ready"))
	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(m.err.Error())
	}
	return boxStyle.Render(s.String())
}

func (m Model) viewPlaying() string {
	var s strings.Builder

	var chordTypes, extensions []controls.Control
	for _, c := range m.rig.Registry().Controls() {
		if controls.Kind(c) == "chord_type" {
			chordTypes = append(chordTypes, c)
		} else {
			extensions = append(extensions, c)
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, labelStyle.Render("chord"), m.viewPads(chordTypes)))
	s.WriteString("\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, labelStyle.Render("extensions"), m.viewPads(extensions)))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("type"))
	s.WriteString(statusStyle.Render(chordTypeName(m.perf.ChordType)))
	if ext := m.perf.Extensions.String(); ext != "" {
		s.WriteString(statusStyle.Render(" + " + ext))
	}
	s.WriteString("\n")
	s.WriteString(labelStyle.Render("voicing"))
	s.WriteString(voicingBar(m.perf.Voicing, 16))
	s.WriteString("\n")
	s.WriteString(labelStyle.Render("sticky"))
	s.WriteString(toggle(m.perf.StickyChordTypes))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("playing"))
	if len(m.perf.ActiveChords) == 0 {
		s.WriteString(menuStyle.UnsetPaddingLeft().Render("-"))
	}
	for i, c := range m.perf.ActiveChords {
		if i > 0 {
			s.WriteString("\n" + labelStyle.Render(""))
		}
		s.WriteString(fmt.Sprintf("%-4s → %s", c.Trigger.Name(), strings.Join(theory.Names(c.Notes), " ")))
	}
	s.WriteString("\n\n")
	s.WriteString(labelStyle.Render("keys"))
	s.WriteString(menuStyle.UnsetPaddingLeft().Render("a w s e d f t g y h u j  →  C3 … B3"))

	if !m.opts.SkipMIDI {
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("midi"))
		s.WriteString(menuStyle.UnsetPaddingLeft().Render(selectionLine(m.selection)))
	}
	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(m.err.Error()))
	}
	return boxStyle.Render(s.String())
}

// viewPads renders controls side by side, lit in their color when engaged
func (m Model) viewPads(cs []controls.Control) string {
	pads := make([]string, 0, len(cs))
	for _, c := range cs {
		style := padStyle
		if engaged(c, m.perf) {
			color, ok := palette[c.Color()]
			if !ok {
				color = accent
			}
			style = style.BorderForeground(color).Foreground(color).Bold(true)
		}
		pads = append(pads, style.Render(fmt.Sprintf("%s\n%c", c.Label(), c.Shortcut())))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, pads...)
}

type engagedVisitor struct {
	st performance.State
	on *bool
}

func (v engagedVisitor) VisitChordType(c controls.ChordTypeControl) {
	*v.on = v.st.ChordType == c.ChordType
}

func (v engagedVisitor) VisitExtension(c controls.ExtensionControl) {
	*v.on = v.st.Extensions.Has(c.Extension)
}

func engaged(c controls.Control, st performance.State) bool {
	var on bool
	c.Accept(engagedVisitor{st: st, on: &on})
	return on
}

func (m Model) viewRoleMenu() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" MIDI DEVICES "))
	s.WriteString("\n\n")
	for i, role := range rig.Roles {
		line := fmt.Sprintf("%-10s %s", role, orNone(selected(m.selection, role)))
		if i == m.roleIndex {
			s.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			s.WriteString(menuStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(m.err.Error()))
	}
	return boxStyle.Render(s.String())
}

func (m Model) viewDeviceMenu() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s ", strings.ToUpper(string(m.role)))))
	s.WriteString("\n\n")
	if len(m.ports) == 0 {
		s.WriteString(statusStyle.Render(fmt.Sprintf("no ports found (%d devices)", m.deviceCount)))
		s.WriteString("\n")
	}
	current := selected(m.selection, m.role)
	for i := 0; i <= len(m.ports); i++ {
		name := "(none)"
		if i < len(m.ports) {
			name = m.ports[i].Name
		}
		if name == current {
			name += " ✓"
		}
		if i == m.portIndex {
			s.WriteString(selectedStyle.Render("▸ " + name))
		} else {
			s.WriteString(menuStyle.Render("  " + name))
		}
		s.WriteString("\n")
	}
	return boxStyle.Render(s.String())
}

func selected(sel rig.Selection, role rig.Role) string {
	switch role {
	case rig.RoleController:
		return sel.ControllerInputID
	case rig.RoleDAW:
		return sel.DAWInputID
	default:
		return sel.OutputID
	}
}

func selectionLine(sel rig.Selection) string {
	return fmt.Sprintf("in %s · daw %s · out %s",
		orNone(sel.ControllerInputID), orNone(sel.DAWInputID), orNone(sel.OutputID))
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func voicingBar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := lipgloss.NewStyle().Foreground(accent).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(darkGray).Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, v*100)
}

func toggle(on bool) string {
	if on {
		return lipgloss.NewStyle().Foreground(accent).Bold(true).Render("● on")
	}
	return lipgloss.NewStyle().Foreground(dimGray).Render("○ off")
}
