// Package tui provides the terminal performance interface for ideamachine
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/ideamachine/pkg/device"
	"github.com/james-see/ideamachine/pkg/input"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/rig"
	"github.com/james-see/ideamachine/pkg/theory"
)

// State represents the current TUI screen
type State int

const (
	StateEnabling State = iota
	StateNotReady
	StatePlaying
	StateRoleMenu
	StateDeviceMenu
)

// voicingStep is how far one press of - or = moves the voicing
const voicingStep = 0.125

// Options configures the TUI
type Options struct {
	// KeyHold is how long a key stays down after its last press or repeat
	KeyHold time.Duration
	// SkipMIDI starts playing straight away without enabling MIDI
	SkipMIDI bool
}

// Model represents the TUI model
type Model struct {
	ctx      context.Context
	rig      *rig.Rig
	keyboard *input.Keyboard
	session  *performance.Session
	states   <-chan performance.State
	opts     Options

	state   State
	spinner spinner.Model
	help    help.Model
	perf    performance.State
	err     error
	width   int

	// held maps a key to the sequence number of its latest press
	held map[rune]int
	seq  int

	roleIndex   int
	role        rig.Role
	ports       []device.Descriptor
	portIndex   int
	selection   rig.Selection
	deviceCount int
}

type midiEnabledMsg struct{ err error }

type stateMsg performance.State

type sessionClosedMsg struct{}

// keyUpMsg releases a key unless it was pressed again since
type keyUpMsg struct {
	key rune
	seq int
}

type portsMsg struct {
	snap device.Snapshot
	err  error
}

type selectDoneMsg struct{ err error }

// New creates a TUI model for r. states must be a subscription to the
// rig's session.
func New(ctx context.Context, r *rig.Rig, states <-chan performance.State, opts Options) Model {
	if opts.KeyHold <= 0 {
		opts.KeyHold = 550 * time.Millisecond
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	state := StateEnabling
	if opts.SkipMIDI {
		state = StatePlaying
	}
	return Model{
		ctx:      ctx,
		rig:      r,
		keyboard: r.Keyboard(),
		session:  r.Session(),
		states:   states,
		opts:     opts,
		state:    state,
		spinner:  s,
		help:     help.New(),
		perf:     r.Session().State(),
		held:     make(map[rune]int),
	}
}

// Init starts enabling MIDI and listening for state changes
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForState()}
	if m.state == StateEnabling {
		cmds = append(cmds, m.spinner.Tick, m.enableMIDI())
	}
	return tea.Batch(cmds...)
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.state != StateEnabling {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case midiEnabledMsg:
		if msg.err != nil {
			m.state = StateNotReady
			m.err = msg.err
			return m, nil
		}
		m.state = StatePlaying
		m.err = nil
		m.selection = m.rig.Selection()
		return m, nil

	case stateMsg:
		m.perf = performance.State(msg)
		return m, m.waitForState()

	case sessionClosedMsg:
		return m, tea.Quit

	case keyUpMsg:
		return m.release(msg), nil

	case portsMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StatePlaying
			return m, nil
		}
		m.deviceCount = len(msg.snap.Inputs) + len(msg.snap.Outputs)
		if m.role == rig.RoleOutput {
			m.ports = msg.snap.Outputs
		} else {
			m.ports = msg.snap.Inputs
		}
		m.portIndex = 0
		m.state = StateDeviceMenu
		return m, nil

	case selectDoneMsg:
		m.err = msg.err
		m.selection = m.rig.Selection()
		m.state = StatePlaying
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateEnabling:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		case StateNotReady:
			return m.updateNotReady(msg)
		case StatePlaying:
			return m.updatePlaying(msg)
		case StateRoleMenu:
			return m.updateRoleMenu(msg)
		case StateDeviceMenu:
			return m.updateDeviceMenu(msg)
		}
	}
	return m, nil
}

func (m Model) updateNotReady(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Retry):
		m.state = StateEnabling
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.enableMIDI())
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.VoicingDown):
		m.session.Dispatch(performance.SetVoicing{Value: m.perf.Voicing - voicingStep})
		return m, nil
	case key.Matches(msg, keys.VoicingUp):
		m.session.Dispatch(performance.SetVoicing{Value: m.perf.Voicing + voicingStep})
		return m, nil
	case key.Matches(msg, keys.Sticky):
		m.session.Dispatch(performance.SetSticky{Enabled: !m.perf.StickyChordTypes})
		return m, nil
	case key.Matches(msg, keys.Panic):
		m.releaseAll()
		m.session.Dispatch(performance.Panic{})
		return m, nil
	case key.Matches(msg, keys.Devices):
		if m.opts.SkipMIDI || !m.rig.Ready() {
			return m, nil
		}
		m.releaseAll()
		m.err = nil
		m.roleIndex = 0
		m.selection = m.rig.Selection()
		m.state = StateRoleMenu
		return m, nil
	}

	ev, ok := keyEvent(msg)
	if !ok {
		return m, nil
	}
	return m.press(ev)
}

// press sends a key-down for a newly held key and restarts its hold timer.
// Terminal autorepeat arrives here too and only extends the hold.
func (m Model) press(ev input.KeyEvent) (tea.Model, tea.Cmd) {
	if _, held := m.held[ev.Key]; !held {
		if !m.keyboard.Handle(ev) {
			return m, nil
		}
	}
	m.seq++
	m.held[ev.Key] = m.seq
	return m, m.scheduleRelease(ev.Key, m.seq)
}

func (m Model) release(msg keyUpMsg) Model {
	if seq, ok := m.held[msg.key]; !ok || seq != msg.seq {
		return m
	}
	delete(m.held, msg.key)
	m.keyboard.Handle(input.KeyEvent{Key: msg.key})
	return m
}

func (m Model) releaseAll() {
	for k := range m.held {
		m.keyboard.Handle(input.KeyEvent{Key: k})
		delete(m.held, k)
	}
}

func (m Model) updateRoleMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.roleIndex > 0 {
			m.roleIndex--
		}
	case key.Matches(msg, keys.Down):
		if m.roleIndex < len(rig.Roles)-1 {
			m.roleIndex++
		}
	case key.Matches(msg, keys.Select):
		m.role = rig.Roles[m.roleIndex]
		return m, m.listPorts()
	case key.Matches(msg, keys.Back):
		m.state = StatePlaying
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// updateDeviceMenu picks a port; the extra last entry clears the role
func (m Model) updateDeviceMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.portIndex > 0 {
			m.portIndex--
		}
	case key.Matches(msg, keys.Down):
		if m.portIndex < len(m.ports) {
			m.portIndex++
		}
	case key.Matches(msg, keys.Select):
		id := ""
		if m.portIndex < len(m.ports) {
			id = m.ports[m.portIndex].ID
		}
		return m, m.selectPort(m.role, id)
	case key.Matches(msg, keys.Back):
		m.state = StateRoleMenu
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) scheduleRelease(k rune, seq int) tea.Cmd {
	return tea.Tick(m.opts.KeyHold, func(time.Time) tea.Msg {
		return keyUpMsg{key: k, seq: seq}
	})
}

func (m Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return sessionClosedMsg{}
		}
		return stateMsg(st)
	}
}

func (m Model) enableMIDI() tea.Cmd {
	r, ctx := m.rig, m.ctx
	return func() tea.Msg {
		return midiEnabledMsg{err: r.EnableMIDI(ctx)}
	}
}

func (m Model) listPorts() tea.Cmd {
	r := m.rig
	return func() tea.Msg {
		snap, err := r.Devices()
		return portsMsg{snap: snap, err: err}
	}
}

func (m Model) selectPort(role rig.Role, id string) tea.Cmd {
	r, ctx := m.rig, m.ctx
	return func() tea.Msg {
		return selectDoneMsg{err: r.Select(ctx, role, id)}
	}
}

// Run starts the TUI on r until the user quits or ctx is done
func Run(ctx context.Context, r *rig.Rig, opts Options) error {
	states, unsubscribe := r.Session().Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(New(ctx, r, states, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// chordTypeName formats the selected chord type for display
func chordTypeName(ct theory.ChordType) string {
	if ct == theory.None {
		return "single notes"
	}
	return ct.String()
}
