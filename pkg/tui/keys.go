package tui

import (
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/ideamachine/pkg/input"
)

type keyMap struct {
	VoicingDown key.Binding
	VoicingUp   key.Binding
	Sticky      key.Binding
	Panic       key.Binding
	Devices     key.Binding
	Retry       key.Binding
	Up          key.Binding
	Down        key.Binding
	Select      key.Binding
	Back        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	VoicingDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "voicing down")),
	VoicingUp:   key.NewBinding(key.WithKeys("="), key.WithHelp("=", "voicing up")),
	Sticky:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "sticky")),
	Panic:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "all off")),
	Devices:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "midi devices")),
	Retry:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Up:          key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "navigate")),
	Down:        key.NewBinding(key.WithKeys("down")),
	Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:        key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// playHelp is shown while performing
type playHelp struct{}

func (playHelp) ShortHelp() []key.Binding {
	return []key.Binding{keys.VoicingDown, keys.VoicingUp, keys.Sticky, keys.Panic, keys.Devices, keys.Quit}
}

func (h playHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

// menuHelp is shown in the device menus
type menuHelp struct{}

func (menuHelp) ShortHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Select, keys.Back}
}

func (h menuHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

// notReadyHelp is shown when MIDI could not be enabled
type notReadyHelp struct{}

func (notReadyHelp) ShortHelp() []key.Binding {
	return []key.Binding{keys.Retry, keys.Quit}
}

func (h notReadyHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

// keyEvent converts a terminal key press into a keyboard adapter event.
// Only single printable keys qualify; uppercase letters count as shifted.
func keyEvent(msg tea.KeyMsg) (input.KeyEvent, bool) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 || msg.Paste {
		return input.KeyEvent{}, false
	}
	r := msg.Runes[0]
	return input.KeyEvent{
		Key:   unicode.ToLower(r),
		Down:  true,
		Meta:  msg.Alt,
		Shift: unicode.IsUpper(r),
	}, true
}
