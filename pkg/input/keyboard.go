package input

import (
	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/performance"
)

// KeyEvent is a computer-keyboard key press or release
type KeyEvent struct {
	Key   rune
	Down  bool
	Meta  bool
	Ctrl  bool
	Shift bool
}

// Keyboard turns key events into control and note events
type Keyboard struct {
	registry *controls.Registry
	d        Dispatcher
}

// NewKeyboard creates a keyboard adapter
func NewKeyboard(registry *controls.Registry, d Dispatcher) *Keyboard {
	return &Keyboard{registry: registry, d: d}
}

// Handle dispatches the event and reports whether the key was mapped.
// Keys held with meta, ctrl or shift are left to the system.
func (k *Keyboard) Handle(ev KeyEvent) bool {
	if ev.Meta || ev.Ctrl || ev.Shift {
		return false
	}

	if c, ok := k.registry.LookupByShortcut(ev.Key); ok {
		if ev.Down {
			k.d.Dispatch(performance.ControlOn{Control: c})
		} else {
			k.d.Dispatch(performance.ControlOff{Control: c})
		}
		return true
	}

	if n, ok := controls.NoteForKey(ev.Key); ok {
		if ev.Down {
			k.d.Dispatch(performance.NoteOn{Note: n})
		} else {
			k.d.Dispatch(performance.NoteOff{Note: n})
		}
		return true
	}
	return false
}
