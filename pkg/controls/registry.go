package controls

import (
	"github.com/james-see/ideamachine/pkg/theory"
)

// Registry is a read-only lookup table of controls
type Registry struct {
	controls   []Control
	byShortcut map[rune]Control
	byPad      map[uint8]Control
	padChannel uint8
}

// NewRegistry creates a Registry over the given controls. padChannel is the
// 1-based MIDI channel on which pad notes are treated as controls.
// Later entries do not override earlier ones for the same trigger.
func NewRegistry(padChannel uint8, controls []Control) *Registry {
	r := &Registry{
		controls:   controls,
		byShortcut: make(map[rune]Control, len(controls)),
		byPad:      make(map[uint8]Control, len(controls)),
		padChannel: padChannel,
	}
	for _, c := range controls {
		if _, ok := r.byShortcut[c.Shortcut()]; !ok {
			r.byShortcut[c.Shortcut()] = c
		}
		if _, ok := r.byPad[c.PadNote()]; !ok {
			r.byPad[c.PadNote()] = c
		}
	}
	return r
}

// Default returns a Registry with the built-in controls on the default pad
// channel
func Default() *Registry {
	return NewRegistry(DefaultPadChannel, Defaults())
}

// PadChannel returns the 1-based pad channel
func (r *Registry) PadChannel() uint8 {
	return r.padChannel
}

// LookupByShortcut finds the control bound to a keyboard key
func (r *Registry) LookupByShortcut(key rune) (Control, bool) {
	c, ok := r.byShortcut[key]
	return c, ok
}

// LookupByPadNote finds the control bound to a pad note. channel is 1-based;
// notes on any channel other than the pad channel never match.
func (r *Registry) LookupByPadNote(note, channel uint8) (Control, bool) {
	if channel != r.padChannel {
		return nil, false
	}
	c, ok := r.byPad[note]
	return c, ok
}

// Controls returns every control in table order
func (r *Registry) Controls() []Control {
	out := make([]Control, len(r.controls))
	copy(out, r.controls)
	return out
}

// ChordTypeControls returns the chord-type controls in table order
func (r *Registry) ChordTypeControls() []ChordTypeControl {
	var out []ChordTypeControl
	for _, c := range r.controls {
		if ct, ok := c.(ChordTypeControl); ok {
			out = append(out, ct)
		}
	}
	return out
}

// ExtensionControls returns the extension controls in table order
func (r *Registry) ExtensionControls() []ExtensionControl {
	var out []ExtensionControl
	for _, c := range r.controls {
		if ext, ok := c.(ExtensionControl); ok {
			out = append(out, ext)
		}
	}
	return out
}

// ForChordType returns the control that selects the given chord type
func (r *Registry) ForChordType(ct theory.ChordType) (ChordTypeControl, bool) {
	for _, c := range r.ChordTypeControls() {
		if c.ChordType == ct {
			return c, true
		}
	}
	return ChordTypeControl{}, false
}

// ForExtension returns the control that toggles the given extension
func (r *Registry) ForExtension(ext theory.ChordExtension) (ExtensionControl, bool) {
	for _, c := range r.ExtensionControls() {
		if c.Extension == ext {
			return c, true
		}
	}
	return ExtensionControl{}, false
}

// Find resolves a control by shortcut key, label, chord type name or
// extension name, in that order
func (r *Registry) Find(name string) (Control, bool) {
	if runes := []rune(name); len(runes) == 1 {
		if c, ok := r.LookupByShortcut(runes[0]); ok {
			return c, true
		}
	}
	for _, c := range r.controls {
		if c.Label() == name {
			return c, true
		}
	}
	if ct, err := theory.ParseChordType(name); err == nil && ct != theory.None {
		if c, ok := r.ForChordType(ct); ok {
			return c, true
		}
	}
	if ext, err := theory.ParseExtension(name); err == nil {
		if c, ok := r.ForExtension(ext); ok {
			return c, true
		}
	}
	return nil, false
}
