// Package controls maps physical triggers (keyboard keys, MIDI pads) to the
// instrument's chord-type and chord-extension controls
package controls

import (
	"github.com/james-see/ideamachine/pkg/theory"
)

// DefaultPadChannel is the 1-based MIDI channel reserved for control pads
const DefaultPadChannel = 10

// Visitor handles each kind of Control. Implementations must handle both
// variants, which keeps every use site exhaustive.
type Visitor interface {
	VisitChordType(c ChordTypeControl)
	VisitExtension(c ExtensionControl)
}

// Control is either a ChordTypeControl or an ExtensionControl
type Control interface {
	// Accept calls the Visitor method matching the control's variant
	Accept(v Visitor)
	Shortcut() rune
	PadNote() uint8
	Label() string
	Color() string

	sealed()
}

// Meta holds the trigger and presentation data shared by all controls
type Meta struct {
	Key     rune
	Pad     uint8
	Name    string
	Palette string
}

// Shortcut returns the keyboard key that triggers the control
func (m Meta) Shortcut() rune { return m.Key }

// PadNote returns the pad note number that triggers the control
func (m Meta) PadNote() uint8 { return m.Pad }

// Label returns the display label
func (m Meta) Label() string { return m.Name }

// Color returns the display color name
func (m Meta) Color() string { return m.Palette }

// ChordTypeControl selects a chord type
type ChordTypeControl struct {
	Meta
	ChordType theory.ChordType
}

// Accept implements Control
func (c ChordTypeControl) Accept(v Visitor) { v.VisitChordType(c) }

func (ChordTypeControl) sealed() {}

// ExtensionControl toggles a chord extension
type ExtensionControl struct {
	Meta
	Extension theory.ChordExtension
}

// Accept implements Control
func (c ExtensionControl) Accept(v Visitor) { v.VisitExtension(c) }

func (ExtensionControl) sealed() {}

// Kind returns "chord_type" or "extension" for the given control
func Kind(c Control) string {
	var k kindVisitor
	c.Accept(&k)
	return string(k)
}

type kindVisitor string

func (k *kindVisitor) VisitChordType(ChordTypeControl) { *k = "chord_type" }
func (k *kindVisitor) VisitExtension(ExtensionControl) { *k = "extension" }

// Defaults returns the built-in control table
func Defaults() []Control {
	return []Control{
		ChordTypeControl{Meta{'k', 36, "Dim", "purple"}, theory.Dim},
		ChordTypeControl{Meta{'l', 37, "Maj", "teal"}, theory.Maj},
		ChordTypeControl{Meta{';', 38, "Min", "blue"}, theory.Min},
		ChordTypeControl{Meta{'\'', 39, "Sus", "orange"}, theory.Sus},
		ExtensionControl{Meta{'i', 40, "6", "yellow"}, theory.Add6},
		ExtensionControl{Meta{'o', 41, "m7", "green"}, theory.Min7},
		ExtensionControl{Meta{'p', 42, "M7", "cyan"}, theory.Maj7},
		ExtensionControl{Meta{'[', 43, "9", "pink"}, theory.Add9},
	}
}
