package performance

import (
	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/theory"
)

// Event is an input message applied to a Machine
type Event interface {
	apply(m *Machine)
}

// ControlOn presses a control
type ControlOn struct{ Control controls.Control }

// ControlOff releases a control
type ControlOff struct{ Control controls.Control }

// NoteOn plays the chord for a trigger note
type NoteOn struct{ Note theory.Note }

// NoteOff stops the chord for a trigger note
type NoteOff struct{ Note theory.Note }

// SetVoicing sets the chord voicing amount
type SetVoicing struct{ Value float64 }

// SetSticky switches sticky chord-type mode
type SetSticky struct{ Enabled bool }

// SetChordType selects a chord type directly
type SetChordType struct{ ChordType theory.ChordType }

// PitchBend forwards a pitch bend value (-8192..8191)
type PitchBend struct{ Value int16 }

// SwapSink replaces the output sink
type SwapSink struct{ Sink Sink }

// Panic releases every sounding chord
type Panic struct{}

func (e ControlOn) apply(m *Machine)    { m.ControlOn(e.Control) }
func (e ControlOff) apply(m *Machine)   { m.ControlOff(e.Control) }
func (e NoteOn) apply(m *Machine)       { m.PlayNote(e.Note) }
func (e NoteOff) apply(m *Machine)      { m.StopNote(e.Note) }
func (e SetVoicing) apply(m *Machine)   { m.SetChordVoicing(e.Value) }
func (e SetSticky) apply(m *Machine)    { m.SetStickyChordTypes(e.Enabled) }
func (e SetChordType) apply(m *Machine) { m.SetChordType(e.ChordType) }
func (e PitchBend) apply(m *Machine)    { m.PitchBend(e.Value) }
func (e SwapSink) apply(m *Machine)     { m.SetSink(e.Sink) }
func (Panic) apply(m *Machine)          { m.Panic() }
