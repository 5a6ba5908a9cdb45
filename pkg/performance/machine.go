// Package performance owns the live chord-performance state and turns
// control and note events into chords sent to an output sink
package performance

import (
	"sort"

	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/sirupsen/logrus"
)

// Sink receives the notes of chords as they start and stop sounding
type Sink interface {
	Play(notes []theory.Note) error
	Stop(notes []theory.Note) error
}

// PitchBender is implemented by sinks that accept pitch bend
type PitchBender interface {
	PitchBend(value int16) error
}

// Options configures the initial state of a Machine
type Options struct {
	StickyChordTypes bool
	ChordType        theory.ChordType
	Extensions       theory.ExtensionSet
	Voicing          float64
}

// DefaultOptions returns the initial state the instrument starts in:
// sticky chord types with MAJ selected
func DefaultOptions() Options {
	return Options{
		StickyChordTypes: true,
		ChordType:        theory.Maj,
	}
}

// Machine is the performance state machine. It is not safe for concurrent
// use; Session serializes access to it.
type Machine struct {
	log  logrus.FieldLogger
	sink Sink

	chordType      theory.ChordType
	chordTypeStack []theory.ChordType
	sticky         bool
	extensions     theory.ExtensionSet
	voicing        float64
	active         map[uint8]theory.Chord
}

// NewMachine creates a Machine that plays chords on sink. A nil sink
// discards output.
func NewMachine(sink Sink, opts Options, log logrus.FieldLogger) *Machine {
	if sink == nil {
		sink = Discard
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Machine{
		log:        log.WithField("component", "performance"),
		sink:       sink,
		chordType:  opts.ChordType,
		sticky:     opts.StickyChordTypes,
		extensions: opts.Extensions,
		voicing:    theory.ClampVoicing(opts.Voicing),
		active:     make(map[uint8]theory.Chord),
	}
}

// ControlOn handles a control being pressed
func (m *Machine) ControlOn(c controls.Control) {
	c.Accept(controlOn{m})
}

// ControlOff handles a control being released
func (m *Machine) ControlOff(c controls.Control) {
	c.Accept(controlOff{m})
}

type controlOn struct{ m *Machine }

func (v controlOn) VisitChordType(c controls.ChordTypeControl) {
	m := v.m
	if m.sticky {
		if m.chordType == c.ChordType {
			m.chordType = theory.None
		} else {
			m.chordType = c.ChordType
		}
		m.chordTypeStack = m.chordTypeStack[:0]
		return
	}
	if !containsChordType(m.chordTypeStack, c.ChordType) {
		m.chordTypeStack = append(m.chordTypeStack, c.ChordType)
	}
	m.chordType = c.ChordType
}

func (v controlOn) VisitExtension(c controls.ExtensionControl) {
	v.m.extensions = v.m.extensions.With(c.Extension)
}

type controlOff struct{ m *Machine }

func (v controlOff) VisitChordType(c controls.ChordTypeControl) {
	m := v.m
	if m.sticky {
		return
	}
	for i := len(m.chordTypeStack) - 1; i >= 0; i-- {
		if m.chordTypeStack[i] == c.ChordType {
			m.chordTypeStack = append(m.chordTypeStack[:i], m.chordTypeStack[i+1:]...)
			break
		}
	}
	if n := len(m.chordTypeStack); n > 0 {
		m.chordType = m.chordTypeStack[n-1]
	} else {
		m.chordType = theory.None
	}
}

func (v controlOff) VisitExtension(c controls.ExtensionControl) {
	v.m.extensions = v.m.extensions.Without(c.Extension)
}

func containsChordType(stack []theory.ChordType, ct theory.ChordType) bool {
	for _, s := range stack {
		if s == ct {
			return true
		}
	}
	return false
}

// PlayNote starts the chord for a trigger note. A note that already has a
// live chord is ignored.
func (m *Machine) PlayNote(n theory.Note) {
	if _, ok := m.active[n.Number()]; ok {
		m.log.WithField("note", n.Name()).Debug("note already sounding")
		return
	}
	chord := theory.ComputeChord(n, m.chordType, m.extensions, m.voicing)
	m.active[n.Number()] = chord
	if err := m.sink.Play(chord.Notes); err != nil {
		m.log.WithError(err).WithField("note", n.Name()).Warn("play failed")
	}
}

// StopNote releases the chord started by a trigger note. A note with no
// live chord is ignored.
func (m *Machine) StopNote(n theory.Note) {
	chord, ok := m.active[n.Number()]
	if !ok {
		m.log.WithField("note", n.Name()).Debug("note off without matching note on")
		return
	}
	delete(m.active, n.Number())
	if err := m.sink.Stop(chord.Notes); err != nil {
		m.log.WithError(err).WithField("note", n.Name()).Warn("stop failed")
	}
}

// SetChordVoicing sets the voicing amount, clamped to [0,1]. Chords already
// sounding keep their notes.
func (m *Machine) SetChordVoicing(v float64) {
	m.voicing = theory.ClampVoicing(v)
}

// SetStickyChordTypes switches between sticky and momentary chord-type
// selection. The momentary stack is cleared.
func (m *Machine) SetStickyChordTypes(sticky bool) {
	m.sticky = sticky
	m.chordTypeStack = m.chordTypeStack[:0]
}

// SetChordType selects a chord type directly, bypassing the controls
func (m *Machine) SetChordType(ct theory.ChordType) {
	m.chordType = ct
}

// PitchBend forwards a pitch bend value to the sink if it supports it
func (m *Machine) PitchBend(value int16) {
	pb, ok := m.sink.(PitchBender)
	if !ok {
		return
	}
	if err := pb.PitchBend(value); err != nil {
		m.log.WithError(err).Warn("pitch bend failed")
	}
}

// SetSink replaces the output sink. Sounding chords are released on the old
// sink first so no note is left hanging.
func (m *Machine) SetSink(sink Sink) {
	if sink == nil {
		sink = Discard
	}
	m.Panic()
	m.sink = sink
}

// Panic releases every sounding chord
func (m *Machine) Panic() {
	for _, key := range m.activeKeys() {
		m.StopNote(m.active[key].Trigger)
	}
}

// State returns a snapshot of the current state
func (m *Machine) State() State {
	keys := m.activeKeys()
	chords := make([]theory.Chord, 0, len(keys))
	for _, k := range keys {
		c := m.active[k]
		notes := make([]theory.Note, len(c.Notes))
		copy(notes, c.Notes)
		chords = append(chords, theory.Chord{Trigger: c.Trigger, Notes: notes})
	}
	stack := make([]theory.ChordType, len(m.chordTypeStack))
	copy(stack, m.chordTypeStack)

	return State{
		ChordType:        m.chordType,
		ChordTypeStack:   stack,
		StickyChordTypes: m.sticky,
		Extensions:       m.extensions,
		Voicing:          m.voicing,
		ActiveChords:     chords,
	}
}

func (m *Machine) activeKeys() []uint8 {
	keys := make([]uint8, 0, len(m.active))
	for k := range m.active {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
