package performance

import (
	"github.com/james-see/ideamachine/pkg/theory"
)

// State is an immutable snapshot of the performance state
type State struct {
	SessionID        string
	ChordType        theory.ChordType
	ChordTypeStack   []theory.ChordType
	StickyChordTypes bool
	Extensions       theory.ExtensionSet
	Voicing          float64
	ActiveChords     []theory.Chord
}

// ActiveChord returns the live chord triggered by n, if any
func (s State) ActiveChord(n theory.Note) (theory.Chord, bool) {
	for _, c := range s.ActiveChords {
		if c.Trigger == n {
			return c, true
		}
	}
	return theory.Chord{}, false
}

// SoundingNotes returns every note of every active chord, in trigger order
func (s State) SoundingNotes() []theory.Note {
	var notes []theory.Note
	for _, c := range s.ActiveChords {
		notes = append(notes, c.Notes...)
	}
	return notes
}

type discard struct{}

func (discard) Play([]theory.Note) error { return nil }
func (discard) Stop([]theory.Note) error { return nil }

// Discard is a Sink that drops everything
var Discard Sink = discard{}
