package controls

import (
	"github.com/james-see/ideamachine/pkg/theory"
)

// KeyboardNotes maps computer-keyboard keys to one octave of notes starting
// at C3: the home row plays naturals, the row above plays accidentals.
var KeyboardNotes = map[rune]theory.Note{
	'a': theory.MustNote(48), // C3
	'w': theory.MustNote(49),
	's': theory.MustNote(50),
	'e': theory.MustNote(51),
	'd': theory.MustNote(52),
	'f': theory.MustNote(53),
	't': theory.MustNote(54),
	'g': theory.MustNote(55),
	'y': theory.MustNote(56),
	'h': theory.MustNote(57),
	'u': theory.MustNote(58),
	'j': theory.MustNote(59), // B3
}

// NoteForKey returns the note played by a keyboard key
func NoteForKey(key rune) (theory.Note, bool) {
	n, ok := KeyboardNotes[key]
	return n, ok
}

// KeyForNote returns the keyboard key that plays the note, if any
func KeyForNote(n theory.Note) (rune, bool) {
	for k, v := range KeyboardNotes {
		if v == n {
			return k, true
		}
	}
	return 0, false
}
