// Package theory provides the note and chord model used by the instrument
package theory

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoteRange is returned when a note number falls outside 0-127
var ErrNoteRange = errors.New("note out of MIDI range")

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var pitchClasses = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "DB": 1,
	"D":  2,
	"D#": 3, "EB": 3,
	"E": 4, "FB": 4,
	"F": 5, "E#": 5,
	"F#": 6, "GB": 6,
	"G":  7,
	"G#": 8, "AB": 8,
	"A":  9,
	"A#": 10, "BB": 10,
	"B": 11, "CB": 11,
}

// Note is a MIDI note number (0-127). The zero value is C-1.
type Note struct {
	number uint8
}

// NewNote creates a Note from a MIDI note number
func NewNote(number int) (Note, error) {
	if number < 0 || number > 127 {
		return Note{}, fmt.Errorf("%w: %d", ErrNoteRange, number)
	}
	return Note{number: uint8(number)}, nil
}

// MustNote is like NewNote but panics on an invalid number.
// Intended for tables and tests.
func MustNote(number int) Note {
	n, err := NewNote(number)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseNote accepts a note name such as "C#3", "Db3" or "A-1", or a plain
// decimal note number such as "60". Middle C is C4 (60).
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Note{}, errors.New("empty note")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return NewNote(n)
	}

	upper := strings.ToUpper(s)
	split := 1
	if len(upper) > 1 && (upper[1] == '#' || upper[1] == 'B') {
		split = 2
	}
	pc, ok := pitchClasses[upper[:split]]
	if !ok {
		return Note{}, fmt.Errorf("invalid note name %q", s)
	}
	octave, err := strconv.Atoi(upper[split:])
	if err != nil {
		return Note{}, fmt.Errorf("invalid octave in note %q", s)
	}
	return NewNote((octave+1)*12 + pc)
}

// Number returns the MIDI note number
func (n Note) Number() uint8 {
	return n.number
}

// Name returns the human-readable identifier, e.g. "C#3"
func (n Note) Name() string {
	return fmt.Sprintf("%s%d", noteNames[n.number%12], int(n.number)/12-1)
}

// String implements fmt.Stringer
func (n Note) String() string {
	return n.Name()
}

// Frequency returns the equal-tempered frequency in Hz (A4 = 440)
func (n Note) Frequency() float64 {
	return 440 * math.Pow(2, (float64(n.number)-69)/12)
}

// Transpose returns the note shifted by the given number of semitones.
func (n Note) Transpose(semitones int) (Note, error) {
	return NewNote(int(n.number) + semitones)
}

// Names returns the identifiers of the given notes
func Names(notes []Note) []string {
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = n.Name()
	}
	return names
}

// Numbers returns the MIDI numbers of the given notes
func Numbers(notes []Note) []uint8 {
	nums := make([]uint8, len(notes))
	for i, n := range notes {
		nums[i] = n.number
	}
	return nums
}
