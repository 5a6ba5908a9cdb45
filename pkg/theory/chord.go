package theory

import (
	"fmt"
	"math"
	"strings"
)

// ChordType selects the scale a triad is built from
type ChordType uint8

// Chord types. None passes the played note through unchanged.
const (
	None ChordType = iota
	Maj
	Min
	Dim
	Sus
)

// ChordTypes lists the selectable chord types in presentation order
var ChordTypes = []ChordType{Maj, Min, Dim, Sus}

// scales holds the 7-degree scale offsets for each chord type
var scales = map[ChordType][7]int{
	Maj: {0, 2, 4, 5, 7, 9, 11},
	Min: {0, 2, 3, 5, 7, 8, 10},
	Dim: {0, 2, 3, 5, 6, 8, 10},
	Sus: {0, 2, 5, 5, 7, 9, 11},
}

// triad degrees: root, third, fifth
var triadDegrees = [3]int{0, 2, 4}

// String returns the chord type name
func (c ChordType) String() string {
	switch c {
	case None:
		return "NONE"
	case Maj:
		return "MAJ"
	case Min:
		return "MIN"
	case Dim:
		return "DIM"
	case Sus:
		return "SUS"
	default:
		return fmt.Sprintf("ChordType(%d)", uint8(c))
	}
}

// Scale returns the scale offsets for the chord type, or nil for None
func (c ChordType) Scale() []int {
	s, ok := scales[c]
	if !ok {
		return nil
	}
	return s[:]
}

// ParseChordType parses a chord type name (case-insensitive). The empty
// string and "none" parse to None.
func ParseChordType(s string) (ChordType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return None, nil
	case "MAJ":
		return Maj, nil
	case "MIN":
		return Min, nil
	case "DIM":
		return Dim, nil
	case "SUS":
		return Sus, nil
	}
	return None, fmt.Errorf("unknown chord type %q", s)
}

// ChordExtension is an extra chord tone, valued as its semitone offset from
// the root
type ChordExtension uint8

// Chord extensions
const (
	Add6 ChordExtension = 9
	Min7 ChordExtension = 10
	Maj7 ChordExtension = 11
	Add9 ChordExtension = 14
)

// Extensions lists all extensions in declaration order
var Extensions = []ChordExtension{Add6, Min7, Maj7, Add9}

// String returns the extension name
func (e ChordExtension) String() string {
	switch e {
	case Add6:
		return "ADD6"
	case Min7:
		return "MIN7"
	case Maj7:
		return "MAJ7"
	case Add9:
		return "ADD9"
	default:
		return fmt.Sprintf("ChordExtension(%d)", uint8(e))
	}
}

// Semitones returns the offset from the chord root
func (e ChordExtension) Semitones() int {
	return int(e)
}

// ParseExtension parses an extension name such as "maj7"
func ParseExtension(s string) (ChordExtension, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, e := range Extensions {
		if e.String() == want {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown chord extension %q", s)
}

func (e ChordExtension) bit() ExtensionSet {
	for i, ext := range Extensions {
		if ext == e {
			return 1 << i
		}
	}
	return 0
}

// ExtensionSet is a set of chord extensions. The zero value is empty.
type ExtensionSet uint8

// NewExtensionSet builds a set from the given extensions
func NewExtensionSet(exts ...ChordExtension) ExtensionSet {
	var s ExtensionSet
	for _, e := range exts {
		s = s.With(e)
	}
	return s
}

// Has reports whether e is in the set
func (s ExtensionSet) Has(e ChordExtension) bool {
	b := e.bit()
	return b != 0 && s&b != 0
}

// With returns the set with e added
func (s ExtensionSet) With(e ChordExtension) ExtensionSet {
	return s | e.bit()
}

// Without returns the set with e removed
func (s ExtensionSet) Without(e ChordExtension) ExtensionSet {
	return s &^ e.bit()
}

// Len returns the number of extensions in the set
func (s ExtensionSet) Len() int {
	n := 0
	for _, e := range Extensions {
		if s.Has(e) {
			n++
		}
	}
	return n
}

// List returns the extensions in declaration order
func (s ExtensionSet) List() []ChordExtension {
	list := make([]ChordExtension, 0, len(Extensions))
	for _, e := range Extensions {
		if s.Has(e) {
			list = append(list, e)
		}
	}
	return list
}

// String returns a "+"-joined list of extension names
func (s ExtensionSet) String() string {
	names := make([]string, 0, len(Extensions))
	for _, e := range s.List() {
		names = append(names, e.String())
	}
	return strings.Join(names, "+")
}

// Chord is the record of a chord triggered by a single note
type Chord struct {
	Trigger Note
	Notes   []Note
}

// Offsets returns the semitone offsets of a chord before voicing is applied:
// the triad degrees first, then the extensions in declaration order.
// A diminished chord turns the minor seventh into a diminished seventh.
func Offsets(chordType ChordType, exts ExtensionSet) []int {
	scale := chordType.Scale()
	if scale == nil {
		return []int{0}
	}
	offsets := make([]int, 0, len(triadDegrees)+len(Extensions))
	for _, degree := range triadDegrees {
		if degree < len(scale) {
			offsets = append(offsets, scale[degree])
		}
	}
	for _, e := range exts.List() {
		offset := e.Semitones()
		if chordType == Dim && e == Min7 {
			offset--
		}
		offsets = append(offsets, offset)
	}
	return offsets
}

// VoicingCount returns how many leading offsets are raised an octave for
// the given voicing amount
func VoicingCount(voicing float64, offsetCount int) int {
	return int(math.Floor(ClampVoicing(voicing) * float64(offsetCount)))
}

// ClampVoicing limits a voicing amount to [0,1]. NaN becomes 0.
func ClampVoicing(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// ComputeChord builds the chord for a base note. With chord type None the
// chord is the base note alone. Otherwise the triad and extension offsets
// are computed, the first floor(voicing*len) of them are raised an octave and
// each is added to the base note.
//
// A raised note above the MIDI range stays in its original octave. Notes
// that still fall outside the range are left out; the root always fits, so
// a chord is never empty. Coinciding notes are kept as duplicates.
func ComputeChord(base Note, chordType ChordType, exts ExtensionSet, voicing float64) Chord {
	if chordType == None || chordType.Scale() == nil {
		return Chord{Trigger: base, Notes: []Note{base}}
	}

	offsets := Offsets(chordType, exts)
	raised := VoicingCount(voicing, len(offsets))

	notes := make([]Note, 0, len(offsets))
	for i, offset := range offsets {
		if i < raised {
			if n, err := base.Transpose(offset + 12); err == nil {
				notes = append(notes, n)
				continue
			}
		}
		n, err := base.Transpose(offset)
		if err != nil {
			continue
		}
		notes = append(notes, n)
	}
	return Chord{Trigger: base, Notes: notes}
}
