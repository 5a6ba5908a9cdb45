package theory

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeChordTriads(t *testing.T) {
	for _, ct := range ChordTypes {
		t.Run(ct.String(), func(t *testing.T) {
			for base := 0; base <= 115; base++ {
				chord := ComputeChord(MustNote(base), ct, 0, 0)
				scale := ct.Scale()
				require.Len(t, chord.Notes, 3)
				assert.Equal(t, []uint8{
					uint8(base + scale[0]),
					uint8(base + scale[2]),
					uint8(base + scale[4]),
				}, Numbers(chord.Notes))
				assert.Equal(t, uint8(base), chord.Trigger.Number())
			}
		})
	}
}

func TestComputeChordPassThrough(t *testing.T) {
	base := MustNote(61)
	chord := ComputeChord(base, None, NewExtensionSet(Maj7, Add9), 1)

	assert.Equal(t, base, chord.Trigger)
	assert.Equal(t, []Note{base}, chord.Notes)
}

func TestComputeChordDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	voicings := []float64{0, 0.3, 0.5, 1}

	for i := 0; i < 500; i++ {
		base := MustNote(rng.Intn(128))
		ct := ChordTypes[rng.Intn(len(ChordTypes))]
		exts := ExtensionSet(rng.Intn(16))
		v := voicings[rng.Intn(len(voicings))]

		first := ComputeChord(base, ct, exts, v)
		second := ComputeChord(base, ct, exts, v)
		assert.Equal(t, first, second, "base=%s type=%s exts=%s voicing=%v", base, ct, exts, v)
	}
}

func TestComputeChordDiminishedSeventh(t *testing.T) {
	chord := ComputeChord(MustNote(60), Dim, NewExtensionSet(Min7), 0)
	nums := Numbers(chord.Notes)

	assert.Contains(t, nums, uint8(69))
	assert.NotContains(t, nums, uint8(70))
	assert.Equal(t, []uint8{60, 63, 66, 69}, nums)
}

func TestComputeChordMinorSeventhOnOtherTypes(t *testing.T) {
	for _, ct := range []ChordType{Maj, Min, Sus} {
		chord := ComputeChord(MustNote(60), ct, NewExtensionSet(Min7), 0)
		assert.Contains(t, Numbers(chord.Notes), uint8(70), ct.String())
	}
}

func TestComputeChordVoicingMonotonic(t *testing.T) {
	base := MustNote(48)
	exts := NewExtensionSet(Add6, Maj7, Add9)
	closed := Numbers(ComputeChord(base, Maj, exts, 0).Notes)

	prev := -1
	for step := 0; step <= 20; step++ {
		v := float64(step) / 20
		notes := Numbers(ComputeChord(base, Maj, exts, v).Notes)
		require.Len(t, notes, len(closed))

		raised := 0
		for i := range notes {
			switch int(notes[i]) - int(closed[i]) {
			case 12:
				raised++
			case 0:
			default:
				t.Fatalf("voicing %v moved note %d by %d", v, i, int(notes[i])-int(closed[i]))
			}
		}
		assert.Equal(t, VoicingCount(v, len(closed)), raised)
		assert.GreaterOrEqual(t, raised, prev)
		prev = raised
	}
	assert.Equal(t, len(closed), prev)
}

func TestComputeChordVoicingRaisesByPosition(t *testing.T) {
	chord := ComputeChord(MustNote(60), Maj, NewExtensionSet(Maj7), 0.5)
	assert.Equal(t, []uint8{72, 76, 67, 71}, Numbers(chord.Notes))
}

func TestComputeChordEndToEndMaj7(t *testing.T) {
	chord := ComputeChord(MustNote(60), Maj, NewExtensionSet(Maj7), 0)
	assert.Equal(t, []uint8{60, 64, 67, 71}, Numbers(chord.Notes))
}

func TestComputeChordKeepsDuplicates(t *testing.T) {
	// ADD6 and the diminished seventh are both 9 semitones above the root
	chord := ComputeChord(MustNote(60), Dim, NewExtensionSet(Add6, Min7), 0)
	assert.Equal(t, []uint8{60, 63, 66, 69, 69}, Numbers(chord.Notes))
}

func TestComputeChordDropsOutOfRange(t *testing.T) {
	chord := ComputeChord(MustNote(120), Maj, NewExtensionSet(Add9), 0)
	// 120, 124, 127 fit; 134 does not
	assert.Equal(t, []uint8{120, 124, 127}, Numbers(chord.Notes))
}

func TestComputeChordHighVoicingNeverEmpty(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		voicing float64
		want    []uint8
	}{
		{"top note fully raised", 127, 1, []uint8{127}},
		{"raised root falls back", 120, 1, []uint8{120, 124, 127}},
		{"partly raised", 110, 0.4, []uint8{122, 114, 117}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chord := ComputeChord(MustNote(tt.base), Maj, 0, tt.voicing)
			assert.Equal(t, tt.want, Numbers(chord.Notes))
			assert.NotEmpty(t, chord.Notes)
		})
	}
}

func TestExtensionSet(t *testing.T) {
	s := NewExtensionSet(Add9, Add6)
	assert.True(t, s.Has(Add6))
	assert.True(t, s.Has(Add9))
	assert.False(t, s.Has(Min7))
	assert.Equal(t, []ChordExtension{Add6, Add9}, s.List())
	assert.Equal(t, "ADD6+ADD9", s.String())

	s = s.With(Add6).Without(Add9)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Has(ChordExtension(3)))
}

func TestParseChordType(t *testing.T) {
	tests := []struct {
		in      string
		want    ChordType
		wantErr bool
	}{
		{"maj", Maj, false},
		{"MIN", Min, false},
		{" dim ", Dim, false},
		{"Sus", Sus, false},
		{"", None, false},
		{"none", None, false},
		{"aug", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChordType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseExtension(t *testing.T) {
	e, err := ParseExtension("maj7")
	require.NoError(t, err)
	assert.Equal(t, Maj7, e)

	_, err = ParseExtension("sharp11")
	assert.Error(t, err)
}
