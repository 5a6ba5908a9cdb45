package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"C4:MAJ:MAJ7", "C4:MAJ:MAJ7"},
		{"a3:min", "A3:MIN"},
		{"G3", "G3:MAJ"},
		{"D4:sus:add6+add9", "D4:SUS:ADD6+ADD9"},
		{"60:NONE", "C4:NONE"},
		{"-", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			step, err := ParseStep(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, step.String())
		})
	}
}

func TestParseStepErrors(t *testing.T) {
	for _, in := range []string{"", "H4", "C4:AUG", "C4:MAJ:ADD11", "C4:MAJ:MAJ7:x"} {
		_, err := ParseStep(in)
		assert.Error(t, err, in)
	}
}

func TestParseProgression(t *testing.T) {
	steps, err := ParseProgression("C4:MAJ, A3:MIN  F3:MAJ:MAJ7,G3")
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, theory.Min, steps[1].ChordType)
	assert.True(t, steps[2].Extensions.Has(theory.Maj7))

	_, err = ParseProgression(" , ")
	assert.Error(t, err)
}

func TestRenderRoundTrip(t *testing.T) {
	steps, err := ParseProgression("C4:MAJ:MAJ7 - A3:MIN")
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Tempo = 90
	data, err := Render(steps, opts)
	require.NoError(t, err)

	chords, tempo, err := Chords(data)
	require.NoError(t, err)
	assert.InDelta(t, 90, tempo, 0.01)

	bar := int64(opts.TicksPerQuarter) * 4
	require.Len(t, chords, 2)
	assert.Equal(t, int64(0), chords[0].Tick)
	assert.Equal(t, []uint8{60, 64, 67, 71}, chords[0].Notes)
	assert.Equal(t, 2*bar, chords[1].Tick, "the rest leaves a silent bar")
	assert.Equal(t, []uint8{57, 60, 64}, chords[1].Notes)
}

func TestRenderVoicing(t *testing.T) {
	steps := []Step{{Root: theory.MustNote(60), ChordType: theory.Maj, Extensions: theory.NewExtensionSet(theory.Maj7)}}
	opts := DefaultOptions()
	opts.Voicing = 0.5

	data, err := Render(steps, opts)
	require.NoError(t, err)
	chords, _, err := Chords(data)
	require.NoError(t, err)
	require.Len(t, chords, 1)
	assert.Equal(t, theory.Numbers(steps[0].Chord(0.5).Notes), chords[0].Notes)
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(nil, DefaultOptions())
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.Channel = 17
	_, err = Render([]Step{{Rest: true}}, opts)
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progression.mid")
	steps, err := ParseProgression("C4 G3")
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, steps, DefaultOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MThd", string(data[:4]))
}
