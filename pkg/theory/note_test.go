package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNoteRange(t *testing.T) {
	_, err := NewNote(128)
	assert.ErrorIs(t, err, ErrNoteRange)

	_, err = NewNote(-1)
	assert.ErrorIs(t, err, ErrNoteRange)

	n, err := NewNote(127)
	require.NoError(t, err)
	assert.Equal(t, uint8(127), n.Number())
}

func TestNoteName(t *testing.T) {
	tests := []struct {
		number int
		name   string
	}{
		{0, "C-1"},
		{48, "C3"},
		{49, "C#3"},
		{60, "C4"},
		{69, "A4"},
		{127, "G9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, MustNote(tt.number).Name())
		})
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"C3", 48, false},
		{"c#3", 49, false},
		{"Db3", 49, false},
		{"B3", 59, false},
		{"Bb3", 58, false},
		{"A-1", 9, false},
		{"60", 60, false},
		{"128", 0, true},
		{"H3", 0, true},
		{"C", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseNote(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Number())
		})
	}
}

func TestNoteFrequency(t *testing.T) {
	assert.InDelta(t, 440.0, MustNote(69).Frequency(), 1e-9)
	assert.InDelta(t, 261.6256, MustNote(60).Frequency(), 1e-3)
}
