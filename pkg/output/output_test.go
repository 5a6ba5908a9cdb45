package output

import (
	"errors"
	"math"
	"testing"

	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

var (
	_ performance.Sink        = (*MIDI)(nil)
	_ performance.PitchBender = (*MIDI)(nil)
	_ performance.Sink        = (*Synth)(nil)
)

func notes(nums ...int) []theory.Note {
	out := make([]theory.Note, len(nums))
	for i, n := range nums {
		out[i] = theory.MustNote(n)
	}
	return out
}

func TestMIDIPlayStop(t *testing.T) {
	var sent []midi.Message
	sink := NewMIDIFunc("test", func(msg midi.Message) error {
		sent = append(sent, msg)
		return nil
	}, WithChannel(2), WithVelocity(100))

	require.NoError(t, sink.Play(notes(60, 64, 67)))
	require.NoError(t, sink.Stop(notes(60, 64, 67)))
	require.NoError(t, sink.PitchBend(512))

	require.Len(t, sent, 7)
	var ch, key, vel uint8
	for i, want := range []uint8{60, 64, 67} {
		require.True(t, sent[i].GetNoteStart(&ch, &key, &vel))
		assert.Equal(t, uint8(1), ch)
		assert.Equal(t, want, key)
		assert.Equal(t, uint8(100), vel)

		require.True(t, sent[i+3].GetNoteEnd(&ch, &key))
		assert.Equal(t, want, key)
	}

	var rel int16
	var abs uint16
	require.True(t, sent[6].GetPitchBend(&ch, &rel, &abs))
	assert.Equal(t, int16(512), rel)
}

func TestMIDIDefaults(t *testing.T) {
	var sent []midi.Message
	sink := NewMIDIFunc("test", func(msg midi.Message) error {
		sent = append(sent, msg)
		return nil
	}, WithChannel(0), WithVelocity(0))

	require.NoError(t, sink.Play(notes(48)))
	var ch, key, vel uint8
	require.True(t, sent[0].GetNoteStart(&ch, &key, &vel))
	assert.Equal(t, uint8(DefaultChannel-1), ch)
	assert.Equal(t, uint8(DefaultVelocity), vel)
	assert.Equal(t, "test", sink.Name())
	assert.NoError(t, sink.Close())
}

func TestMIDISendErrors(t *testing.T) {
	boom := errors.New("boom")
	sink := NewMIDIFunc("test", func(midi.Message) error { return boom })

	err := sink.Play(notes(60, 64))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "C4")

	_, err = NewMIDI(nil)
	assert.Error(t, err)
}

func peak(samples [][2]float64) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Abs(s[0]))
	}
	return p
}

func TestSynthVoices(t *testing.T) {
	s := NewSynth(8000, 0.2, DefaultEnvelope)
	buf := make([][2]float64, 800)

	n, ok := s.Stream(buf)
	assert.Equal(t, len(buf), n)
	assert.True(t, ok)
	assert.Zero(t, peak(buf), "silent before any note")

	require.NoError(t, s.Play(notes(60, 64, 67)))
	assert.Equal(t, 3, s.Voices())

	s.Stream(buf)
	assert.Greater(t, peak(buf), 0.0)
	assert.LessOrEqual(t, peak(buf), 1.0)

	require.NoError(t, s.Stop(notes(60, 64, 67)))
	assert.Equal(t, 3, s.Voices(), "voices ring out during release")

	long := make([][2]float64, 8000+100)
	s.Stream(long)
	assert.Equal(t, 0, s.Voices())

	s.Stream(buf)
	assert.Zero(t, peak(buf))
	assert.NoError(t, s.Err())
}

func TestSynthRetrigger(t *testing.T) {
	s := NewSynth(8000, 0.2, DefaultEnvelope)
	require.NoError(t, s.Play(notes(60)))
	require.NoError(t, s.Stop(notes(60)))
	require.NoError(t, s.Play(notes(60, 60)))
	assert.Equal(t, 1, s.Voices())

	require.NoError(t, s.Stop(notes(72)))
	assert.Equal(t, 1, s.Voices())
}

func TestTriangle(t *testing.T) {
	assert.InDelta(t, 1.0, triangle(0), 1e-9)
	assert.InDelta(t, -1.0, triangle(0.5), 1e-9)
	assert.InDelta(t, 0.0, triangle(0.25), 1e-9)
}
