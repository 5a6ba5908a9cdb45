// Package output provides the sinks chords are played on: a MIDI output
// port or the internal synthesizer
package output

import (
	"errors"
	"fmt"

	"github.com/james-see/ideamachine/pkg/theory"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Default note-on settings for the MIDI sink
const (
	DefaultChannel  = 1
	DefaultVelocity = 64
)

// MIDI sends chords as note-on/note-off messages
type MIDI struct {
	name     string
	send     func(msg midi.Message) error
	port     drivers.Out
	channel  uint8
	velocity uint8
}

// MIDIOption configures a MIDI sink
type MIDIOption func(*MIDI)

// WithChannel sets the 1-based output channel
func WithChannel(ch uint8) MIDIOption {
	return func(m *MIDI) {
		if ch >= 1 && ch <= 16 {
			m.channel = ch - 1
		}
	}
}

// WithVelocity sets the note-on velocity
func WithVelocity(v uint8) MIDIOption {
	return func(m *MIDI) {
		if v >= 1 && v <= 127 {
			m.velocity = v
		}
	}
}

// NewMIDI opens out and returns a sink that writes to it
func NewMIDI(out drivers.Out, opts ...MIDIOption) (*MIDI, error) {
	if out == nil {
		return nil, errors.New("nil output port")
	}
	if !out.IsOpen() {
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("open %q: %w", out.String(), err)
		}
	}
	send, err := midi.SendTo(out)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("send to %q: %w", out.String(), err)
	}
	m := NewMIDIFunc(out.String(), send, opts...)
	m.port = out
	return m, nil
}

// NewMIDIFunc returns a sink that hands messages to send
func NewMIDIFunc(name string, send func(msg midi.Message) error, opts ...MIDIOption) *MIDI {
	m := &MIDI{
		name:     name,
		send:     send,
		channel:  DefaultChannel - 1,
		velocity: DefaultVelocity,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the output port name
func (m *MIDI) Name() string {
	return m.name
}

// Play sends a note-on for every note
func (m *MIDI) Play(notes []theory.Note) error {
	var errs []error
	for _, n := range notes {
		if err := m.send(midi.NoteOn(m.channel, n.Number(), m.velocity)); err != nil {
			errs = append(errs, fmt.Errorf("note on %s: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

// Stop sends a note-off for every note
func (m *MIDI) Stop(notes []theory.Note) error {
	var errs []error
	for _, n := range notes {
		if err := m.send(midi.NoteOff(m.channel, n.Number())); err != nil {
			errs = append(errs, fmt.Errorf("note off %s: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

// PitchBend sends a pitch bend message
func (m *MIDI) PitchBend(value int16) error {
	return m.send(midi.Pitchbend(m.channel, value))
}

// Close closes the output port, if the sink owns one
func (m *MIDI) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}
