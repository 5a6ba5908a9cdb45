// Package export renders chord progressions to Standard MIDI Files
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/james-see/ideamachine/pkg/theory"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Step is one chord of a progression, or a rest
type Step struct {
	Root       theory.Note
	ChordType  theory.ChordType
	Extensions theory.ExtensionSet
	Rest       bool
}

// ParseStep parses "ROOT[:TYPE[:EXT+EXT]]", for example "C4:MAJ:MAJ7+ADD9",
// "A3:MIN" or "G3". A missing type is MAJ; "NONE" plays the root alone.
// "-" is a rest.
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if s == "-" {
		return Step{Rest: true}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Step{}, fmt.Errorf("invalid step %q", s)
	}

	root, err := theory.ParseNote(parts[0])
	if err != nil {
		return Step{}, fmt.Errorf("step %q: %w", s, err)
	}
	step := Step{Root: root, ChordType: theory.Maj}
	if len(parts) > 1 {
		if step.ChordType, err = theory.ParseChordType(parts[1]); err != nil {
			return Step{}, fmt.Errorf("step %q: %w", s, err)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		for _, name := range strings.Split(parts[2], "+") {
			ext, err := theory.ParseExtension(name)
			if err != nil {
				return Step{}, fmt.Errorf("step %q: %w", s, err)
			}
			step.Extensions = step.Extensions.With(ext)
		}
	}
	return step, nil
}

// ParseProgression parses steps separated by spaces or commas
func ParseProgression(s string) ([]Step, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, errors.New("empty progression")
	}
	steps := make([]Step, 0, len(fields))
	for _, f := range fields {
		step, err := ParseStep(f)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Chord computes the notes the step plays
func (s Step) Chord(voicing float64) theory.Chord {
	if s.Rest {
		return theory.Chord{}
	}
	return theory.ComputeChord(s.Root, s.ChordType, s.Extensions, voicing)
}

// String formats the step the way ParseStep reads it
func (s Step) String() string {
	if s.Rest {
		return "-"
	}
	out := s.Root.Name() + ":" + s.ChordType.String()
	if s.Extensions.Len() > 0 {
		out += ":" + s.Extensions.String()
	}
	return out
}

// Options controls rendering
type Options struct {
	Tempo           float64
	TicksPerQuarter uint16
	BeatsPerStep    uint32
	Voicing         float64
	Channel         uint8 // 1-16
	Velocity        uint8
}

// DefaultOptions renders one 4/4 bar per step at 120 BPM
func DefaultOptions() Options {
	return Options{
		Tempo:           120,
		TicksPerQuarter: 480,
		BeatsPerStep:    4,
		Channel:         1,
		Velocity:        100,
	}
}

// Render writes the progression as a single-track SMF
func Render(steps []Step, opts Options) ([]byte, error) {
	if len(steps) == 0 {
		return nil, errors.New("no steps")
	}
	if opts.Tempo <= 0 {
		opts.Tempo = 120
	}
	if opts.TicksPerQuarter == 0 {
		opts.TicksPerQuarter = 480
	}
	if opts.BeatsPerStep == 0 {
		opts.BeatsPerStep = 4
	}
	if opts.Channel < 1 || opts.Channel > 16 {
		return nil, fmt.Errorf("channel must be 1-16, got %d", opts.Channel)
	}
	if opts.Velocity == 0 || opts.Velocity > 127 {
		opts.Velocity = 100
	}
	channel := opts.Channel - 1

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.TicksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName("ideamachine"))
	track.Add(0, smf.MetaTempo(opts.Tempo))
	track.Add(0, smf.MetaMeter(4, 4))

	stepTicks := uint32(opts.TicksPerQuarter) * opts.BeatsPerStep
	var pending uint32
	for _, step := range steps {
		notes := step.Chord(opts.Voicing).Notes
		if len(notes) == 0 {
			pending += stepTicks
			continue
		}
		for i, n := range notes {
			delta := uint32(0)
			if i == 0 {
				delta = pending
			}
			track.Add(delta, midi.NoteOn(channel, n.Number(), opts.Velocity))
		}
		for i, n := range notes {
			delta := uint32(0)
			if i == 0 {
				delta = stepTicks
			}
			track.Add(delta, midi.NoteOff(channel, n.Number()))
		}
		pending = 0
	}
	track.Close(pending)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders the progression to filename
func WriteFile(filename string, steps []Step, opts Options) error {
	data, err := Render(steps, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// Voicing is a set of notes starting on the same tick
type Voicing struct {
	Tick  int64
	Notes []uint8
}

// Chords reads an SMF and groups simultaneous note starts. It also returns
// the first tempo found, or 120.
func Chords(data []byte) ([]Voicing, float64, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	tempo := 0.0
	byTick := make(map[int64][]uint8)
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			var bpm float64
			if tempo == 0 && ev.Message.GetMetaTempo(&bpm) {
				tempo = bpm
			}
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				byTick[tick] = append(byTick[tick], key)
			}
		}
	}
	if tempo == 0 {
		tempo = 120
	}

	out := make([]Voicing, 0, len(byTick))
	for tick, notes := range byTick {
		out = append(out, Voicing{Tick: tick, Notes: notes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, tempo, nil
}
