package output

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/james-see/ideamachine/pkg/theory"
)

// Envelope is an ADSR amplitude envelope
type Envelope struct {
	Attack  time.Duration
	Decay   time.Duration
	Sustain float64
	Release time.Duration
}

// DefaultEnvelope is a short pluck that settles at a low sustain
var DefaultEnvelope = Envelope{
	Attack:  5 * time.Millisecond,
	Decay:   100 * time.Millisecond,
	Sustain: 0.3,
	Release: time.Second,
}

type stage int

const (
	attack stage = iota
	decay
	sustain
	release
	finished
)

type voice struct {
	freq  float64
	phase float64
	level float64
	stage stage
	step  float64
}

// Synth is a polyphonic triangle-wave synthesizer. It implements
// beep.Streamer; Start hands it to the speaker.
type Synth struct {
	sr   beep.SampleRate
	gain float64
	env  Envelope

	mu     sync.Mutex
	voices map[uint8]*voice
}

// NewSynth creates a synth for the given sample rate. gain scales each
// voice; values around 0.2 leave headroom for full chords.
func NewSynth(sampleRate int, gain float64, env Envelope) *Synth {
	if env.Sustain < 0 || env.Sustain > 1 {
		env.Sustain = DefaultEnvelope.Sustain
	}
	return &Synth{
		sr:     beep.SampleRate(sampleRate),
		gain:   gain,
		env:    env,
		voices: make(map[uint8]*voice),
	}
}

// Start opens the audio device and starts streaming
func (s *Synth) Start() error {
	if err := speaker.Init(s.sr, s.sr.N(time.Second/20)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(s)
	return nil
}

// Close stops audio output
func (s *Synth) Close() error {
	speaker.Close()
	return nil
}

// Play triggers a voice for each note. A note that is already sounding is
// retriggered.
func (s *Synth) Play(notes []theory.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notes {
		v, ok := s.voices[n.Number()]
		if !ok {
			v = &voice{freq: n.Frequency()}
			s.voices[n.Number()] = v
		}
		s.enter(v, attack)
	}
	return nil
}

// Stop releases the voices for the given notes
func (s *Synth) Stop(notes []theory.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notes {
		if v, ok := s.voices[n.Number()]; ok && v.stage < release {
			s.enter(v, release)
		}
	}
	return nil
}

// Voices returns the number of voices still producing sound
func (s *Synth) Voices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// Stream implements beep.Streamer
func (s *Synth) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rate := float64(s.sr)
	for i := range samples {
		var mix float64
		for key, v := range s.voices {
			s.advance(v)
			if v.stage == finished {
				delete(s.voices, key)
				continue
			}
			mix += triangle(v.phase) * v.level * s.gain
			v.phase += v.freq / rate
			if v.phase >= 1 {
				v.phase -= math.Floor(v.phase)
			}
		}
		mix = math.Max(-1, math.Min(1, mix))
		samples[i][0] = mix
		samples[i][1] = mix
	}
	return len(samples), true
}

// Err implements beep.Streamer
func (s *Synth) Err() error {
	return nil
}

func (s *Synth) samples(d time.Duration) float64 {
	n := float64(s.sr.N(d))
	if n < 1 {
		return 1
	}
	return n
}

// enter switches a voice to a new envelope stage and sets its per-sample
// level change
func (s *Synth) enter(v *voice, st stage) {
	v.stage = st
	switch st {
	case attack:
		v.step = (1 - v.level) / s.samples(s.env.Attack)
	case decay:
		v.step = (1 - s.env.Sustain) / s.samples(s.env.Decay)
	case release:
		v.step = v.level / s.samples(s.env.Release)
	default:
		v.step = 0
	}
}

func (s *Synth) advance(v *voice) {
	switch v.stage {
	case attack:
		v.level += v.step
		if v.level >= 1 {
			v.level = 1
			s.enter(v, decay)
		}
	case decay:
		v.level -= v.step
		if v.level <= s.env.Sustain {
			v.level = s.env.Sustain
			s.enter(v, sustain)
		}
	case release:
		v.level -= v.step
		if v.level <= 0 || v.step == 0 {
			v.level = 0
			s.enter(v, finished)
		}
	}
}

// triangle maps a phase in [0,1) to a triangle wave in [-1,1]
func triangle(phase float64) float64 {
	return 4*math.Abs(phase-0.5) - 1
}
