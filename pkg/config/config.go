// Package config loads the instrument configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/input"
	"github.com/james-see/ideamachine/pkg/output"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/pelletier/go-toml/v2"
)

// Config holds every tunable of the instrument
type Config struct {
	LogLevel     string `toml:"log_level"`
	LogFile      string `toml:"log_file"`
	SettingsPath string `toml:"settings_path"`
	NoMIDI       bool   `toml:"no_midi"`

	Performance Performance `toml:"performance"`
	MIDI        MIDI        `toml:"midi"`
	Synth       Synth       `toml:"synth"`
	Server      Server      `toml:"server"`
	TUI         TUI         `toml:"tui"`
}

// Performance holds the initial performance state
type Performance struct {
	StickyChordTypes bool    `toml:"sticky_chord_types"`
	ChordType        string  `toml:"chord_type"`
	Voicing          float64 `toml:"voicing"`
}

// MIDI holds controller and output settings
type MIDI struct {
	PadChannel        uint8    `toml:"pad_channel"`
	VoicingController uint8    `toml:"voicing_controller"`
	OutputChannel     uint8    `toml:"output_channel"`
	Velocity          uint8    `toml:"velocity"`
	RescanInterval    Duration `toml:"rescan_interval"`
}

// Synth holds internal synthesizer settings
type Synth struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate int     `toml:"sample_rate"`
	Gain       float64 `toml:"gain"`
}

// Server holds API server settings
type Server struct {
	Port int `toml:"port"`
}

// TUI holds terminal UI settings
type TUI struct {
	// KeyHold is how long a key counts as held after its last press;
	// terminals report no key releases.
	KeyHold Duration `toml:"key_hold"`
}

// Duration is a time.Duration written as a string such as "500ms"
type Duration time.Duration

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogLevel: "info",
		Performance: Performance{
			StickyChordTypes: true,
			ChordType:        "MAJ",
		},
		MIDI: MIDI{
			PadChannel:        controls.DefaultPadChannel,
			VoicingController: input.DefaultVoicingController,
			OutputChannel:     output.DefaultChannel,
			Velocity:          output.DefaultVelocity,
			RescanInterval:    Duration(time.Second),
		},
		Synth: Synth{
			Enabled:    true,
			SampleRate: 44100,
			Gain:       0.2,
		},
		Server: Server{Port: 8080},
		TUI:    TUI{KeyHold: Duration(550 * time.Millisecond)},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges
func (c Config) Validate() error {
	var errs []error
	if c.MIDI.PadChannel < 1 || c.MIDI.PadChannel > 16 {
		errs = append(errs, fmt.Errorf("midi.pad_channel must be 1-16, got %d", c.MIDI.PadChannel))
	}
	if c.MIDI.OutputChannel < 1 || c.MIDI.OutputChannel > 16 {
		errs = append(errs, fmt.Errorf("midi.output_channel must be 1-16, got %d", c.MIDI.OutputChannel))
	}
	if c.MIDI.VoicingController > 127 {
		errs = append(errs, fmt.Errorf("midi.voicing_controller must be 0-127, got %d", c.MIDI.VoicingController))
	}
	if c.MIDI.Velocity < 1 || c.MIDI.Velocity > 127 {
		errs = append(errs, fmt.Errorf("midi.velocity must be 1-127, got %d", c.MIDI.Velocity))
	}
	if c.Performance.Voicing < 0 || c.Performance.Voicing > 1 {
		errs = append(errs, fmt.Errorf("performance.voicing must be 0-1, got %v", c.Performance.Voicing))
	}
	if _, err := theory.ParseChordType(c.Performance.ChordType); err != nil {
		errs = append(errs, fmt.Errorf("performance.chord_type: %w", err))
	}
	if c.Synth.Enabled && c.Synth.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("synth.sample_rate must be positive, got %d", c.Synth.SampleRate))
	}
	return errors.Join(errs...)
}

// PerformanceOptions converts the performance section into machine options
func (c Config) PerformanceOptions() (performance.Options, error) {
	ct, err := theory.ParseChordType(c.Performance.ChordType)
	if err != nil {
		return performance.Options{}, err
	}
	return performance.Options{
		StickyChordTypes: c.Performance.StickyChordTypes,
		ChordType:        ct,
		Voicing:          c.Performance.Voicing,
	}, nil
}

// Registry builds the control registry for the configured pad channel
func (c Config) Registry() *controls.Registry {
	return controls.NewRegistry(c.MIDI.PadChannel, controls.Defaults())
}
