package rig

import (
	"context"
	"errors"
	"fmt"

	"github.com/james-see/ideamachine/pkg/config"
	"github.com/james-see/ideamachine/pkg/output"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/settings"
	"github.com/sirupsen/logrus"
)

// Assemble builds a rig from configuration with the settings file and the
// internal synth, and starts its session. Stop cancels the session, waits
// for it to release every chord and closes all devices.
func Assemble(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (r *Rig, stop func() error, err error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	path := cfg.SettingsPath
	if path == "" {
		if path, err = settings.DefaultPath(); err != nil {
			return nil, nil, fmt.Errorf("settings path: %w", err)
		}
	}
	store, err := settings.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}

	var (
		sink  performance.Sink = performance.Discard
		synth *output.Synth
	)
	if cfg.Synth.Enabled {
		synth = output.NewSynth(cfg.Synth.SampleRate, cfg.Synth.Gain, output.DefaultEnvelope)
		if err := synth.Start(); err != nil {
			log.WithError(err).Warn("internal synth unavailable")
			synth = nil
		} else {
			sink = synth
		}
	}

	r, err = New(Options{Config: cfg, Store: store, Sink: sink, Log: log})
	if err != nil {
		if synth != nil {
			_ = synth.Close()
		}
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.Start(ctx)
	stop = func() error {
		cancel()
		<-r.Done()
		errs := []error{r.Close()}
		if synth != nil {
			errs = append(errs, synth.Close())
		}
		return errors.Join(errs...)
	}
	return r, stop, nil
}
