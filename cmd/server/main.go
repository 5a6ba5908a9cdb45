// Package main is the entry point for the ideamachine API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/james-see/ideamachine/pkg/api"
	"github.com/james-see/ideamachine/pkg/config"
	"github.com/james-see/ideamachine/pkg/logging"
	"github.com/james-see/ideamachine/pkg/rig"
)

func main() {
	configPath := flag.String("config", "", "Config file (TOML)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	noMIDI := flag.Bool("no-midi", false, "Disable MIDI devices")
	flag.Parse()

	if err := run(*configPath, *port, *noMIDI); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int, noMIDI bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	cfg.NoMIDI = cfg.NoMIDI || noMIDI

	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, stop, err := rig.Assemble(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = stop() }()

	if !cfg.NoMIDI {
		if err := r.EnableMIDI(ctx); err != nil {
			log.WithError(err).Warn("MIDI not ready")
		}
	}

	fmt.Printf("Starting ideamachine API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)
	return api.New(r, log).StartServer(ctx, cfg.Server.Port)
}
