// Package main is the entry point for the ideamachine CLI
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/james-see/ideamachine/pkg/api"
	"github.com/james-see/ideamachine/pkg/config"
	"github.com/james-see/ideamachine/pkg/device"
	"github.com/james-see/ideamachine/pkg/export"
	"github.com/james-see/ideamachine/pkg/logging"
	"github.com/james-see/ideamachine/pkg/rig"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/james-see/ideamachine/pkg/tui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string
	padChannel uint8
	sticky     bool
	noMIDI     bool
	serverPort int

	outputFile   string
	tempo        float64
	beatsPerStep uint32
	voicing      float64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ideamachine",
	Short: "Play full chords from single notes",
	Long: `ideamachine turns each note you play into a chord. Pick a chord type
(DIM, MAJ, MIN, SUS) and extensions (6, m7, M7, 9) with pads or keys, then
play notes from a MIDI controller or the computer keyboard. Chords go to a
MIDI output or the built-in synth.

Examples:
  ideamachine play
  ideamachine play --no-midi --sticky=false
  ideamachine serve --port 8080
  ideamachine devices
  ideamachine chord C4 MIN MIN7 --voicing 0.5
  ideamachine render "C4:MAJ:MAJ7 A3:MIN F3:MAJ G3:SUS" -o idea.mid`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Perform in the terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runPlay,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List MIDI input and output ports",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var chordCmd = &cobra.Command{
	Use:   "chord <root> [type] [extension...]",
	Short: "Print the notes of a chord",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChord,
}

var renderCmd = &cobra.Command{
	Use:   "render <progression>",
	Short: "Render a chord progression to a MIDI file",
	Long: `Render a progression of steps to a Standard MIDI File. Each step is
ROOT[:TYPE[:EXT+EXT]]; "-" is a rest. Steps are separated by spaces or commas.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Print the chords in a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Uint8Var(&padChannel, "pad-channel", 10, "MIDI channel (1-16) whose pad notes are controls")
	rootCmd.PersistentFlags().BoolVar(&sticky, "sticky", true, "Chord type pads toggle instead of acting while held")
	rootCmd.PersistentFlags().BoolVar(&noMIDI, "no-midi", false, "Play with the computer keyboard and built-in synth only")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// chord command
	chordCmd.Flags().Float64Var(&voicing, "voicing", 0, "Voicing 0-1: share of chord tones raised an octave")

	// render command
	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path (required)")
	renderCmd.Flags().Float64Var(&tempo, "tempo", 120, "Tempo in BPM")
	renderCmd.Flags().Uint32Var(&beatsPerStep, "beats", 4, "Beats per step")
	renderCmd.Flags().Float64Var(&voicing, "voicing", 0, "Voicing 0-1")
	_ = renderCmd.MarkFlagRequired("output")

	// Add commands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(chordCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(inspectCmd)
}

// loadConfig reads the config file and applies flags that were set
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("pad-channel") {
		cfg.MIDI.PadChannel = padChannel
	}
	if flags.Changed("sticky") {
		cfg.Performance.StickyChordTypes = sticky
	}
	if flags.Changed("no-midi") {
		cfg.NoMIDI = noMIDI
	}
	if flags.Changed("port") {
		cfg.Server.Port = serverPort
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The UI owns the terminal, so logs go to a file
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = logging.DefaultFile()
	}
	log, closer, err := logging.NewFile(cfg.LogLevel, logFile)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	r, stop, err := rig.Assemble(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stop(); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	return tui.Run(ctx, r, tui.Options{KeyHold: cfg.TUI.KeyHold.Std(), SkipMIDI: cfg.NoMIDI})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signalContext()
	defer cancel()

	r, stop, err := rig.Assemble(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stop(); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	if !cfg.NoMIDI {
		if err := r.EnableMIDI(ctx); err != nil {
			log.WithError(err).Warn("MIDI not ready, POST /api/v1/midi/enable to retry")
		}
	}

	fmt.Printf("Starting ideamachine API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)
	return api.New(r, log).StartServer(ctx, cfg.Server.Port)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	m, err := device.Open(log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	snap, err := m.Snapshot()
	if err != nil {
		return err
	}
	fmt.Println("Inputs:")
	printPorts(snap.Inputs)
	fmt.Println("Outputs:")
	printPorts(snap.Outputs)
	return nil
}

func printPorts(ports []device.Descriptor) {
	if len(ports) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, p := range ports {
		fmt.Printf("  %s\n", p.Name)
	}
}

func runChord(cmd *cobra.Command, args []string) error {
	root, err := theory.ParseNote(args[0])
	if err != nil {
		return err
	}
	ct := theory.Maj
	if len(args) > 1 {
		if ct, err = theory.ParseChordType(args[1]); err != nil {
			return err
		}
	}
	var exts theory.ExtensionSet
	for _, name := range args[min(len(args), 2):] {
		e, err := theory.ParseExtension(name)
		if err != nil {
			return err
		}
		exts = exts.With(e)
	}

	chord := theory.ComputeChord(root, ct, exts, voicing)
	fmt.Printf("%s %s", root.Name(), ct)
	if exts.Len() > 0 {
		fmt.Printf(" %s", exts)
	}
	fmt.Printf(": %s (%v)\n", strings.Join(theory.Names(chord.Notes), " "), theory.Numbers(chord.Notes))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	steps, err := export.ParseProgression(strings.Join(args, " "))
	if err != nil {
		return err
	}
	opts := export.DefaultOptions()
	opts.Tempo = tempo
	opts.BeatsPerStep = beatsPerStep
	opts.Voicing = voicing

	if err := export.WriteFile(outputFile, steps, opts); err != nil {
		return err
	}
	fmt.Printf("✓ Rendered %d steps to %s\n", len(steps), outputFile)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read MIDI file: %w", err)
	}
	chords, bpm, err := export.Chords(data)
	if err != nil {
		return err
	}
	fmt.Printf("Tempo: %.1f BPM\n", bpm)
	for _, c := range chords {
		names := make([]string, 0, len(c.Notes))
		for _, n := range c.Notes {
			note, err := theory.NewNote(int(n))
			if err != nil {
				return err
			}
			names = append(names, note.Name())
		}
		fmt.Printf("%8d  %s\n", c.Tick, strings.Join(names, " "))
	}
	if len(chords) == 0 {
		return errors.New("no notes found")
	}
	return nil
}
