// Package rig assembles a performance: the session, its input adapters, the
// output sink and the persisted device selection
package rig

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/james-see/ideamachine/pkg/config"
	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/device"
	"github.com/james-see/ideamachine/pkg/input"
	"github.com/james-see/ideamachine/pkg/output"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/settings"
	"github.com/sirupsen/logrus"
)

// ErrMIDIDisabled is returned by EnableMIDI when MIDI is turned off in the
// configuration
var ErrMIDIDisabled = fmt.Errorf("%w: disabled by configuration", device.ErrUnavailable)

// Role names a device slot
type Role string

// Device slots
const (
	RoleController Role = "controller"
	RoleDAW        Role = "daw"
	RoleOutput     Role = "output"
)

// Roles lists every slot
var Roles = []Role{RoleController, RoleDAW, RoleOutput}

// ParseRole parses a slot name
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown device role %q", s)
}

// Key returns the settings key that persists the slot's device ID
func (r Role) Key() string {
	switch r {
	case RoleController:
		return settings.ControllerInputID
	case RoleDAW:
		return settings.DAWInputID
	default:
		return settings.OutputID
	}
}

// Selection is the device bound to each slot, "" when none
type Selection struct {
	ControllerInputID string `json:"controllerInputId"`
	DAWInputID        string `json:"dawInputId"`
	OutputID          string `json:"outputId"`
}

// Options configures a Rig
type Options struct {
	Config config.Config
	Store  settings.Store
	// Sink plays chords while no MIDI output is selected. Nil discards them.
	Sink performance.Sink
	Log  logrus.FieldLogger
	// OpenDevices enables MIDI access. Defaults to device.Open.
	OpenDevices func(logrus.FieldLogger) (*device.Manager, error)
}

// Rig owns one performance session and everything wired to it
type Rig struct {
	cfg      config.Config
	log      logrus.FieldLogger
	store    settings.Store
	registry *controls.Registry
	fallback performance.Sink
	open     func(logrus.FieldLogger) (*device.Manager, error)

	session    *performance.Session
	keyboard   *input.Keyboard
	controller *input.MIDIController
	daw        *input.DAWClock

	mu      sync.Mutex
	running context.Context
	devices *device.Manager
	out     *output.MIDI
}

// New builds a rig. The session does not process events until Start.
func New(opts Options) (*Rig, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	perf, err := opts.Config.PerformanceOptions()
	if err != nil {
		return nil, err
	}
	store := opts.Store
	if store == nil {
		store = settings.NewMemoryStore()
	}
	fallback := opts.Sink
	if fallback == nil {
		fallback = performance.Discard
	}
	open := opts.OpenDevices
	if open == nil {
		open = device.Open
	}

	registry := opts.Config.Registry()
	session := performance.NewSession(performance.NewMachine(fallback, perf, log), log)
	return &Rig{
		cfg:        opts.Config,
		log:        log.WithField("component", "rig"),
		store:      store,
		registry:   registry,
		fallback:   fallback,
		open:       open,
		session:    session,
		keyboard:   input.NewKeyboard(registry, session),
		controller: input.NewMIDIController(registry, session, opts.Config.MIDI.VoicingController, log),
		daw:        input.NewDAWClock(log),
	}, nil
}

// Start runs the session in the background until ctx is done
func (r *Rig) Start(ctx context.Context) {
	r.mu.Lock()
	r.running = ctx
	r.mu.Unlock()
	go func() {
		if err := r.session.Run(ctx); err != nil {
			r.log.WithError(err).Error("session failed")
		}
	}()
}

// Done is closed once the session has stopped
func (r *Rig) Done() <-chan struct{} {
	return r.session.Done()
}

// Session returns the performance session
func (r *Rig) Session() *performance.Session {
	return r.session
}

// Registry returns the control registry
func (r *Rig) Registry() *controls.Registry {
	return r.registry
}

// Keyboard returns the computer keyboard adapter
func (r *Rig) Keyboard() *input.Keyboard {
	return r.keyboard
}

// DAW returns the DAW clock observer
func (r *Rig) DAW() *input.DAWClock {
	return r.daw
}

// Ready reports whether MIDI access is enabled
func (r *Rig) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices != nil
}

// Live reports whether the performance accepts input: MIDI is ready, or
// MIDI is turned off in the configuration and chords go to the fallback sink
func (r *Rig) Live() bool {
	return r.cfg.NoMIDI || r.Ready()
}

// EnableMIDI opens MIDI access, rebinds the persisted devices and watches
// for devices being unplugged and plugged in until the session stops. On failure the rig
// stays not ready; calling EnableMIDI again is the only retry.
func (r *Rig) EnableMIDI(ctx context.Context) error {
	if r.cfg.NoMIDI {
		return ErrMIDIDisabled
	}
	r.mu.Lock()
	if r.devices != nil {
		r.mu.Unlock()
		return nil
	}
	m, err := r.open(r.log)
	if err != nil {
		r.mu.Unlock()
		r.log.WithError(err).Warn("MIDI not ready")
		return err
	}
	r.devices = m
	running := r.running
	r.mu.Unlock()
	r.log.Info("MIDI ready")

	r.restore(ctx)
	if interval := r.cfg.MIDI.RescanInterval.Std(); interval > 0 && running != nil {
		go m.Watch(running, interval, func(snap device.Snapshot) { r.refresh(running, snap) })
	}
	return nil
}

// Devices lists the available ports
func (r *Rig) Devices() (device.Snapshot, error) {
	r.mu.Lock()
	m := r.devices
	r.mu.Unlock()
	if m == nil {
		return device.Snapshot{}, device.ErrUnavailable
	}
	return m.Snapshot()
}

// Selection returns the currently bound devices
func (r *Rig) Selection() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	sel := Selection{
		ControllerInputID: r.controller.Port(),
		DAWInputID:        r.daw.Port(),
	}
	if r.out != nil {
		sel.OutputID = r.out.Name()
	}
	return sel
}

// SelectControllerInput binds the controller adapter to an input port
func (r *Rig) SelectControllerInput(ctx context.Context, id string) error {
	return r.Select(ctx, RoleController, id)
}

// SelectDAWInput binds the DAW clock to an input port
func (r *Rig) SelectDAWInput(ctx context.Context, id string) error {
	return r.Select(ctx, RoleDAW, id)
}

// SelectOutput sends chords to an output port
func (r *Rig) SelectOutput(ctx context.Context, id string) error {
	return r.Select(ctx, RoleOutput, id)
}

// Select binds a slot to the device with the given ID and persists the
// choice. An empty id releases the slot and forgets the persisted device.
func (r *Rig) Select(ctx context.Context, role Role, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		if err := r.release(ctx, role); err != nil {
			return err
		}
		return r.store.Delete(role.Key())
	}
	if r.devices == nil {
		return device.ErrUnavailable
	}
	if err := r.bind(ctx, role, id); err != nil {
		return err
	}
	return r.store.Set(role.Key(), id)
}

// Close releases every device. The session should be stopped first so
// sounding chords are released on the output.
func (r *Rig) Close() error {
	r.controller.Unbind()
	r.daw.Unbind()

	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if r.out != nil {
		errs = append(errs, r.out.Close())
		r.out = nil
	}
	if r.devices != nil {
		errs = append(errs, r.devices.Close())
		r.devices = nil
	}
	return errors.Join(errs...)
}

// refresh detaches bound devices missing from snap and binds the persisted
// ones that are present. Detached devices stay persisted, so a replugged
// port is opened fresh.
func (r *Rig) refresh(ctx context.Context, snap device.Snapshot) {
	r.mu.Lock()
	for _, role := range Roles {
		id := r.bound(role)
		if id == "" || present(snap, role, id) {
			continue
		}
		log := r.log.WithFields(logrus.Fields{"role": role, "device": id})
		if err := r.release(ctx, role); err != nil {
			log.WithError(err).Warn("detach failed")
			continue
		}
		log.Info("device unplugged")
	}
	r.mu.Unlock()
	r.restore(ctx)
}

func present(snap device.Snapshot, role Role, id string) bool {
	if role == RoleOutput {
		return snap.HasOutput(id)
	}
	return snap.HasInput(id)
}

// restore binds each persisted device that is not bound yet. Devices that
// are missing stay persisted so they bind when plugged in.
func (r *Rig) restore(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.devices == nil {
		return
	}
	for _, role := range Roles {
		id, ok := r.store.Get(role.Key())
		if !ok || id == "" || r.bound(role) == id {
			continue
		}
		if err := r.bind(ctx, role, id); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"role":   role,
				"device": id,
			}).Debug("persisted device not bound")
			continue
		}
		r.log.WithFields(logrus.Fields{"role": role, "device": id}).Info("restored device")
	}
}

func (r *Rig) bound(role Role) string {
	switch role {
	case RoleController:
		return r.controller.Port()
	case RoleDAW:
		return r.daw.Port()
	default:
		if r.out == nil {
			return ""
		}
		return r.out.Name()
	}
}

func (r *Rig) bind(ctx context.Context, role Role, id string) error {
	switch role {
	case RoleController:
		in, err := r.devices.Input(id)
		if err != nil {
			return err
		}
		return r.controller.Bind(in)
	case RoleDAW:
		in, err := r.devices.Input(id)
		if err != nil {
			return err
		}
		return r.daw.Bind(in)
	default:
		port, err := r.devices.Output(id)
		if err != nil {
			return err
		}
		out, err := output.NewMIDI(port,
			output.WithChannel(r.cfg.MIDI.OutputChannel),
			output.WithVelocity(r.cfg.MIDI.Velocity))
		if err != nil {
			return err
		}
		return r.swapOutput(ctx, out, out)
	}
}

func (r *Rig) release(ctx context.Context, role Role) error {
	switch role {
	case RoleController:
		r.controller.Unbind()
	case RoleDAW:
		r.daw.Unbind()
	default:
		if r.out != nil {
			return r.swapOutput(ctx, r.fallback, nil)
		}
	}
	return nil
}

// swapOutput routes chords to sink and closes the previous MIDI output once
// the session has released its chords there
func (r *Rig) swapOutput(ctx context.Context, sink performance.Sink, out *output.MIDI) error {
	if _, err := r.session.Apply(ctx, performance.SwapSink{Sink: sink}); err != nil {
		if out != nil {
			_ = out.Close()
		}
		return fmt.Errorf("swap output: %w", err)
	}
	if r.out != nil {
		if err := r.out.Close(); err != nil {
			r.log.WithError(err).WithField("device", r.out.Name()).Warn("close output failed")
		}
	}
	r.out = out
	return nil
}
