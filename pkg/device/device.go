// Package device lists MIDI input and output ports and reports when the
// set of connected devices changes
package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	// ErrUnavailable is returned when MIDI access cannot be enabled
	ErrUnavailable = errors.New("MIDI unavailable")
	// ErrNotFound is returned when no port has the requested ID
	ErrNotFound = errors.New("device not found")
)

// Descriptor identifies a port. The ID is the port name, which stays stable
// across restarts where port numbers do not.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is the set of ports seen at one point in time
type Snapshot struct {
	Inputs  []Descriptor `json:"inputs"`
	Outputs []Descriptor `json:"outputs"`
}

// Equal reports whether two snapshots list the same ports
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.Equal(s.Inputs, o.Inputs) && slices.Equal(s.Outputs, o.Outputs)
}

// HasInput reports whether an input port with the ID is listed
func (s Snapshot) HasInput(id string) bool {
	return slices.ContainsFunc(s.Inputs, func(d Descriptor) bool { return d.ID == id })
}

// HasOutput reports whether an output port with the ID is listed
func (s Snapshot) HasOutput(id string) bool {
	return slices.ContainsFunc(s.Outputs, func(d Descriptor) bool { return d.ID == id })
}

// Manager enumerates ports on a MIDI driver
type Manager struct {
	drv      drivers.Driver
	log      logrus.FieldLogger
	debounce time.Duration
}

// Open enables MIDI through the system driver. Failure leaves the caller
// in the not-ready state; it is not retried.
func Open(log logrus.FieldLogger) (*Manager, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return New(drv, log), nil
}

// New creates a Manager over an existing driver
func New(drv drivers.Driver, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		drv:      drv,
		log:      log.WithField("component", "device"),
		debounce: 250 * time.Millisecond,
	}
}

// Close releases the driver
func (m *Manager) Close() error {
	return m.drv.Close()
}

// Inputs lists the input ports
func (m *Manager) Inputs() ([]Descriptor, error) {
	ins, err := m.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	out := make([]Descriptor, 0, len(ins))
	for _, in := range ins {
		out = append(out, describe(in))
	}
	return out, nil
}

// Outputs lists the output ports
func (m *Manager) Outputs() ([]Descriptor, error) {
	outs, err := m.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	out := make([]Descriptor, 0, len(outs))
	for _, o := range outs {
		out = append(out, describe(o))
	}
	return out, nil
}

// Snapshot lists inputs and outputs together
func (m *Manager) Snapshot() (Snapshot, error) {
	ins, err := m.Inputs()
	if err != nil {
		return Snapshot{}, err
	}
	outs, err := m.Outputs()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Inputs: ins, Outputs: outs}, nil
}

// Input finds an input port by ID
func (m *Manager) Input(id string) (drivers.In, error) {
	ins, err := m.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	for _, in := range ins {
		if describe(in).ID == id {
			return in, nil
		}
	}
	return nil, fmt.Errorf("input %q: %w", id, ErrNotFound)
}

// Output finds an output port by ID
func (m *Manager) Output(id string) (drivers.Out, error) {
	outs, err := m.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	for _, o := range outs {
		if describe(o).ID == id {
			return o, nil
		}
	}
	return nil, fmt.Errorf("output %q: %w", id, ErrNotFound)
}

// Watch polls the driver every interval until ctx is done and calls
// onChange with the new snapshot whenever the port list changes. Bursts of
// changes (a device registering several ports) are coalesced.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, onChange func(Snapshot)) {
	notify := debounce.New(m.debounce)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last, err := m.Snapshot()
	if err != nil {
		m.log.WithError(err).Warn("list devices failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := m.Snapshot()
			if err != nil {
				m.log.WithError(err).Warn("list devices failed")
				continue
			}
			if snap.Equal(last) {
				continue
			}
			m.log.WithFields(logrus.Fields{
				"inputs":  len(snap.Inputs),
				"outputs": len(snap.Outputs),
			}).Info("devices changed")
			last = snap
			notify(func() {
				if ctx.Err() == nil {
					onChange(snap)
				}
			})
		}
	}
}

func describe(p drivers.Port) Descriptor {
	return Descriptor{ID: p.String(), Name: p.String()}
}
