// Package input translates keyboard and MIDI device events into
// performance events
package input

import (
	"fmt"
	"sync"

	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Dispatcher receives performance events. *performance.Session implements it.
type Dispatcher interface {
	Dispatch(ev performance.Event)
}

// binding holds the listener attached to one input port
type binding struct {
	mu   sync.Mutex
	log  logrus.FieldLogger
	port drivers.In
	stop func()
}

// bind detaches any current port, then opens in and listens on it.
// A nil port only detaches.
func (b *binding) bind(in drivers.In, recv func(midi.Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.unbindLocked()
	if in == nil {
		return nil
	}

	name := in.String()
	if !in.IsOpen() {
		if err := in.Open(); err != nil {
			return fmt.Errorf("open %q: %w", name, err)
		}
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		recv(msg)
	}, midi.HandleError(func(listenErr error) {
		b.log.WithError(listenErr).WithField("device", name).Warn("listener error")
	}))
	if err != nil {
		_ = in.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	b.port = in
	b.stop = stop
	b.log.WithField("device", name).Info("input bound")
	return nil
}

func (b *binding) unbind() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unbindLocked()
}

func (b *binding) unbindLocked() {
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
	if b.port != nil {
		name := b.port.String()
		if err := b.port.Close(); err != nil {
			b.log.WithError(err).WithField("device", name).Warn("close failed")
		}
		b.port = nil
		b.log.WithField("device", name).Info("input unbound")
	}
}

func (b *binding) name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return ""
	}
	return b.port.String()
}
