package input

import (
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// clocksPerBeat is the MIDI clock resolution
const clocksPerBeat = 24

// DAWClock observes transport and clock messages from a DAW. Arpeggiation
// and sync are not implemented; it only reports transport changes and the
// measured tempo.
type DAWClock struct {
	log     logrus.FieldLogger
	now     func() time.Time
	binding binding

	mu       sync.Mutex
	running  bool
	ticks    int
	lastBeat time.Time
	bpm      float64
}

// NewDAWClock creates a DAW clock observer
func NewDAWClock(log logrus.FieldLogger) *DAWClock {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "daw")
	return &DAWClock{
		log:     log,
		now:     time.Now,
		binding: binding{log: log},
	}
}

// Bind listens to in, detaching from the previous port first
func (d *DAWClock) Bind(in drivers.In) error {
	d.mu.Lock()
	d.ticks = 0
	d.lastBeat = time.Time{}
	d.mu.Unlock()
	return d.binding.bind(in, d.HandleMessage)
}

// Unbind detaches from the current port
func (d *DAWClock) Unbind() {
	d.binding.unbind()
}

// Port returns the name of the bound port, or ""
func (d *DAWClock) Port() string {
	return d.binding.name()
}

// BPM returns the last measured tempo, or 0 before a full beat of clock
func (d *DAWClock) BPM() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bpm
}

// Running reports whether the transport is running
func (d *DAWClock) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// HandleMessage processes one message from the DAW
func (d *DAWClock) HandleMessage(msg midi.Message) {
	var ch, cc, val uint8
	var pos uint16

	switch {
	case msg.Is(midi.StartMsg):
		d.setRunning(true)
		d.log.Info("transport started")
	case msg.Is(midi.StopMsg):
		d.setRunning(false)
		d.log.Info("transport stopped")
	case msg.Is(midi.ContinueMsg):
		d.setRunning(true)
		d.log.Info("transport continued")
	case msg.Is(midi.TimingClockMsg):
		d.tick()
	case msg.GetSPP(&pos):
		d.log.WithField("position", pos).Debug("song position")
	case msg.GetControlChange(&ch, &cc, &val):
		d.log.WithFields(logrus.Fields{"channel": ch + 1, "controller": cc, "value": val}).Debug("control change")
	}
}

func (d *DAWClock) setRunning(running bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = running
}

func (d *DAWClock) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.lastBeat.IsZero() {
		d.lastBeat = now
		return
	}
	d.ticks++
	if d.ticks < clocksPerBeat {
		return
	}

	elapsed := now.Sub(d.lastBeat)
	d.ticks = 0
	d.lastBeat = now
	if elapsed <= 0 {
		return
	}
	d.bpm = math.Round(float64(time.Minute) / float64(elapsed))
	d.log.WithField("bpm", d.bpm).Debug("clock")
}
