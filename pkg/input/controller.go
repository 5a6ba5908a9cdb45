package input

import (
	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DefaultVoicingController is the CC number that drives chord voicing
const DefaultVoicingController = 5

// MIDIController turns messages from a MIDI controller into performance
// events: pad notes on the pad channel become controls, other notes are
// played, one CC drives voicing and pitch bend is passed through.
type MIDIController struct {
	registry  *controls.Registry
	d         Dispatcher
	voicingCC uint8
	log       logrus.FieldLogger
	binding   binding
}

// NewMIDIController creates a controller adapter
func NewMIDIController(registry *controls.Registry, d Dispatcher, voicingCC uint8, log logrus.FieldLogger) *MIDIController {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "controller")
	return &MIDIController{
		registry:  registry,
		d:         d,
		voicingCC: voicingCC,
		log:       log,
		binding:   binding{log: log},
	}
}

// Bind listens to in, detaching from the previous port first. A nil port
// just detaches.
func (a *MIDIController) Bind(in drivers.In) error {
	return a.binding.bind(in, a.HandleMessage)
}

// Unbind detaches from the current port
func (a *MIDIController) Unbind() {
	a.binding.unbind()
}

// Port returns the name of the bound port, or ""
func (a *MIDIController) Port() string {
	return a.binding.name()
}

// HandleMessage dispatches the events for one MIDI message
func (a *MIDIController) HandleMessage(msg midi.Message) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if c, ok := a.registry.LookupByPadNote(key, ch+1); ok {
			a.d.Dispatch(performance.ControlOn{Control: c})
			return
		}
		a.d.Dispatch(performance.NoteOn{Note: theory.MustNote(int(key))})

	case msg.GetNoteEnd(&ch, &key):
		if c, ok := a.registry.LookupByPadNote(key, ch+1); ok {
			a.d.Dispatch(performance.ControlOff{Control: c})
			return
		}
		a.d.Dispatch(performance.NoteOff{Note: theory.MustNote(int(key))})

	case msg.GetControlChange(&ch, &cc, &val):
		if cc == a.voicingCC {
			a.d.Dispatch(performance.SetVoicing{Value: float64(val) / 127})
			return
		}
		a.log.WithFields(logrus.Fields{"channel": ch + 1, "controller": cc, "value": val}).Debug("control change")

	case msg.GetPitchBend(&ch, &rel, &abs):
		a.d.Dispatch(performance.PitchBend{Value: rel})

	default:
		a.log.WithField("msg", msg.String()).Debug("unhandled message")
	}
}
