package input

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/james-see/ideamachine/pkg/controls"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []performance.Event
}

func (r *recordingDispatcher) Dispatch(ev performance.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingDispatcher) Events() []performance.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]performance.Event(nil), r.events...)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func control(t *testing.T, key rune) controls.Control {
	t.Helper()
	c, ok := controls.Default().LookupByShortcut(key)
	require.True(t, ok)
	return c
}

func TestKeyboardControls(t *testing.T) {
	d := &recordingDispatcher{}
	k := NewKeyboard(controls.Default(), d)

	assert.True(t, k.Handle(KeyEvent{Key: 'l', Down: true}))
	assert.True(t, k.Handle(KeyEvent{Key: 'l'}))

	assert.Equal(t, []performance.Event{
		performance.ControlOn{Control: control(t, 'l')},
		performance.ControlOff{Control: control(t, 'l')},
	}, d.Events())
}

func TestKeyboardNotes(t *testing.T) {
	d := &recordingDispatcher{}
	k := NewKeyboard(controls.Default(), d)

	assert.True(t, k.Handle(KeyEvent{Key: 'w', Down: true}))
	assert.True(t, k.Handle(KeyEvent{Key: 'w', Down: true}))
	assert.True(t, k.Handle(KeyEvent{Key: 'w'}))

	cs3 := theory.MustNote(49)
	assert.Equal(t, []performance.Event{
		performance.NoteOn{Note: cs3},
		performance.NoteOn{Note: cs3},
		performance.NoteOff{Note: cs3},
	}, d.Events())
}

func TestKeyboardIgnored(t *testing.T) {
	d := &recordingDispatcher{}
	k := NewKeyboard(controls.Default(), d)

	tests := []struct {
		name string
		ev   KeyEvent
	}{
		{"meta", KeyEvent{Key: 'a', Down: true, Meta: true}},
		{"ctrl", KeyEvent{Key: 'l', Down: true, Ctrl: true}},
		{"shift", KeyEvent{Key: 's', Down: true, Shift: true}},
		{"unmapped", KeyEvent{Key: 'z', Down: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, k.Handle(tt.ev))
		})
	}
	assert.Empty(t, d.Events())
}

func TestControllerMessages(t *testing.T) {
	dim := control(t, 'k')
	add6 := control(t, 'i')
	c4 := theory.MustNote(60)

	tests := []struct {
		name string
		msg  midi.Message
		want []performance.Event
	}{
		{"pad on", midi.NoteOn(9, 36, 100), []performance.Event{performance.ControlOn{Control: dim}}},
		{"pad off", midi.NoteOff(9, 40), []performance.Event{performance.ControlOff{Control: add6}}},
		{"pad note on other channel", midi.NoteOn(0, 36, 100), []performance.Event{performance.NoteOn{Note: theory.MustNote(36)}}},
		{"unmapped pad note", midi.NoteOn(9, 60, 90), []performance.Event{performance.NoteOn{Note: c4}}},
		{"note on", midi.NoteOn(0, 60, 90), []performance.Event{performance.NoteOn{Note: c4}}},
		{"note off", midi.NoteOff(0, 60), []performance.Event{performance.NoteOff{Note: c4}}},
		{"note on zero velocity", midi.NoteOn(0, 60, 0), []performance.Event{performance.NoteOff{Note: c4}}},
		{"voicing cc", midi.ControlChange(0, DefaultVoicingController, 127), []performance.Event{performance.SetVoicing{Value: 1}}},
		{"voicing cc zero", midi.ControlChange(3, DefaultVoicingController, 0), []performance.Event{performance.SetVoicing{Value: 0}}},
		{"other cc", midi.ControlChange(0, 7, 100), nil},
		{"pitch bend", midi.Pitchbend(0, -4096), []performance.Event{performance.PitchBend{Value: -4096}}},
		{"program change", midi.ProgramChange(0, 3), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			a := NewMIDIController(controls.Default(), d, DefaultVoicingController, quietLogger())
			a.HandleMessage(tt.msg)
			assert.Equal(t, tt.want, d.Events())
		})
	}
}

func TestControllerVoicingNormalized(t *testing.T) {
	d := &recordingDispatcher{}
	a := NewMIDIController(controls.Default(), d, 1, quietLogger())
	a.HandleMessage(midi.ControlChange(0, 1, 64))

	events := d.Events()
	require.Len(t, events, 1)
	v, ok := events[0].(performance.SetVoicing)
	require.True(t, ok)
	assert.InDelta(t, 64.0/127, v.Value, 1e-9)
}

func TestDAWClockTempo(t *testing.T) {
	clock := NewDAWClock(quietLogger())
	now := time.Unix(0, 0)
	clock.now = func() time.Time { return now }

	clock.HandleMessage(midi.Start())
	assert.True(t, clock.Running())

	// 120 BPM: one beat every 500ms, 24 clocks per beat
	interval := 500 * time.Millisecond / clocksPerBeat
	clock.HandleMessage(midi.TimingClock())
	for i := 0; i < clocksPerBeat; i++ {
		now = now.Add(interval)
		clock.HandleMessage(midi.TimingClock())
	}
	assert.Equal(t, 120.0, clock.BPM())

	clock.HandleMessage(midi.Stop())
	assert.False(t, clock.Running())
}

// fakeIn implements drivers.In
type fakeIn struct {
	name    string
	mu      sync.Mutex
	open    bool
	stopped bool
	onMsg   func([]byte, int32)
}

func (f *fakeIn) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	return nil
}

func (f *fakeIn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeIn) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeIn) Number() int             { return 0 }
func (f *fakeIn) String() string          { return f.name }
func (f *fakeIn) Underlying() interface{} { return nil }

func (f *fakeIn) Listen(onMsg func(msg []byte, milliseconds int32), _ drivers.ListenConfig) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMsg = onMsg
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped = true
		f.onMsg = nil
	}, nil
}

func (f *fakeIn) send(msg midi.Message) {
	f.mu.Lock()
	onMsg := f.onMsg
	f.mu.Unlock()
	if onMsg != nil {
		onMsg(msg, 0)
	}
}

func TestControllerRebindDetachesPreviousPort(t *testing.T) {
	d := &recordingDispatcher{}
	a := NewMIDIController(controls.Default(), d, DefaultVoicingController, quietLogger())
	first := &fakeIn{name: "pads"}
	second := &fakeIn{name: "keys"}

	require.NoError(t, a.Bind(first))
	assert.True(t, first.IsOpen())
	assert.Equal(t, "pads", a.Port())
	first.send(midi.NoteOn(0, 60, 100))

	require.NoError(t, a.Bind(second))
	assert.False(t, first.IsOpen())
	assert.True(t, first.stopped)
	assert.Equal(t, "keys", a.Port())

	first.send(midi.NoteOn(0, 62, 100))
	second.send(midi.NoteOff(0, 60))

	assert.Equal(t, []performance.Event{
		performance.NoteOn{Note: theory.MustNote(60)},
		performance.NoteOff{Note: theory.MustNote(60)},
	}, d.Events())

	a.Unbind()
	assert.False(t, second.IsOpen())
	assert.Equal(t, "", a.Port())
}
