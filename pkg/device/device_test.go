package device

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type fakePort struct{ name string }

func (p fakePort) Open() error             { return nil }
func (p fakePort) Close() error            { return nil }
func (p fakePort) IsOpen() bool            { return false }
func (p fakePort) Number() int             { return 0 }
func (p fakePort) String() string          { return p.name }
func (p fakePort) Underlying() interface{} { return nil }

type fakeIn struct{ fakePort }

func (fakeIn) Listen(func(msg []byte, milliseconds int32), drivers.ListenConfig) (func(), error) {
	return func() {}, nil
}

type fakeOut struct{ fakePort }

func (fakeOut) Send([]byte) error { return nil }

type fakeDriver struct {
	mu   sync.Mutex
	ins  []string
	outs []string
}

func (d *fakeDriver) Ins() ([]drivers.In, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ins []drivers.In
	for _, n := range d.ins {
		ins = append(ins, fakeIn{fakePort{n}})
	}
	return ins, nil
}

func (d *fakeDriver) Outs() ([]drivers.Out, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var outs []drivers.Out
	for _, n := range d.outs {
		outs = append(outs, fakeOut{fakePort{n}})
	}
	return outs, nil
}

func (d *fakeDriver) String() string { return "fake" }
func (d *fakeDriver) Close() error   { return nil }

func (d *fakeDriver) plug(in string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ins = append(d.ins, in)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestManagerLists(t *testing.T) {
	drv := &fakeDriver{ins: []string{"Pads", "Keys"}, outs: []string{"Synth"}}
	m := New(drv, quietLogger())

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []Descriptor{{"Pads", "Pads"}, {"Keys", "Keys"}}, snap.Inputs)
	assert.Equal(t, []Descriptor{{"Synth", "Synth"}}, snap.Outputs)

	in, err := m.Input("Keys")
	require.NoError(t, err)
	assert.Equal(t, "Keys", in.String())

	out, err := m.Output("Synth")
	require.NoError(t, err)
	assert.Equal(t, "Synth", out.String())

	_, err = m.Input("Missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Output("Pads")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotEqual(t *testing.T) {
	a := Snapshot{Inputs: []Descriptor{{"a", "a"}}}
	b := Snapshot{Inputs: []Descriptor{{"a", "a"}}}
	c := Snapshot{Inputs: []Descriptor{{"a", "a"}}, Outputs: []Descriptor{{"b", "b"}}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestSnapshotHas(t *testing.T) {
	s := Snapshot{
		Inputs:  []Descriptor{{"Pads", "Pads"}},
		Outputs: []Descriptor{{"Synth", "Synth"}},
	}
	assert.True(t, s.HasInput("Pads"))
	assert.False(t, s.HasInput("Synth"))
	assert.True(t, s.HasOutput("Synth"))
	assert.False(t, s.HasOutput("Pads"))
}

func TestWatchNotifiesOnChange(t *testing.T) {
	drv := &fakeDriver{ins: []string{"Pads"}}
	m := New(drv, quietLogger())
	m.debounce = 10 * time.Millisecond

	changes := make(chan Snapshot, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Watch(ctx, 5*time.Millisecond, func(s Snapshot) { changes <- s })

	time.Sleep(20 * time.Millisecond)
	drv.plug("Keys")

	select {
	case snap := <-changes:
		assert.Len(t, snap.Inputs, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}
