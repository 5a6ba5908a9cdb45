package performance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedSink guards a recordingSink; the session goroutine writes while the
// test reads
type lockedSink struct {
	mu sync.Mutex
	recordingSink
}

func (l *lockedSink) Play(notes []theory.Note) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordingSink.Play(notes)
}

func (l *lockedSink) Stop(notes []theory.Note) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordingSink.Stop(notes)
}

func (l *lockedSink) Calls() []call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]call(nil), l.calls...)
}

func startSession(t *testing.T, sink Sink) (*Session, context.CancelFunc) {
	t.Helper()
	s := NewSession(NewMachine(sink, DefaultOptions(), quietLogger()), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s, cancel
}

func TestSessionApply(t *testing.T) {
	sink := &lockedSink{}
	s, _ := startSession(t, sink)
	ctx := context.Background()

	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	st, err := s.Apply(ctx, NoteOn{Note: theory.MustNote(60)})
	require.NoError(t, err)
	require.Len(t, st.ActiveChords, 1)
	assert.Equal(t, []uint8{60, 64, 67}, theory.Numbers(st.ActiveChords[0].Notes))
	assert.Equal(t, s.ID(), st.SessionID)

	st, err = s.Apply(ctx, NoteOff{Note: theory.MustNote(60)})
	require.NoError(t, err)
	assert.Empty(t, st.ActiveChords)
	assert.Equal(t, st, s.State())
}

func TestSessionPreservesOrder(t *testing.T) {
	sink := &lockedSink{}
	s, _ := startSession(t, sink)

	for n := 40; n < 80; n++ {
		s.Dispatch(NoteOn{Note: theory.MustNote(n)})
		s.Dispatch(NoteOff{Note: theory.MustNote(n)})
	}
	_, err := s.Apply(context.Background(), SetVoicing{Value: 0})
	require.NoError(t, err)

	calls := sink.Calls()
	require.Len(t, calls, 80)
	for i := 0; i < 40; i++ {
		assert.Equal(t, "play", calls[2*i].op)
		assert.Equal(t, "stop", calls[2*i+1].op)
		assert.Equal(t, uint8(40+i), calls[2*i].notes[0])
		assert.Equal(t, calls[2*i].notes, calls[2*i+1].notes)
	}
}

func TestSessionSubscribe(t *testing.T) {
	s, _ := startSession(t, nil)
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	_, err := s.Apply(context.Background(), SetSticky{Enabled: false})
	require.NoError(t, err)

	select {
	case st := <-updates:
		assert.False(t, st.StickyChordTypes)
	case <-time.After(time.Second):
		t.Fatal("no state update")
	}
}

func TestSessionStopReleasesChords(t *testing.T) {
	sink := &lockedSink{}
	s, cancel := startSession(t, sink)

	_, err := s.Apply(context.Background(), NoteOn{Note: theory.MustNote(48)})
	require.NoError(t, err)

	cancel()
	<-s.Done()

	calls := sink.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "stop", calls[1].op)
	assert.Empty(t, s.State().ActiveChords)

	_, err = s.Apply(context.Background(), Panic{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionDropsEventsAfterStop(t *testing.T) {
	sink := &lockedSink{}
	s, cancel := startSession(t, sink)
	cancel()
	<-s.Done()

	for i := 0; i < eventBuffer; i++ {
		s.Dispatch(NoteOn{Note: theory.MustNote(60)})
		_, err := s.Apply(context.Background(), NoteOn{Note: theory.MustNote(62)})
		require.ErrorIs(t, err, ErrClosed)
	}
	assert.Zero(t, len(s.events), "nothing is queued on a stopped session")
	assert.Empty(t, sink.Calls())
}

func TestSessionApplyContextCancelled(t *testing.T) {
	s := NewSession(NewMachine(nil, DefaultOptions(), quietLogger()), quietLogger())
	for i := 0; i < eventBuffer; i++ {
		s.Dispatch(Panic{})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Apply(ctx, Panic{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
