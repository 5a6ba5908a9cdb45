package performance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned when an event is applied to a stopped session
var ErrClosed = errors.New("session closed")

const eventBuffer = 256

type envelope struct {
	ev   Event
	done chan State
}

// Session owns a Machine and applies events to it one at a time, in the
// order they were dispatched, from a single goroutine started by Run.
type Session struct {
	id      string
	log     logrus.FieldLogger
	machine *Machine
	events  chan envelope
	done    chan struct{}
	started atomic.Bool
	state   atomic.Pointer[State]

	mu   sync.Mutex
	subs map[chan State]struct{}
}

// NewSession wraps a Machine in a new session with a random ID
func NewSession(m *Machine, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	id := uuid.NewString()
	s := &Session{
		id:      id,
		log:     log.WithField("session", id),
		machine: m,
		events:  make(chan envelope, eventBuffer),
		done:    make(chan struct{}),
		subs:    make(map[chan State]struct{}),
	}
	st := m.State()
	st.SessionID = id
	s.state.Store(&st)
	return s
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Run applies events until ctx is cancelled, then releases every sounding
// chord. It must be called once.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	s.log.Info("session started")
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.machine.Panic()
			s.publish()
			s.closeSubscribers()
			s.log.Info("session stopped")
			return nil
		case env := <-s.events:
			env.ev.apply(s.machine)
			st := s.publish()
			if env.done != nil {
				env.done <- st
			}
		}
	}
}

// Done is closed once Run has returned
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Dispatch queues an event. It blocks only while the queue is full and
// drops the event if the session has stopped.
func (s *Session) Dispatch(ev Event) {
	if s.closed() {
		s.log.WithField("event", ev).Debug("event dropped, session closed")
		return
	}
	select {
	case s.events <- envelope{ev: ev}:
	case <-s.done:
		s.log.WithField("event", ev).Debug("event dropped, session closed")
	}
}

// Apply queues an event and waits until it has been applied, returning the
// resulting state
func (s *Session) Apply(ctx context.Context, ev Event) (State, error) {
	if s.closed() {
		return State{}, ErrClosed
	}
	done := make(chan State, 1)
	select {
	case s.events <- envelope{ev: ev, done: done}:
	case <-s.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case st := <-done:
		return st, nil
	case <-s.done:
		select {
		case st := <-done:
			return st, nil
		default:
			return State{}, ErrClosed
		}
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// State returns the most recently published state
func (s *Session) State() State {
	return *s.state.Load()
}

// Subscribe returns a channel that receives the latest state after every
// applied event. Slow readers only see the newest state. The returned
// function unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Session) publish() State {
	st := s.machine.State()
	st.SessionID = s.id
	s.state.Store(&st)

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
	return st
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
