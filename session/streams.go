package session

import "sync"

// Stream is a replay-last broadcast channel: every subscriber receives the
// most recently published value immediately, then all subsequent values.
// Publishing never blocks; a subscriber that falls behind loses intermediate
// values but always converges on the latest one.
type Stream[T any] struct {
	mu      sync.Mutex
	last    T
	hasLast bool
	subs    map[int]chan T
	nextID  int
}

// NewStream creates an empty stream with no initial value.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{subs: make(map[int]chan T)}
}

// Publish broadcasts v to all subscribers and records it for replay.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = v
	s.hasLast = true
	for _, ch := range s.subs {
		// Drop the stale buffered value so the channel always holds the
		// most recent one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe returns a channel that yields the last published value (if any)
// followed by future values, and a cancel function that releases the
// subscription. The channel is closed on cancel.
func (s *Stream[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	if s.hasLast {
		ch <- s.last
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Last returns the most recently published value and whether one exists.
func (s *Stream[T]) Last() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}
