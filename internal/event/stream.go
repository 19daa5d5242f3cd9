package event

import (
	"sync"
	"time"
)

const defaultSubscriberBuffer = 256

// Stream is the outbound event channel a core component exposes. Adapters
// subscribe rather than being invoked synchronously; publishing never
// blocks the owning component. A subscriber that falls behind loses
// events instead of stalling room processing.
type Stream struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewStream() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel together
// with a cancel func. Cancel is idempotent.
func (s *Stream) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, defaultSubscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish fans the event out to every subscriber without blocking.
func (s *Stream) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Drop if the subscriber buffer is full.
		}
	}
}

// Close tears the stream down and closes all subscriber channels.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
