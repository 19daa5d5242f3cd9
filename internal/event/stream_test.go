package event

import (
	"testing"
	"time"
)

func TestSubscribeReceivesPublished(t *testing.T) {
	s := NewStream()
	defer s.Close()

	ch, cancel := s.Subscribe()
	defer cancel()

	s.Publish(Event{Type: PlayerJoined, RoomCode: "ABCD", PlayerID: "p1"})

	select {
	case ev := <-ch:
		if ev.Type != PlayerJoined || ev.RoomCode != "ABCD" {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.At.IsZero() {
			t.Fatal("publish must stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	s := NewStream()
	defer s.Close()

	ch, cancel := s.Subscribe()
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatal("cancel must close the subscriber channel")
	}
	// Publishing after cancel must not panic.
	s.Publish(Event{Type: RoomCreated})
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	s := NewStream()
	defer s.Close()

	ch, cancel := s.Subscribe()
	defer cancel()

	// Saturate the buffer and keep publishing; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultSubscriberBuffer*2; i++ {
			s.Publish(Event{Type: GameStateUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if got := len(ch); got != defaultSubscriberBuffer {
		t.Fatalf("expected a full buffer of %d, got %d", defaultSubscriberBuffer, got)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	s := NewStream()
	ch, _ := s.Subscribe()
	s.Close()

	if _, open := <-ch; open {
		t.Fatal("close must close subscriber channels")
	}
	// Subscribing after close yields a closed channel.
	ch2, cancel := s.Subscribe()
	defer cancel()
	if _, open := <-ch2; open {
		t.Fatal("subscribe after close must return a closed channel")
	}
}
