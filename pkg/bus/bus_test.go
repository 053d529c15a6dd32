package bus

import (
	"testing"
	"time"
)

func TestBusFanOut(t *testing.T) {
	t.Parallel()

	b := New()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(Event{Type: EventStatus, Payload: StatusEvent{Status: "connected"}})

	for _, ch := range []chan Event{a, c} {
		select {
		case evt := <-ch:
			if evt.Type != EventStatus {
				t.Errorf("type: got %s, want %s", evt.Type, EventStatus)
			}
			if evt.Time.IsZero() {
				t.Error("publish left event time zero")
			}
		case <-time.After(time.Second):
			t.Fatal("observer did not receive the event")
		}
	}
}

func TestBusUnsubscribeCloses(t *testing.T) {
	t.Parallel()

	b := New()
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic or block.
	b.Publish(Event{Type: EventQR})
}

func TestBusSlowObserverDoesNotBlock(t *testing.T) {
	t.Parallel()

	b := New()
	slow := b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(slow)+10; i++ {
			b.Publish(Event{Type: EventMessageIn})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full observer")
	}

	if got := len(slow); got != cap(slow) {
		t.Errorf("buffered events: got %d, want %d (overflow dropped)", got, cap(slow))
	}
}
