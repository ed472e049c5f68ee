package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherFanOut(t *testing.T) {
	t.Parallel()
	d := NewDispatcher()

	var opened, closed []Event
	d.Subscribe(TicketOpened, func(_ context.Context, e Event) error {
		opened = append(opened, e)
		return nil
	})
	d.Subscribe(TicketOpened, func(_ context.Context, e Event) error {
		opened = append(opened, e)
		return nil
	})
	d.Subscribe(TicketClosed, func(_ context.Context, e Event) error {
		closed = append(closed, e)
		return nil
	})

	err := d.Publish(context.Background(), Event{
		Type:      TicketOpened,
		TicketRef: "chan-1",
		ActorID:   "u1",
		At:        time.Now(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(opened) != 2 {
		t.Errorf("TicketOpened handlers called %d times, want 2", len(opened))
	}
	if len(closed) != 0 {
		t.Errorf("TicketClosed handler called for a TicketOpened event")
	}
}

func TestDispatcherHandlerErrorDoesNotStopDelivery(t *testing.T) {
	t.Parallel()
	d := NewDispatcher()

	called := false
	d.Subscribe(ReviewSubmitted, func(context.Context, Event) error {
		return errors.New("boom")
	})
	d.Subscribe(ReviewSubmitted, func(context.Context, Event) error {
		called = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: ReviewSubmitted}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !called {
		t.Error("second handler skipped after first handler's error")
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	t.Parallel()
	d := NewDispatcher()
	if err := d.Publish(context.Background(), Event{Type: TicketClosed}); err != nil {
		t.Errorf("publish with no subscribers: %v", err)
	}
}
