// Package events publishes ticket lifecycle events to in-process subscribers
// and, when configured, to an AMQP exchange for external integrations.
package events

import (
	"context"
	"sync"
	"time"
)

type Type string

const (
	TicketOpened    Type = "ticket.opened"
	TicketClosed    Type = "ticket.closed"
	ReviewSubmitted Type = "review.submitted"
)

type Event struct {
	Type      Type              `json:"type"`
	TicketRef string            `json:"ticket_ref"`
	ActorID   string            `json:"actor_id"`
	At        time.Time         `json:"at"`
	Detail    map[string]string `json:"detail,omitempty"`
}

type Handler func(context.Context, Event) error

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Dispatcher fans events out synchronously to registered handlers. Handler
// errors do not stop delivery to the remaining handlers.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[Type][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[Type][]Handler)}
}

func (d *Dispatcher) Subscribe(t Type, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[t] = append(d.listeners[t], h)
}

func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]Handler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, h := range handlers {
		_ = h(ctx, event)
	}
	return nil
}
