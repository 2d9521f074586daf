package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"labbook/internal/models"
)

// TypeBookingCreated is published after a booking is persisted.
const TypeBookingCreated = "booking.created"

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs the subscribers of the event type synchronously and returns
// their joined errors. A failing handler does not stop the others.
func (b *EventBus) Publish(event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BookingCreated builds the event for a persisted booking.
func BookingCreated(b *models.Booking) (Event, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: TypeBookingCreated, Payload: payload, CreatedAt: b.CreatedAt}, nil
}

// DecodeBooking reads the booking carried by a booking.created event.
func DecodeBooking(e Event) (models.Booking, error) {
	var b models.Booking
	err := json.Unmarshal(e.Payload, &b)
	return b, err
}
