// Package events is the in-process bus that carries booking, provider and
// verification changes to notifiers, metrics and sheet sync.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated          = "booking_created"
	EventBookingStatusChanged    = "booking_status_changed"
	EventBookingProviderAssigned = "booking_provider_assigned"
	EventProviderOnboarded       = "provider_onboarded"
	EventProviderActiveChanged   = "provider_active_changed"
	EventMobileVerified          = "mobile_verified"
)

// BookingEventPayload is the booking snapshot attached to booking events.
type BookingEventPayload struct {
	BookingID      int64  `json:"booking_id"`
	BookingType    string `json:"booking_type"`
	Customer       string `json:"customer"`
	Provider       string `json:"provider,omitempty"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Total          int64  `json:"total"`
	ChangedBy      string `json:"changed_by,omitempty"`
}

type ProviderEventPayload struct {
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	ChangedBy  string `json:"changed_by,omitempty"`
}

type VerificationEventPayload struct {
	MobileNumber string    `json:"mobile_number"`
	VerifiedBy   string    `json:"verified_by,omitempty"`
	VerifiedAt   time.Time `json:"verified_at"`
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into dst.
func (e *Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return nil
}

type EventHandler func(event *Event) error

// EventBus fans events out to handlers on the publisher's goroutine.
// Handlers that do I/O queue the work themselves.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
	logger      *zerolog.Logger
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// SetLogger makes the bus report handler failures.
func (b *EventBus) SetLogger(logger *zerolog.Logger) {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	b.mu.Unlock()
}

// Publish runs every handler of event.Type. A failing handler is logged and
// does not stop the rest.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := b.subscribers[event.Type]
	logger := b.logger
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	for _, handle := range handlers {
		if err := handle(event); err != nil && logger != nil {
			logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON encodes payload and publishes it. A nil bus discards events so
// services can run without one.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	b.Publish(&Event{Type: eventType, Payload: raw})
	return nil
}
