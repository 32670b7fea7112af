package domain

import (
	"fmt"
	"strings"
	"time"
)

type EventStatus string

const (
	EventStatusActive  EventStatus = "active"
	EventStatusExpired EventStatus = "expired"
	EventStatusDeleted EventStatus = "deleted"
)

// Event is the ledger's view of an organizer's event: ownership, currency and
// the denormalized gift aggregates.
type Event struct {
	EventID     string      `json:"event_id"`
	OrganizerID string      `json:"organizer_id"`
	Title       string      `json:"title,omitempty"`
	Currency    string      `json:"currency"`
	Status      EventStatus `json:"status"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	RaisedTotal int64       `json:"raised_total"`
	GiftCount   int64       `json:"gift_count"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (e Event) AcceptsContributions(now time.Time) bool {
	if e.Status != EventStatusActive {
		return false
	}
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

func ValidateEvent(event Event) error {
	if strings.TrimSpace(event.EventID) == "" {
		return fmt.Errorf("%w: missing event_id", ErrInvalidInput)
	}
	if strings.TrimSpace(event.OrganizerID) == "" {
		return fmt.Errorf("%w: missing organizer_id", ErrInvalidInput)
	}
	switch event.Status {
	case EventStatusActive, EventStatusExpired, EventStatusDeleted:
	default:
		return fmt.Errorf("%w: unknown event status %q", ErrInvalidInput, event.Status)
	}
	return nil
}

// EventBalance summarises what an organizer can withdraw right now.
type EventBalance struct {
	EventID        string `json:"event_id"`
	Currency       string `json:"currency"`
	RaisedTotal    int64  `json:"raised_total"`
	GiftCount      int64  `json:"gift_count"`
	EligibleAmount int64  `json:"eligible_amount"`
	EligibleCount  int    `json:"eligible_count"`
	InFlightAmount int64  `json:"in_flight_amount"`
	WithdrawnTotal int64  `json:"withdrawn_total"`
}
