// Package events defines the reservation domain events and the publishers
// that deliver them to the notification dispatcher.
package events

import (
	"context"
	"time"

	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/google/uuid"
)

const (
	TypeReservationCreated      = "reservation.created"
	TypeReservationStateChanged = "reservation.state_changed"
)

const SchemaVersion = "1"

type Event struct {
	ID                 string                  `json:"id"`
	Type               string                  `json:"type"`
	OccurredAt         time.Time               `json:"occurred_at"`
	ReservationID      string                  `json:"reservation_id"`
	ProviderID         string                  `json:"provider_id"`
	ClientID           string                  `json:"client_id"`
	WindowID           string                  `json:"availability_window_id"`
	StartInstant       time.Time               `json:"start_instant"`
	EndInstant         time.Time               `json:"end_instant"`
	PriceSnapshotCents int64                   `json:"price_snapshot_cents"`
	From               model.ReservationStatus `json:"from,omitempty"`
	To                 model.ReservationStatus `json:"to"`
	ActorID            string                  `json:"actor_id"`
	ActorRole          model.ActorRole         `json:"actor_role"`
}

// Publisher delivers events without waiting for subscribers. Implementations
// must not block the caller on broker availability.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func NewReservationCreated(r *model.Reservation, at time.Time) Event {
	e := base(TypeReservationCreated, r, at)
	e.To = r.Status
	e.ActorID = r.ClientID
	e.ActorRole = model.RoleClient
	return e
}

func NewReservationStateChanged(r *model.Reservation, change model.StatusChange, role model.ActorRole) Event {
	e := base(TypeReservationStateChanged, r, change.At)
	e.From = change.From
	e.To = change.To
	e.ActorID = change.ActorID
	e.ActorRole = role
	return e
}

func base(eventType string, r *model.Reservation, at time.Time) Event {
	return Event{
		ID:                 uuid.NewString(),
		Type:               eventType,
		OccurredAt:         at,
		ReservationID:      r.ID,
		ProviderID:         r.ProviderID,
		ClientID:           r.ClientID,
		WindowID:           r.AvailabilityWindowID,
		StartInstant:       r.StartInstant,
		EndInstant:         r.EndInstant,
		PriceSnapshotCents: r.PriceSnapshotCents,
	}
}

// LogPublisher writes events to the service log. It is used when no broker is
// configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.log.Info("Domain event",
		"event_id", event.ID,
		"type", event.Type,
		"reservation_id", event.ReservationID,
		"from", event.From,
		"to", event.To,
		"actor_id", event.ActorID,
	)
	return nil
}
