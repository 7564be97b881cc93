package handler

import (
	"time"

	"slotbook/internal/scheduling/lifecycle"
	"slotbook/pkg/model"
	"slotbook/pkg/timenorm"
)

type AddWindowRequest struct {
	Date        string `json:"date" validate:"required,iso_date"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	EndTime     string `json:"end_time" validate:"required,hhmm_end"`
	IsRecurring bool   `json:"is_recurring"`
}

type UpdateWindowRequest struct {
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm_end"`
}

// CreateReservationRequest books a whole window. The local slot is optional;
// when sent it must carry all three fields and match the window.
type CreateReservationRequest struct {
	ProviderID string `json:"provider_id" validate:"required,max=64"`
	WindowID   string `json:"availability_window_id" validate:"required,uuid"`
	ClientNote string `json:"client_note,omitempty" validate:"max=500"`
	Date       string `json:"date,omitempty" validate:"required_with=StartTime EndTime,omitempty,iso_date"`
	StartTime  string `json:"start_time,omitempty" validate:"required_with=Date EndTime,omitempty,hhmm"`
	EndTime    string `json:"end_time,omitempty" validate:"required_with=Date StartTime,omitempty,hhmm_end"`
}

type TransitionRequest struct {
	Status model.ReservationStatus `json:"status" validate:"required,reservation_status"`
}

type WindowResponse struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	Date         string    `json:"date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	StartInstant time.Time `json:"start_instant"`
	EndInstant   time.Time `json:"end_instant"`
	IsBooked     bool      `json:"is_booked"`
	IsRecurring  bool      `json:"is_recurring"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ReservationResponse struct {
	*model.Reservation
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	// AllowedTransitions lists the statuses the requesting actor may move to.
	AllowedTransitions []model.ReservationStatus `json:"allowed_transitions"`
}

func newWindowResponse(n *timenorm.Normalizer, w *model.AvailabilityWindow) WindowResponse {
	_, start := n.ToLocalParts(w.StartInstant)
	end := n.EndClock(w.Date, w.EndInstant)
	return WindowResponse{
		ID:           w.ID,
		ProviderID:   w.ProviderID,
		Date:         w.Date,
		StartTime:    start,
		EndTime:      end,
		StartInstant: w.StartInstant,
		EndInstant:   w.EndInstant,
		IsBooked:     w.IsBooked,
		IsRecurring:  w.IsRecurring,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

func newWindowResponses(n *timenorm.Normalizer, windows []*model.AvailabilityWindow) []WindowResponse {
	out := make([]WindowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, newWindowResponse(n, w))
	}
	return out
}

func newReservationResponse(n *timenorm.Normalizer, r *model.Reservation, role model.ActorRole) ReservationResponse {
	date, start := n.ToLocalParts(r.StartInstant)
	end := n.EndClock(date, r.EndInstant)
	allowed := lifecycle.Targets(r.Status, role)
	if allowed == nil {
		allowed = []model.ReservationStatus{}
	}
	return ReservationResponse{
		Reservation:        r,
		Date:               date,
		StartTime:          start,
		EndTime:            end,
		AllowedTransitions: allowed,
	}
}

func newReservationResponses(n *timenorm.Normalizer, reservations []*model.Reservation, role model.ActorRole) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, newReservationResponse(n, r, role))
	}
	return out
}
