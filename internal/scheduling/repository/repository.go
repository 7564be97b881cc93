package repository

import (
	"context"
	"time"

	"slotbook/pkg/model"
)

const (
	WindowsCollection      = "Availability_windows"
	ReservationsCollection = "Reservations"
	WindowLocksCollection  = "Window_locks"
)

type WindowRepository interface {
	Create(ctx context.Context, window *model.AvailabilityWindow) error
	FindByID(ctx context.Context, id string) (*model.AvailabilityWindow, error)
	FindByProviderAndDate(ctx context.Context, providerID, date string) ([]*model.AvailabilityWindow, error)
	Search(ctx context.Context, filter model.WindowFilter) ([]*model.AvailabilityWindow, error)
	// UpdateBoundsIfOpen fails with ErrWindowBooked when the window is booked.
	UpdateBoundsIfOpen(ctx context.Context, id string, start, end, updatedAt time.Time) error
	// DeleteIfOpen fails with ErrWindowBooked when the window is booked.
	DeleteIfOpen(ctx context.Context, id string) error
	// MarkBooked flips is_booked from false to true for a window owned by
	// providerID. It fails with ErrWindowUnavailable when no such open window
	// exists, which is how the loser of a booking race is told.
	MarkBooked(ctx context.Context, providerID, id string, updatedAt time.Time) error
	Release(ctx context.Context, id string, updatedAt time.Time) error
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindActiveOverlapping(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error)
	Search(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error)
	Count(ctx context.Context, filter model.ReservationFilter) (int64, error)
	// UpdateStatus applies change only while the stored status still equals
	// change.From, otherwise it fails with ErrStaleStatus.
	UpdateStatus(ctx context.Context, change model.StatusChange) error
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error)
	FindConfirmedEndedBy(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error)
}

// WindowLockRepository serializes edits of one provider's day. Touch must be
// called inside the transaction that reads and writes that day's windows.
type WindowLockRepository interface {
	Touch(ctx context.Context, providerID, date string, at time.Time) error
}

// statusFields lists the columns written by a status change, keyed by their
// shared bson and SQL column names.
func statusFields(change model.StatusChange) map[string]any {
	fields := map[string]any{
		"status":       change.To,
		"status_actor": change.ActorID,
		"updated_at":   change.At,
	}
	switch change.To {
	case model.StatusConfirmed:
		fields["confirmed_at"] = change.At
	case model.StatusCompleted:
		fields["completed_at"] = change.At
	case model.StatusRejectedByProvider,
		model.StatusRejectedBySystem,
		model.StatusCancelledByClient,
		model.StatusCancelledByProvider:
		fields["terminated_at"] = change.At
	}
	return fields
}

func activeStatusValues() []string {
	values := make([]string, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		values = append(values, string(s))
	}
	return values
}
