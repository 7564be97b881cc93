package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/internal/scheduling/repository"
	"slotbook/pkg/timenorm"
)

// ConflictDetector decides whether a candidate interval can be booked against
// a window. Checks run in a fixed order so the most specific reason wins:
// unavailable window, bounds mismatch, past start, then overlap with an
// active reservation.
type ConflictDetector interface {
	CheckAvailable(ctx context.Context, providerID, windowID string, start, end time.Time) error
}

type conflictDetector struct {
	windows      repository.WindowRepository
	reservations repository.ReservationRepository
	now          Clock
}

func NewConflictDetector(
	windows repository.WindowRepository,
	reservations repository.ReservationRepository,
	now Clock,
) ConflictDetector {
	return &conflictDetector{
		windows:      windows,
		reservations: reservations,
		now:          now,
	}
}

func (d *conflictDetector) CheckAvailable(ctx context.Context, providerID, windowID string, start, end time.Time) error {
	window, err := d.windows.FindByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, schedulingerrors.ErrWindowNotFound) {
			return fmt.Errorf("%w: %s", schedulingerrors.ErrWindowUnavailable, windowID)
		}
		return err
	}
	if window.ProviderID != providerID || window.IsBooked {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrWindowUnavailable, windowID)
	}

	if !start.Equal(window.StartInstant) || !end.Equal(window.EndInstant) {
		return fmt.Errorf("%w: window %s spans %s to %s", schedulingerrors.ErrWindowMismatch,
			windowID, window.StartInstant.Format(time.RFC3339), window.EndInstant.Format(time.RFC3339))
	}

	if !start.After(d.now()) {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrPastTime, start.Format(time.RFC3339))
	}

	active, err := d.reservations.FindActiveOverlapping(ctx, providerID, start, end)
	if err != nil {
		return err
	}
	for _, r := range active {
		if timenorm.Overlaps(start, end, r.StartInstant, r.EndInstant) {
			return fmt.Errorf("%w: reservation %s", schedulingerrors.ErrScheduleConflict, r.ID)
		}
	}
	return nil
}
