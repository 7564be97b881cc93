package service

import (
	"context"
	"fmt"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/internal/scheduling/repository"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/model"
	"slotbook/pkg/timenorm"

	"github.com/google/uuid"
)

type AvailabilityService interface {
	AddWindow(ctx context.Context, input AddWindowInput) (*model.AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, input UpdateWindowInput) (*model.AvailabilityWindow, error)
	RemoveWindow(ctx context.Context, providerID, windowID string) error
	ListWindows(ctx context.Context, filter model.WindowFilter) ([]*model.AvailabilityWindow, error)
}

type AddWindowInput struct {
	ProviderID  string
	Date        string
	StartLocal  string
	EndLocal    string
	IsRecurring bool
}

type UpdateWindowInput struct {
	ProviderID string
	WindowID   string
	StartLocal string
	EndLocal   string
}

type availabilityService struct {
	store      *repository.Store
	normalizer *timenorm.Normalizer
	cfg        *config.Config
	now        Clock
}

func NewAvailabilityService(
	store *repository.Store,
	normalizer *timenorm.Normalizer,
	cfg *config.Config,
	now Clock,
) AvailabilityService {
	return &availabilityService{
		store:      store,
		normalizer: normalizer,
		cfg:        cfg,
		now:        now,
	}
}

func (s *availabilityService) AddWindow(ctx context.Context, input AddWindowInput) (*model.AvailabilityWindow, error) {
	if input.ProviderID == "" {
		return nil, apperrors.InvalidInput("Provider ID cannot be empty")
	}
	start, end, err := s.normalizer.Interval(input.Date, input.StartLocal, input.EndLocal)
	if err != nil {
		return nil, translate(err)
	}

	now := s.now()
	window := &model.AvailabilityWindow{
		ID:           uuid.NewString(),
		ProviderID:   input.ProviderID,
		Date:         input.Date,
		StartInstant: start,
		EndInstant:   end,
		IsRecurring:  input.IsRecurring,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.inTransaction(ctx, func(txCtx context.Context) error {
		if err := s.store.Locks.Touch(txCtx, window.ProviderID, window.Date, now); err != nil {
			return err
		}
		if err := s.verifyNoOverlap(txCtx, window); err != nil {
			return err
		}
		return s.store.Windows.Create(txCtx, window)
	})
	if err != nil {
		err = translate(err)
		logFailure(s.cfg.Log, "Failed to add availability window", err,
			"provider_id", input.ProviderID,
			"date", input.Date,
		)
		return nil, err
	}

	s.cfg.Log.Info("Availability window added successfully",
		"id", window.ID,
		"provider_id", window.ProviderID,
		"date", window.Date,
		"start_instant", window.StartInstant,
		"end_instant", window.EndInstant,
	)
	return window, nil
}

func (s *availabilityService) UpdateWindow(ctx context.Context, input UpdateWindowInput) (*model.AvailabilityWindow, error) {
	if err := validateID(input.WindowID, schedulingerrors.ErrInvalidWindowID); err != nil {
		return nil, translate(err)
	}

	var updated *model.AvailabilityWindow
	err := s.inTransaction(ctx, func(txCtx context.Context) error {
		window, err := s.ownedWindow(txCtx, input.ProviderID, input.WindowID)
		if err != nil {
			return err
		}
		if window.IsBooked {
			return fmt.Errorf("%w: %s", schedulingerrors.ErrWindowBooked, window.ID)
		}

		start, end, err := s.normalizer.Interval(window.Date, input.StartLocal, input.EndLocal)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.store.Locks.Touch(txCtx, window.ProviderID, window.Date, now); err != nil {
			return err
		}

		window.StartInstant = start
		window.EndInstant = end
		window.UpdatedAt = now
		if err := s.verifyNoOverlap(txCtx, window); err != nil {
			return err
		}
		if err := s.store.Windows.UpdateBoundsIfOpen(txCtx, window.ID, start, end, now); err != nil {
			return err
		}
		updated = window
		return nil
	})
	if err != nil {
		err = translate(err)
		logFailure(s.cfg.Log, "Failed to update availability window", err, "id", input.WindowID)
		return nil, err
	}

	s.cfg.Log.Info("Availability window updated successfully",
		"id", updated.ID,
		"start_instant", updated.StartInstant,
		"end_instant", updated.EndInstant,
	)
	return updated, nil
}

func (s *availabilityService) RemoveWindow(ctx context.Context, providerID, windowID string) error {
	if err := validateID(windowID, schedulingerrors.ErrInvalidWindowID); err != nil {
		return translate(err)
	}

	err := s.inTransaction(ctx, func(txCtx context.Context) error {
		window, err := s.ownedWindow(txCtx, providerID, windowID)
		if err != nil {
			return err
		}
		if window.IsBooked {
			return fmt.Errorf("%w: %s", schedulingerrors.ErrWindowBooked, window.ID)
		}
		return s.store.Windows.DeleteIfOpen(txCtx, window.ID)
	})
	if err != nil {
		err = translate(err)
		logFailure(s.cfg.Log, "Failed to remove availability window", err, "id", windowID)
		return err
	}

	s.cfg.Log.Info("Availability window removed successfully", "id", windowID)
	return nil
}

func (s *availabilityService) ListWindows(ctx context.Context, filter model.WindowFilter) ([]*model.AvailabilityWindow, error) {
	if filter.ProviderID == "" {
		return nil, apperrors.InvalidInput("Provider ID cannot be empty")
	}

	for _, date := range []string{filter.FromDate, filter.ToDate} {
		if date == "" {
			continue
		}
		if _, err := s.normalizer.ParseDate(date); err != nil {
			return nil, translate(err)
		}
	}
	// YYYY-MM-DD sorts lexically
	if filter.FromDate != "" && filter.ToDate != "" && filter.FromDate > filter.ToDate {
		return nil, translate(fmt.Errorf("%w: from %s is after to %s", timenorm.ErrInvalidInterval, filter.FromDate, filter.ToDate))
	}

	windows, err := s.store.Windows.Search(ctx, filter)
	if err != nil {
		err = translate(err)
		logFailure(s.cfg.Log, "Failed to list availability windows", err, "provider_id", filter.ProviderID)
		return nil, err
	}
	return windows, nil
}

// ownedWindow hides windows of other providers behind ErrWindowNotFound.
func (s *availabilityService) ownedWindow(ctx context.Context, providerID, windowID string) (*model.AvailabilityWindow, error) {
	window, err := s.store.Windows.FindByID(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if window.ProviderID != providerID {
		return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrWindowNotFound, windowID)
	}
	return window, nil
}

func (s *availabilityService) verifyNoOverlap(ctx context.Context, window *model.AvailabilityWindow) error {
	siblings, err := s.store.Windows.FindByProviderAndDate(ctx, window.ProviderID, window.Date)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if sibling.ID == window.ID {
			continue
		}
		if timenorm.Overlaps(window.StartInstant, window.EndInstant, sibling.StartInstant, sibling.EndInstant) {
			return fmt.Errorf("%w: overlaps window %s", schedulingerrors.ErrOverlapConflict, sibling.ID)
		}
	}
	return nil
}

func (s *availabilityService) inTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return retryTransient(ctx, s.cfg.StoreMaxAttempts, func() error {
		return s.store.Tx.ExecuteTransaction(ctx, fn)
	}, nil)
}

func validateID(id string, invalid error) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", invalid, id)
	}
	return nil
}
