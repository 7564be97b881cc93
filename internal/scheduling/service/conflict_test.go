package service

import (
	"context"
	"errors"
	"testing"
	"time"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/pkg/db"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/model"
)

// ────────────────────────────────────────────────
// Mock repositories for testing
// ────────────────────────────────────────────────

type mockWindowRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.AvailabilityWindow, error)
}

func (m *mockWindowRepository) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	return nil
}

func (m *mockWindowRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, schedulingerrors.ErrWindowNotFound
}

func (m *mockWindowRepository) FindByProviderAndDate(ctx context.Context, providerID, date string) ([]*model.AvailabilityWindow, error) {
	return nil, nil
}

func (m *mockWindowRepository) Search(ctx context.Context, filter model.WindowFilter) ([]*model.AvailabilityWindow, error) {
	return nil, nil
}

func (m *mockWindowRepository) UpdateBoundsIfOpen(ctx context.Context, id string, start, end, updatedAt time.Time) error {
	return nil
}

func (m *mockWindowRepository) DeleteIfOpen(ctx context.Context, id string) error {
	return nil
}

func (m *mockWindowRepository) MarkBooked(ctx context.Context, providerID, id string, updatedAt time.Time) error {
	return nil
}

func (m *mockWindowRepository) Release(ctx context.Context, id string, updatedAt time.Time) error {
	return nil
}

type mockReservationRepository struct {
	findActiveOverlappingFunc func(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error)
}

func (m *mockReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	return nil
}

func (m *mockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	return nil, schedulingerrors.ErrReservationNotFound
}

func (m *mockReservationRepository) FindActiveOverlapping(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error) {
	if m.findActiveOverlappingFunc != nil {
		return m.findActiveOverlappingFunc(ctx, providerID, start, end)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) Search(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	return 0, nil
}

func (m *mockReservationRepository) UpdateStatus(ctx context.Context, change model.StatusChange) error {
	return nil
}

func (m *mockReservationRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepository) FindConfirmedEndedBy(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error) {
	return nil, nil
}

// ────────────────────────────────────────────────
// Tests for CheckAvailable()
// ────────────────────────────────────────────────

func TestCheckAvailable(t *testing.T) {
	windowStart := time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(time.Hour)
	before := windowStart.Add(-24 * time.Hour)

	openWindow := func() *model.AvailabilityWindow {
		return &model.AvailabilityWindow{
			ID:           "w-1",
			ProviderID:   trainer,
			StartInstant: windowStart,
			EndInstant:   windowEnd,
		}
	}

	tests := []struct {
		name     string
		window   func() *model.AvailabilityWindow
		windowFn func(ctx context.Context, id string) (*model.AvailabilityWindow, error)
		active   []*model.Reservation
		provider string
		start    time.Time
		end      time.Time
		now      time.Time
		wantErr  error
	}{
		{
			name:     "available",
			window:   openWindow,
			provider: trainer, start: windowStart, end: windowEnd, now: before,
		},
		{
			name:     "missing window",
			provider: trainer, start: windowStart, end: windowEnd, now: before,
			wantErr: schedulingerrors.ErrWindowUnavailable,
		},
		{
			name:     "other provider",
			window:   openWindow,
			provider: "trainer-2", start: windowStart, end: windowEnd, now: before,
			wantErr: schedulingerrors.ErrWindowUnavailable,
		},
		{
			name: "booked window",
			window: func() *model.AvailabilityWindow {
				w := openWindow()
				w.IsBooked = true
				return w
			},
			provider: trainer, start: windowStart, end: windowEnd, now: before,
			wantErr: schedulingerrors.ErrWindowUnavailable,
		},
		{
			name:     "mismatch wins over past time",
			window:   openWindow,
			provider: trainer, start: windowStart.Add(30 * time.Minute), end: windowEnd, now: windowEnd,
			wantErr: schedulingerrors.ErrWindowMismatch,
		},
		{
			name:     "starts now",
			window:   openWindow,
			provider: trainer, start: windowStart, end: windowEnd, now: windowStart,
			wantErr: schedulingerrors.ErrPastTime,
		},
		{
			name:     "past time wins over conflict",
			window:   openWindow,
			active:   []*model.Reservation{{ID: "r-1", StartInstant: windowStart, EndInstant: windowEnd}},
			provider: trainer, start: windowStart, end: windowEnd, now: windowEnd,
			wantErr: schedulingerrors.ErrPastTime,
		},
		{
			name:     "overlapping active reservation",
			window:   openWindow,
			active:   []*model.Reservation{{ID: "r-1", StartInstant: windowStart.Add(-30 * time.Minute), EndInstant: windowStart.Add(30 * time.Minute)}},
			provider: trainer, start: windowStart, end: windowEnd, now: before,
			wantErr: schedulingerrors.ErrScheduleConflict,
		},
		{
			name:     "touching reservation",
			window:   openWindow,
			active:   []*model.Reservation{{ID: "r-1", StartInstant: windowEnd, EndInstant: windowEnd.Add(time.Hour)}},
			provider: trainer, start: windowStart, end: windowEnd, now: before,
		},
		{
			name: "storage failure",
			windowFn: func(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
				return nil, db.ErrTransient
			},
			provider: trainer, start: windowStart, end: windowEnd, now: before,
			wantErr: db.ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := &mockWindowRepository{findByIDFunc: tt.windowFn}
			if tt.window != nil {
				windows.findByIDFunc = func(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
					return tt.window(), nil
				}
			}
			reservations := &mockReservationRepository{
				findActiveOverlappingFunc: func(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error) {
					return tt.active, nil
				},
			}
			now := tt.now
			detector := NewConflictDetector(windows, reservations, func() time.Time { return now })

			err := detector.CheckAvailable(context.Background(), tt.provider, "w-1", tt.start, tt.end)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ────────────────────────────────────────────────
// Tests for retryTransient() and translate()
// ────────────────────────────────────────────────

func TestRetryTransient(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers after transient failures", func(t *testing.T) {
		calls := 0
		err := retryTransient(ctx, 3, func() error {
			calls++
			if calls < 3 {
				return db.ErrTransient
			}
			return nil
		}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := retryTransient(ctx, 2, func() error {
			calls++
			return db.ErrTransient
		}, nil)
		if apperrors.AsAppError(err).Code != apperrors.CodeTransientStorage {
			t.Fatalf("expected TransientStorage, got %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})

	t.Run("does not retry business rejections", func(t *testing.T) {
		calls := 0
		err := retryTransient(ctx, 3, func() error {
			calls++
			return schedulingerrors.ErrWindowUnavailable
		}, nil)
		if !errors.Is(err, schedulingerrors.ErrWindowUnavailable) {
			t.Fatalf("expected the rejection untouched, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("retries stale status when asked", func(t *testing.T) {
		calls := 0
		err := retryTransient(ctx, 3, func() error {
			calls++
			if calls == 1 {
				return schedulingerrors.ErrStaleStatus
			}
			return nil
		}, isTransientOrStale)
		if err != nil || calls != 2 {
			t.Fatalf("expected success on second call, got %v after %d calls", err, calls)
		}
	})
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{schedulingerrors.ErrOverlapConflict, apperrors.CodeOverlapConflict},
		{schedulingerrors.ErrWindowBooked, apperrors.CodeWindowBooked},
		{schedulingerrors.ErrWindowUnavailable, apperrors.CodeWindowUnavailable},
		{schedulingerrors.ErrWindowMismatch, apperrors.CodeWindowMismatch},
		{schedulingerrors.ErrPastTime, apperrors.CodePastTime},
		{schedulingerrors.ErrScheduleConflict, apperrors.CodeScheduleConflict},
		{schedulingerrors.ErrInvalidTransition, apperrors.CodeInvalidTransition},
		{schedulingerrors.ErrWindowNotFound, apperrors.CodeNotFound},
		{schedulingerrors.ErrReservationNotFound, apperrors.CodeNotFound},
		{schedulingerrors.ErrStaleStatus, apperrors.CodeTransientStorage},
		{db.ErrTransient, apperrors.CodeTransientStorage},
		{errors.New("disk on fire"), apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := apperrors.AsAppError(translate(tt.err))
			if got.Code != tt.code {
				t.Errorf("translate(%v) code = %s, want %s", tt.err, got.Code, tt.code)
			}
		})
	}

	if translate(nil) != nil {
		t.Error("translate(nil) should be nil")
	}
}
