package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/pkg/db"
	"slotbook/pkg/db/sqldb"
	"slotbook/pkg/model"

	"gorm.io/gorm"
)

type sqlWindowRepository struct {
	db *gorm.DB
}

func NewSQLWindowRepository(gdb *gorm.DB) WindowRepository {
	return &sqlWindowRepository{db: gdb}
}

func (r *sqlWindowRepository) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	if err := sqldb.Conn(ctx, r.db).Create(window).Error; err != nil {
		return sqldb.Classify(fmt.Errorf("failed to create window: %w", err))
	}
	return nil
}

func (r *sqlWindowRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
	var window model.AvailabilityWindow
	if err := sqldb.Conn(ctx, r.db).First(&window, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedulingerrors.ErrWindowNotFound
		}
		return nil, sqldb.Classify(fmt.Errorf("failed to find window: %w", err))
	}
	normalizeWindow(&window)
	return &window, nil
}

func (r *sqlWindowRepository) FindByProviderAndDate(ctx context.Context, providerID, date string) ([]*model.AvailabilityWindow, error) {
	q := sqldb.Conn(ctx, r.db).
		Where("provider_id = ? AND date = ?", providerID, date)
	return r.find(q)
}

func (r *sqlWindowRepository) Search(ctx context.Context, filter model.WindowFilter) ([]*model.AvailabilityWindow, error) {
	q := sqldb.Conn(ctx, r.db).Where("provider_id = ?", filter.ProviderID)
	if filter.FromDate != "" {
		q = q.Where("date >= ?", filter.FromDate)
	}
	if filter.ToDate != "" {
		q = q.Where("date <= ?", filter.ToDate)
	}
	if filter.OnlyOpen {
		q = q.Where("is_booked = ?", false)
	}
	return r.find(q)
}

func (r *sqlWindowRepository) find(q *gorm.DB) ([]*model.AvailabilityWindow, error) {
	windows := []*model.AvailabilityWindow{}
	if err := q.Order("start_instant ASC").Find(&windows).Error; err != nil {
		return nil, sqldb.Classify(fmt.Errorf("failed to find windows: %w", err))
	}
	for _, w := range windows {
		normalizeWindow(w)
	}
	return windows, nil
}

func (r *sqlWindowRepository) UpdateBoundsIfOpen(ctx context.Context, id string, start, end, updatedAt time.Time) error {
	result := sqldb.Conn(ctx, r.db).
		Model(&model.AvailabilityWindow{}).
		Where("id = ? AND is_booked = ?", id, false).
		Updates(map[string]any{
			"start_instant": start.UTC(),
			"end_instant":   end.UTC(),
			"updated_at":    updatedAt.UTC(),
		})
	if result.Error != nil {
		return sqldb.Classify(fmt.Errorf("failed to update window: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return schedulingerrors.ErrWindowBooked
	}
	return nil
}

func (r *sqlWindowRepository) DeleteIfOpen(ctx context.Context, id string) error {
	result := sqldb.Conn(ctx, r.db).
		Where("id = ? AND is_booked = ?", id, false).
		Delete(&model.AvailabilityWindow{})
	if result.Error != nil {
		return sqldb.Classify(fmt.Errorf("failed to delete window: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return schedulingerrors.ErrWindowBooked
	}
	return nil
}

func (r *sqlWindowRepository) MarkBooked(ctx context.Context, providerID, id string, updatedAt time.Time) error {
	result := sqldb.Conn(ctx, r.db).
		Model(&model.AvailabilityWindow{}).
		Where("id = ? AND provider_id = ? AND is_booked = ?", id, providerID, false).
		Updates(map[string]any{
			"is_booked":  true,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return sqldb.Classify(fmt.Errorf("failed to book window: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return schedulingerrors.ErrWindowUnavailable
	}
	return nil
}

func (r *sqlWindowRepository) Release(ctx context.Context, id string, updatedAt time.Time) error {
	result := sqldb.Conn(ctx, r.db).
		Model(&model.AvailabilityWindow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_booked":  false,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return sqldb.Classify(fmt.Errorf("failed to release window: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", db.ErrNotFound, id)
	}
	return nil
}

// normalizeWindow restores UTC locations dropped by some drivers on scan.
func normalizeWindow(w *model.AvailabilityWindow) {
	w.StartInstant = w.StartInstant.UTC()
	w.EndInstant = w.EndInstant.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
}
