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

type sqlReservationRepository struct {
	db *gorm.DB
}

func NewSQLReservationRepository(gdb *gorm.DB) ReservationRepository {
	return &sqlReservationRepository{db: gdb}
}

func (r *sqlReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	if err := sqldb.Conn(ctx, r.db).Create(reservation).Error; err != nil {
		err = sqldb.Classify(fmt.Errorf("failed to create reservation: %w", err))
		if errors.Is(err, db.ErrDuplicate) {
			return schedulingerrors.ErrWindowUnavailable
		}
		return err
	}
	return nil
}

func (r *sqlReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := sqldb.Conn(ctx, r.db).First(&reservation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedulingerrors.ErrReservationNotFound
		}
		return nil, sqldb.Classify(fmt.Errorf("failed to find reservation: %w", err))
	}
	normalizeReservation(&reservation)
	return &reservation, nil
}

func (r *sqlReservationRepository) FindActiveOverlapping(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error) {
	q := sqldb.Conn(ctx, r.db).
		Where("provider_id = ?", providerID).
		Where("status IN ?", activeStatusValues()).
		Where("start_instant < ? AND end_instant > ?", end.UTC(), start.UTC()).
		Order("start_instant ASC")
	return r.find(q)
}

func (r *sqlReservationRepository) Search(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error) {
	q := applyReservationFilter(sqldb.Conn(ctx, r.db), filter).
		Order("start_instant ASC").
		Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(int(filter.Offset))
	}
	return r.find(q)
}

func (r *sqlReservationRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	var total int64
	q := applyReservationFilter(sqldb.Conn(ctx, r.db).Model(&model.Reservation{}), filter)
	if err := q.Count(&total).Error; err != nil {
		return 0, sqldb.Classify(fmt.Errorf("failed to count reservations: %w", err))
	}
	return total, nil
}

func (r *sqlReservationRepository) UpdateStatus(ctx context.Context, change model.StatusChange) error {
	fields := statusFields(change)
	for key, value := range fields {
		if at, ok := value.(time.Time); ok {
			fields[key] = at.UTC()
		}
	}

	result := sqldb.Conn(ctx, r.db).
		Model(&model.Reservation{}).
		Where("id = ? AND status = ?", change.ReservationID, change.From).
		Updates(fields)
	if result.Error != nil {
		return sqldb.Classify(fmt.Errorf("failed to update reservation status: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return schedulingerrors.ErrStaleStatus
	}
	return nil
}

func (r *sqlReservationRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error) {
	q := sqldb.Conn(ctx, r.db).
		Where("status = ? AND created_at <= ?", model.StatusPendingConfirmation, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit)
	return r.find(q)
}

func (r *sqlReservationRepository) FindConfirmedEndedBy(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error) {
	q := sqldb.Conn(ctx, r.db).
		Where("status = ? AND end_instant <= ?", model.StatusConfirmed, cutoff.UTC()).
		Order("end_instant ASC").
		Limit(limit)
	return r.find(q)
}

func (r *sqlReservationRepository) find(q *gorm.DB) ([]*model.Reservation, error) {
	reservations := []*model.Reservation{}
	if err := q.Find(&reservations).Error; err != nil {
		return nil, sqldb.Classify(fmt.Errorf("failed to find reservations: %w", err))
	}
	for _, res := range reservations {
		normalizeReservation(res)
	}
	return reservations, nil
}

func applyReservationFilter(q *gorm.DB, filter model.ReservationFilter) *gorm.DB {
	if filter.ProviderID != "" {
		q = q.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.ClientID != "" {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

func normalizeReservation(r *model.Reservation) {
	r.StartInstant = r.StartInstant.UTC()
	r.EndInstant = r.EndInstant.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	for _, at := range []**time.Time{&r.ConfirmedAt, &r.CompletedAt, &r.TerminatedAt} {
		if *at != nil {
			utc := (**at).UTC()
			*at = &utc
		}
	}
}
