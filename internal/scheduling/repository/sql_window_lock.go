package repository

import (
	"context"
	"fmt"
	"time"

	"slotbook/pkg/db/sqldb"
	"slotbook/pkg/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sqlWindowLockRepository struct {
	db *gorm.DB
}

func NewSQLWindowLockRepository(gdb *gorm.DB) WindowLockRepository {
	return &sqlWindowLockRepository{db: gdb}
}

// Touch upserts the provider/date lock row. The conflicting update takes a row
// lock that is held until the surrounding transaction ends.
func (r *sqlWindowLockRepository) Touch(ctx context.Context, providerID, date string, at time.Time) error {
	lock := model.WindowLock{
		ID:        model.WindowLockID(providerID, date),
		Version:   1,
		UpdatedAt: at.UTC(),
	}
	err := sqldb.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"version":    gorm.Expr("window_locks.version + 1"),
				"updated_at": at.UTC(),
			}),
		}).
		Create(&lock).Error
	if err != nil {
		return sqldb.Classify(fmt.Errorf("failed to touch window lock: %w", err))
	}
	return nil
}
