// Package sql migrates the relational schema used by the GORM store.
package sql

import (
	"context"
	"fmt"
	"strings"

	"slotbook/pkg/model"

	"gorm.io/gorm"
)

const activeReservationIndex = "uniq_active_reservation_per_window"

// RunMigration creates or updates tables and the partial unique index that
// allows one active reservation per window. Both SQLite and Postgres accept
// the same partial index statement.
func RunMigration(ctx context.Context, gdb *gorm.DB) error {
	db := gdb.WithContext(ctx)

	if err := db.AutoMigrate(&model.AvailabilityWindow{}, &model.Reservation{}, &model.WindowLock{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	quoted := make([]string, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON reservations (availability_window_id) WHERE status IN (%s)",
		activeReservationIndex, strings.Join(quoted, ", "),
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", activeReservationIndex, err)
	}
	return nil
}
