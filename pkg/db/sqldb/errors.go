package sqldb

import (
	"errors"
	"fmt"

	"slotbook/pkg/db"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgExclusionViolation   = "23P01"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// Classify tags Postgres, SQLite and GORM errors with the shared storage
// sentinels.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrTransient) || errors.Is(err, db.ErrDuplicate) || errors.Is(err, db.ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", db.ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", db.ErrDuplicate, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation:
			return fmt.Errorf("%w: %w", db.ErrDuplicate, err)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %w", db.ErrTransient, err)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", db.ErrTransient, err)
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", db.ErrDuplicate, err)
		}
		return err
	}

	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", db.ErrTransient, err)
	}
	return err
}
