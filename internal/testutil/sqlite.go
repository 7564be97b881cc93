// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	sqlmigrations "slotbook/internal/migrations/sql"
	"slotbook/pkg/db/sqldb"
	"slotbook/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory SQLite database with the full schema.
// A single connection is used so concurrent callers queue on the pool the way
// writers queue on a real database lock.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := sqldb.Open(sqldb.Options{
		Driver:       sqldb.DriverSQLite,
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000",
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := sqlmigrations.RunMigration(context.Background(), gdb); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func NewLogger() *logger.Logger {
	return logger.Discard()
}
