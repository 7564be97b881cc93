package sqldb

import (
	"context"

	"slotbook/pkg/db"
	apperrors "slotbook/pkg/errors"

	"gorm.io/gorm"
)

type txKey struct{}

type gormTransactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(gdb *gorm.DB) db.TransactionManager {
	return &gormTransactionManager{db: gdb}
}

// ExecuteTransaction commits when fn returns nil and rolls back otherwise. A
// transaction already present in ctx is joined instead of nested.
func (m *gormTransactionManager) ExecuteTransaction(ctx context.Context, fn db.TxFunc) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return Classify(err)
	}
	return nil
}

// Conn returns the transaction bound to ctx, or base scoped to ctx when the
// call runs outside a transaction.
func Conn(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return base.WithContext(ctx)
}
