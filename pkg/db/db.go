// Package db holds the storage contracts shared by the Mongo and SQL backends.
package db

import (
	"context"
	"errors"
)

var (
	// ErrTransient marks failures that may succeed on retry: write conflicts,
	// serialization failures, deadlocks, busy databases and dropped connections.
	ErrTransient = errors.New("transient storage failure")
	ErrDuplicate = errors.New("duplicate key")
	ErrNotFound  = errors.New("record not found")
)

// TxFunc receives a context bound to the running transaction. Every repository
// call made with that context participates in the transaction.
type TxFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TxFunc) error
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
