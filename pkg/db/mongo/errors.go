package mongo

import (
	"errors"
	"fmt"

	"slotbook/pkg/db"

	"go.mongodb.org/mongo-driver/mongo"
)

// Classify tags driver errors with the shared storage sentinels so callers
// can branch on db.ErrTransient, db.ErrDuplicate and db.ErrNotFound.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrTransient) || errors.Is(err, db.ErrDuplicate) || errors.Is(err, db.ErrNotFound) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %w", db.ErrNotFound, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", db.ErrDuplicate, err)
	}

	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		if labeled.HasErrorLabel("TransientTransactionError") || labeled.HasErrorLabel("UnknownTransactionCommitResult") {
			return fmt.Errorf("%w: %w", db.ErrTransient, err)
		}
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %w", db.ErrTransient, err)
	}
	return err
}
