package mongo

import (
	"context"
	"fmt"

	"slotbook/pkg/db"
	apperrors "slotbook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) db.TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// ExecuteTransaction runs fn inside a session transaction. The driver retries
// the callback on TransientTransactionError; anything still transient after
// that is reported as db.ErrTransient.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn db.TxFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return Classify(fmt.Errorf("failed to start session: %w", err))
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return Classify(fmt.Errorf("transaction failed: %w", err))
	}

	return nil
}
