package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/pkg/config"
	"slotbook/pkg/db"
	mongodb "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoWindowLockRepository struct {
	collection *mongo.Collection
}

func NewMongoWindowLockRepository(cfg *config.Config) WindowLockRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWindowLockRepository{
		collection: database.Collection(WindowLocksCollection),
	}
}

// Touch upserts the provider/date lock document. Two transactions touching the
// same document conflict, and the loser is retried by the session.
func (r *mongoWindowLockRepository) Touch(ctx context.Context, providerID, date string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": model.WindowLockID(providerID, date)},
		bson.M{
			"$inc": bson.M{"version": 1},
			"$set": bson.M{"updated_at": at},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		err = mongodb.Classify(fmt.Errorf("failed to touch window lock: %w", err))
		// concurrent first upserts race on _id
		if errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("%w: %w", db.ErrTransient, err)
		}
		return err
	}
	return nil
}
