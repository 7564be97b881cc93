package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/pkg/config"
	"slotbook/pkg/db"
	mongodb "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoWindowRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWindowRepository(cfg *config.Config) WindowRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWindowRepository{
		cfg:        cfg,
		collection: database.Collection(WindowsCollection),
	}
}

func (r *mongoWindowRepository) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, window); err != nil {
		return mongodb.Classify(fmt.Errorf("failed to create window: %w", err))
	}
	return nil
}

func (r *mongoWindowRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var window model.AvailabilityWindow
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&window)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schedulingerrors.ErrWindowNotFound
		}
		return nil, mongodb.Classify(fmt.Errorf("failed to find window: %w", err))
	}
	return &window, nil
}

func (r *mongoWindowRepository) FindByProviderAndDate(ctx context.Context, providerID, date string) ([]*model.AvailabilityWindow, error) {
	return r.find(ctx, bson.M{"provider_id": providerID, "date": date})
}

func (r *mongoWindowRepository) Search(ctx context.Context, filter model.WindowFilter) ([]*model.AvailabilityWindow, error) {
	return r.find(ctx, buildWindowFilter(filter))
}

func (r *mongoWindowRepository) find(ctx context.Context, filter bson.M) ([]*model.AvailabilityWindow, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_instant", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongodb.Classify(fmt.Errorf("failed to find windows: %w", err))
	}
	defer cursor.Close(ctx)

	windows := []*model.AvailabilityWindow{}
	if err := cursor.All(ctx, &windows); err != nil {
		return nil, mongodb.Classify(fmt.Errorf("failed to decode windows: %w", err))
	}
	return windows, nil
}

func (r *mongoWindowRepository) UpdateBoundsIfOpen(ctx context.Context, id string, start, end, updatedAt time.Time) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "is_booked": false},
		bson.M{"$set": bson.M{
			"start_instant": start,
			"end_instant":   end,
			"updated_at":    updatedAt,
		}},
	)
	if err != nil {
		return mongodb.Classify(fmt.Errorf("failed to update window: %w", err))
	}
	if result.MatchedCount == 0 {
		return schedulingerrors.ErrWindowBooked
	}
	return nil
}

func (r *mongoWindowRepository) DeleteIfOpen(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "is_booked": false})
	if err != nil {
		return mongodb.Classify(fmt.Errorf("failed to delete window: %w", err))
	}
	if result.DeletedCount == 0 {
		return schedulingerrors.ErrWindowBooked
	}
	return nil
}

func (r *mongoWindowRepository) MarkBooked(ctx context.Context, providerID, id string, updatedAt time.Time) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "provider_id": providerID, "is_booked": false},
		bson.M{"$set": bson.M{"is_booked": true, "updated_at": updatedAt}},
	)
	if err != nil {
		return mongodb.Classify(fmt.Errorf("failed to book window: %w", err))
	}
	if result.MatchedCount == 0 {
		return schedulingerrors.ErrWindowUnavailable
	}
	return nil
}

func (r *mongoWindowRepository) Release(ctx context.Context, id string, updatedAt time.Time) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_booked": false, "updated_at": updatedAt}},
	)
	if err != nil {
		return mongodb.Classify(fmt.Errorf("failed to release window: %w", err))
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", db.ErrNotFound, id)
	}
	return nil
}

func buildWindowFilter(filter model.WindowFilter) bson.M {
	query := bson.M{"provider_id": filter.ProviderID}

	dateRange := bson.M{}
	if filter.FromDate != "" {
		dateRange["$gte"] = filter.FromDate
	}
	if filter.ToDate != "" {
		dateRange["$lte"] = filter.ToDate
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}
	if filter.OnlyOpen {
		query["is_booked"] = false
	}
	return query
}
