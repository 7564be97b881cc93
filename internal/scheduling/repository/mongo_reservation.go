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

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: database.Collection(ReservationsCollection),
	}
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		err = mongodb.Classify(fmt.Errorf("failed to create reservation: %w", err))
		// the partial unique index on active reservations per window
		if errors.Is(err, db.ErrDuplicate) {
			return schedulingerrors.ErrWindowUnavailable
		}
		return err
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var reservation model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schedulingerrors.ErrReservationNotFound
		}
		return nil, mongodb.Classify(fmt.Errorf("failed to find reservation: %w", err))
	}
	return &reservation, nil
}

func (r *mongoReservationRepository) FindActiveOverlapping(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error) {
	filter := bson.M{
		"provider_id":   providerID,
		"status":        bson.M{"$in": activeStatusValues()},
		"start_instant": bson.M{"$lt": end},
		"end_instant":   bson.M{"$gt": start},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_instant", Value: 1}}))
}

func (r *mongoReservationRepository) Search(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_instant", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(filter.Offset)
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return r.find(ctx, buildReservationFilter(filter), opts)
}

func (r *mongoReservationRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildReservationFilter(filter))
	if err != nil {
		return 0, mongodb.Classify(fmt.Errorf("failed to count reservations: %w", err))
	}
	return count, nil
}

func (r *mongoReservationRepository) UpdateStatus(ctx context.Context, change model.StatusChange) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{}
	for field, value := range statusFields(change) {
		set[field] = value
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": change.ReservationID, "status": change.From},
		bson.M{"$set": set},
	)
	if err != nil {
		return mongodb.Classify(fmt.Errorf("failed to update reservation status: %w", err))
	}
	if result.MatchedCount == 0 {
		return schedulingerrors.ErrStaleStatus
	}
	return nil
}

func (r *mongoReservationRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error) {
	filter := bson.M{
		"status":     model.StatusPendingConfirmation,
		"created_at": bson.M{"$lte": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoReservationRepository) FindConfirmedEndedBy(ctx context.Context, cutoff time.Time, limit int) ([]*model.Reservation, error) {
	filter := bson.M{
		"status":      model.StatusConfirmed,
		"end_instant": bson.M{"$lte": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "end_instant", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongodb.Classify(fmt.Errorf("failed to find reservations: %w", err))
	}
	defer cursor.Close(ctx)

	reservations := []*model.Reservation{}
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, mongodb.Classify(fmt.Errorf("failed to decode reservations: %w", err))
	}
	return reservations, nil
}

func buildReservationFilter(filter model.ReservationFilter) bson.M {
	query := bson.M{}
	if filter.ProviderID != "" {
		query["provider_id"] = filter.ProviderID
	}
	if filter.ClientID != "" {
		query["client_id"] = filter.ClientID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}
