package mongo

import (
	"context"
	"fmt"

	"slotbook/internal/migrations/mongo/validators"
	"slotbook/internal/scheduling/repository"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	WindowsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "provider_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "start_instant", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "provider_id", Value: 1},
			{Key: "is_booked", Value: 1},
			{Key: "date", Value: 1},
		}},
	}

	ReservationsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "availability_window_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_reservation_per_window").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": activeStatuses()}}),
		},
		{Keys: bson.D{
			{Key: "provider_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_instant", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "client_id", Value: 1},
			{Key: "start_instant", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "created_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "end_instant", Value: 1},
		}},
	}
)

// RunMigration creates collections with their JSON schema validators and
// indexes. The partial unique index needs MongoDB 6.0 or newer for $in.
func RunMigration(ctx context.Context, client *mongo.Client, databaseName string, log *logger.Logger) error {
	db := client.Database(databaseName)
	log.Info("Running Mongo migrations", "database", databaseName)

	collections := []struct {
		Name      string
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		{Name: repository.WindowsCollection, Indexes: WindowsIndexes, Validator: validators.WindowValidator},
		{Name: repository.ReservationsCollection, Indexes: ReservationsIndexes, Validator: validators.ReservationValidator},
		{Name: repository.WindowLocksCollection},
	}

	for _, def := range collections {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}

func activeStatuses() []string {
	values := make([]string, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		values = append(values, string(s))
	}
	return values
}
