package main

import (
	"context"
	"time"

	mongoMigration "slotbook/internal/migrations/mongo"
	sqlMigration "slotbook/internal/migrations/sql"
	"slotbook/pkg/config"
)

const JobName = "slotbook-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.Connect()
	defer cfg.Client.GracefulShutdown(cfg.Log)

	cfg.Log.Info("Starting migration job", "store_driver", cfg.StoreDriver)

	var err error
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		err = mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	default:
		err = sqlMigration.RunMigration(ctx, cfg.Client.SQL)
	}
	if err != nil {
		cfg.Client.GracefulShutdown(cfg.Log)
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	cfg.Log.Info("Migration completed successfully")
}
