package config

import "time"

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

const (
	DefaultPort        = "8080"
	DefaultLogLevel    = "info"
	DefaultStoreDriver = StoreDriverMongo

	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "slotbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultSQLDSN             = "file:slotbook.db?_busy_timeout=5000&_txlock=immediate"
	DefaultSQLMaxOpenConns    = 10
	DefaultSQLMaxIdleConns    = 5
	DefaultSQLConnMaxLifetime = 30 * time.Minute

	DefaultReferenceTimezone = "UTC"
	DefaultReservationExpiry = 24 * time.Hour
	DefaultStoreMaxAttempts  = 3

	DefaultSweepSchedule  = "@every 1m"
	DefaultSweepBatchSize = 200

	DefaultProfileRequestTimeout = 5 * time.Second
	DefaultHourlyRateCents       = 0
	DefaultRateCacheTTL          = 10 * time.Minute

	DefaultRedisDB = 0

	DefaultKafkaEventsTopic    = "scheduling.reservations"
	DefaultKafkaEventsDLQTopic = "scheduling.reservations.dlq"
	DefaultKafkaProfileTopic   = "profiles.rates"
	DefaultKafkaGroupID        = "slotbook-scheduling"

	DefaultOTelEndpoint    = "localhost:4317"
	DefaultOTelSampleRatio = 1.0

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
