package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStoreDriver = "STORE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvSQLDSN             = "SQL_DSN"
	EnvSQLMaxOpenConns    = "SQL_MAX_OPEN_CONNS"
	EnvSQLMaxIdleConns    = "SQL_MAX_IDLE_CONNS"
	EnvSQLConnMaxLifetime = "SQL_CONN_MAX_LIFETIME"

	EnvReferenceTimezone = "REFERENCE_TIMEZONE"
	EnvReservationExpiry = "RESERVATION_EXPIRY"
	EnvStoreMaxAttempts  = "STORE_MAX_ATTEMPTS"

	EnvSweepSchedule  = "SWEEP_SCHEDULE"
	EnvSweepBatchSize = "SWEEP_BATCH_SIZE"

	EnvProfileServiceURL     = "PROFILE_SERVICE_URL"
	EnvProfileRequestTimeout = "PROFILE_REQUEST_TIMEOUT"
	EnvDefaultHourlyRate     = "DEFAULT_HOURLY_RATE_CENTS"
	EnvRateCacheTTL          = "RATE_CACHE_TTL"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvKafkaEnabled        = "KAFKA_ENABLED"
	EnvKafkaEventsTopic    = "KAFKA_EVENTS_TOPIC"
	EnvKafkaEventsDLQTopic = "KAFKA_EVENTS_DLQ_TOPIC"
	EnvKafkaProfileTopic   = "KAFKA_PROFILE_TOPIC"
	EnvKafkaGroupID        = "KAFKA_GROUP_ID"

	EnvOTelEnabled     = "OTEL_ENABLED"
	EnvOTelEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTelSampleRatio = "OTEL_SAMPLING_RATIO"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
