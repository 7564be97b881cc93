package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"slotbook/pkg/client"
	"slotbook/pkg/logger"

	"github.com/robfig/cron/v3"
)

type Config struct {
	ServiceName string
	Port        string

	StoreDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	SQLDSN             string
	SQLMaxOpenConns    int
	SQLMaxIdleConns    int
	SQLConnMaxLifetime time.Duration

	ReferenceTimezone string
	ReservationExpiry time.Duration
	StoreMaxAttempts  int

	SweepSchedule  string
	SweepBatchSize int

	ProfileServiceURL     string
	ProfileRequestTimeout time.Duration
	DefaultHourlyRate     int64
	RateCacheTTL          time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaEnabled        bool
	KafkaEventsTopic    string
	KafkaEventsDLQTopic string
	KafkaProfileTopic   string
	KafkaGroupID        string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment, validates it and exits the process on invalid
// configuration.
func Load(serviceName string) *Config {
	cfg := FromEnv(serviceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func FromEnv(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Port:        getEnvStr(EnvPort, DefaultPort),

		StoreDriver: strings.ToLower(getEnvStr(EnvStoreDriver, DefaultStoreDriver)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		SQLDSN:             getEnvStr(EnvSQLDSN, DefaultSQLDSN),
		SQLMaxOpenConns:    getEnvNum(EnvSQLMaxOpenConns, DefaultSQLMaxOpenConns),
		SQLMaxIdleConns:    getEnvNum(EnvSQLMaxIdleConns, DefaultSQLMaxIdleConns),
		SQLConnMaxLifetime: getEnvDuration(EnvSQLConnMaxLifetime, DefaultSQLConnMaxLifetime),

		ReferenceTimezone: getEnvStr(EnvReferenceTimezone, DefaultReferenceTimezone),
		ReservationExpiry: getEnvDuration(EnvReservationExpiry, DefaultReservationExpiry),
		StoreMaxAttempts:  getEnvNum(EnvStoreMaxAttempts, DefaultStoreMaxAttempts),

		SweepSchedule:  getEnvStr(EnvSweepSchedule, DefaultSweepSchedule),
		SweepBatchSize: getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),

		ProfileServiceURL:     getEnvStr(EnvProfileServiceURL, ""),
		ProfileRequestTimeout: getEnvDuration(EnvProfileRequestTimeout, DefaultProfileRequestTimeout),
		DefaultHourlyRate:     int64(getEnvNum(EnvDefaultHourlyRate, DefaultHourlyRateCents)),
		RateCacheTTL:          getEnvDuration(EnvRateCacheTTL, DefaultRateCacheTTL),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		KafkaEnabled:        getEnvBool(EnvKafkaEnabled, false),
		KafkaEventsTopic:    getEnvStr(EnvKafkaEventsTopic, DefaultKafkaEventsTopic),
		KafkaEventsDLQTopic: getEnvStr(EnvKafkaEventsDLQTopic, DefaultKafkaEventsDLQTopic),
		KafkaProfileTopic:   getEnvStr(EnvKafkaProfileTopic, DefaultKafkaProfileTopic),
		KafkaGroupID:        getEnvStr(EnvKafkaGroupID, DefaultKafkaGroupID),

		OTelEnabled:     getEnvBool(EnvOTelEnabled, false),
		OTelEndpoint:    getEnvStr(EnvOTelEndpoint, DefaultOTelEndpoint),
		OTelSampleRatio: getEnvFloat(EnvOTelSampleRatio, DefaultOTelSampleRatio),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

// Connect opens the store selected by StoreDriver and, when configured, Redis.
func (cfg *Config) Connect() {
	switch cfg.StoreDriver {
	case StoreDriverMongo:
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	default:
		cfg.Client.SetSQL(cfg.Log, client.SQLOptions{
			Driver:          cfg.StoreDriver,
			DSN:             cfg.SQLDSN,
			MaxOpenConns:    cfg.SQLMaxOpenConns,
			MaxIdleConns:    cfg.SQLMaxIdleConns,
			ConnMaxLifetime: cfg.SQLConnMaxLifetime,
		})
	}
	if cfg.RedisAddr != "" {
		cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreDriverMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case StoreDriverPostgres, StoreDriverSQLite:
		if cfg.SQLDSN == "" {
			errors = append(errors, "SQLDSN cannot be empty")
		}
		if cfg.SQLMaxOpenConns <= 0 {
			errors = append(errors, fmt.Sprintf("SQLMaxOpenConns must be positive, got: %d", cfg.SQLMaxOpenConns))
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of mongo, postgres, sqlite, got: %s", cfg.StoreDriver))
	}

	if _, err := time.LoadLocation(cfg.ReferenceTimezone); err != nil || cfg.ReferenceTimezone == "" {
		errors = append(errors, fmt.Sprintf("ReferenceTimezone must be a valid IANA zone, got: %s", cfg.ReferenceTimezone))
	}
	if cfg.ReservationExpiry <= 0 {
		errors = append(errors, fmt.Sprintf("ReservationExpiry must be positive, got: %s", cfg.ReservationExpiry))
	}
	if cfg.StoreMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("StoreMaxAttempts must be at least 1, got: %d", cfg.StoreMaxAttempts))
	}
	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("SweepSchedule must be a cron expression or descriptor, got: %s", cfg.SweepSchedule))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}

	if cfg.ProfileServiceURL == "" && cfg.DefaultHourlyRate <= 0 {
		errors = append(errors, "either ProfileServiceURL or DefaultHourlyRate must be set")
	}
	if cfg.DefaultHourlyRate < 0 {
		errors = append(errors, fmt.Sprintf("DefaultHourlyRate cannot be negative, got: %d", cfg.DefaultHourlyRate))
	}
	if cfg.ProfileRequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProfileRequestTimeout must be positive, got: %s", cfg.ProfileRequestTimeout))
	}
	if cfg.RateCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("RateCacheTTL must be positive, got: %s", cfg.RateCacheTTL))
	}

	if cfg.OTelSampleRatio < 0 || cfg.OTelSampleRatio > 1 {
		errors = append(errors, fmt.Sprintf("OTelSampleRatio must be between 0 and 1, got: %v", cfg.OTelSampleRatio))
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"sql_dsn", redactURI(cfg.SQLDSN),
		"sql_max_open_conns", cfg.SQLMaxOpenConns,
		"reference_timezone", cfg.ReferenceTimezone,
		"reservation_expiry", cfg.ReservationExpiry,
		"store_max_attempts", cfg.StoreMaxAttempts,
		"sweep_schedule", cfg.SweepSchedule,
		"sweep_batch_size", cfg.SweepBatchSize,
		"profile_service_url", cfg.ProfileServiceURL,
		"default_hourly_rate_cents", cfg.DefaultHourlyRate,
		"rate_cache_ttl", cfg.RateCacheTTL,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_events_topic", cfg.KafkaEventsTopic,
		"kafka_profile_topic", cfg.KafkaProfileTopic,
		"otel_enabled", cfg.OTelEnabled,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

var credentialRegex = regexp.MustCompile(`(://)[^:/@]+:[^@]+@`)

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
