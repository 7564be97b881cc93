package main

import (
	"context"
	"os/signal"
	"syscall"

	"slotbook/internal/scheduling/repository"
	"slotbook/internal/scheduling/service"
	"slotbook/internal/scheduling/sweeper"
	"slotbook/pkg/config"
	"slotbook/pkg/events"
	"slotbook/pkg/kafka"
	kafka_config "slotbook/pkg/kafka/config"
	kafka_middleware "slotbook/pkg/kafka/middleware"
	"slotbook/pkg/profile"
	"slotbook/pkg/telemetry"
	"slotbook/pkg/timenorm"
)

const JobName = "scheduling-sweeper"

func main() {
	cfg := config.Load(JobName)
	cfg.Connect()
	defer cfg.Client.GracefulShutdown(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  JobName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		cfg.Log.Fatal("Failed to set up tracing", "error", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	normalizer, err := timenorm.NewFromName(cfg.ReferenceTimezone)
	if err != nil {
		cfg.Log.Fatal("Invalid reference timezone", "timezone", cfg.ReferenceTimezone, "error", err)
	}

	publisher, closePublisher := initPublisher(cfg)
	defer closePublisher()

	// Sweeps never price a reservation, so no profile lookup is wired.
	ledger := service.NewSchedulingService(
		repository.NewStore(cfg),
		normalizer,
		profile.StaticRateProvider{Cents: cfg.DefaultHourlyRate},
		publisher,
		cfg,
		service.SystemClock,
	)

	s := sweeper.New(ledger, cfg.Log, nil, cfg.RequestTimeout)
	if err := s.Start(ctx, cfg.SweepSchedule); err != nil {
		cfg.Log.Fatal("Sweeper failed", "error", err)
	}
}

func initPublisher(cfg *config.Config) (events.Publisher, func()) {
	if !cfg.KafkaEnabled {
		return events.NewLogPublisher(cfg.Log), func() {}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaEventsTopic, cfg.KafkaEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create events producer", "error", err)
	}
	producer.Use(kafka_middleware.TracingProducerMiddleware())
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	return events.NewKafkaPublisher(producer), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close events producer", "error", err)
		}
	}
}
