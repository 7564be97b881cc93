package main

import (
	"context"

	"slotbook/internal/scheduling/handler"
	"slotbook/internal/scheduling/repository"
	"slotbook/internal/scheduling/service"
	"slotbook/internal/scheduling/validator"
	"slotbook/pkg/app"
	"slotbook/pkg/client"
	"slotbook/pkg/config"
	"slotbook/pkg/events"
	"slotbook/pkg/kafka"
	kafka_config "slotbook/pkg/kafka/config"
	kafka_middleware "slotbook/pkg/kafka/middleware"
	"slotbook/pkg/profile"
	"slotbook/pkg/telemetry"
	"slotbook/pkg/timenorm"
)

const ServiceName = "scheduling"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Connect()

	serverApp := app.NewApplication(cfg)

	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  ServiceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		cfg.Log.Fatal("Failed to set up tracing", "error", err)
	}
	serverApp.OnShutdown(shutdownTracing)

	cfg.Log.Info("Starting Scheduling service")
	schedulingService := initServices(cfg, serverApp)

	serverApp.SetApp(
		handler.NewSchedulingHandler(schedulingService, validator.NewSchedulingValidator(cfg.Log), cfg.Log),
		handler.NewHealthHandler(cfg.Client, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) service.SchedulingService {
	normalizer, err := timenorm.NewFromName(cfg.ReferenceTimezone)
	if err != nil {
		cfg.Log.Fatal("Invalid reference timezone", "timezone", cfg.ReferenceTimezone, "error", err)
	}

	var kafkaCfg *kafka_config.Config
	if cfg.KafkaEnabled {
		kafkaCfg = loadKafkaConfig(cfg)
	}

	rates := initRates(cfg, kafkaCfg, serverApp)
	publisher := initPublisher(cfg, kafkaCfg, serverApp)

	schedulingService := service.NewSchedulingService(
		repository.NewStore(cfg),
		normalizer,
		rates,
		publisher,
		cfg,
		service.SystemClock,
	)

	cfg.Log.Info("Scheduling service initialized",
		"store_driver", cfg.StoreDriver,
		"reference_timezone", cfg.ReferenceTimezone,
	)
	return schedulingService
}

func loadKafkaConfig(cfg *config.Config) *kafka_config.Config {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)
	return kafkaCfg
}

// initRates layers the profile service, the Redis cache and the configured
// default rate, using whichever of them are configured.
func initRates(cfg *config.Config, kafkaCfg *kafka_config.Config, serverApp *app.Application) profile.RateProvider {
	var fallback profile.RateProvider
	if cfg.DefaultHourlyRate > 0 {
		fallback = profile.StaticRateProvider{Cents: cfg.DefaultHourlyRate}
	}
	if cfg.ProfileServiceURL == "" {
		cfg.Log.Info("Using default hourly rate for every provider", "cents", cfg.DefaultHourlyRate)
		return fallback
	}

	var rates profile.RateProvider = profile.NewHTTPRateProvider(
		client.NewHttpClient(cfg.ProfileServiceURL, cfg.ProfileRequestTimeout),
	)

	if cfg.Client.Redis != nil {
		cache := profile.NewCachedRateProvider(rates, cfg.Client.Redis, cfg.RateCacheTTL, cfg.Log)
		rates = cache

		if kafkaCfg != nil {
			consumer, err := kafka.NewConsumer(kafkaCfg, cfg.KafkaProfileTopic, cfg.KafkaGroupID, cfg.KafkaProfileTopic+".dlq",
				profile.RateInvalidationHandler(cache, cfg.Log), cfg.Log)
			if err != nil {
				cfg.Log.Fatal("Failed to create profile consumer", "error", err)
			}
			consumer.Use(kafka_middleware.TracingConsumerMiddleware())
			consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
			serverApp.AddWorker("profile-rate-invalidation", consumer.Start)
			serverApp.OnShutdown(func(context.Context) error { return consumer.Close() })
		}
	}

	if fallback != nil {
		return profile.FallbackRateProvider{Primary: rates, Fallback: fallback}
	}
	return rates
}

func initPublisher(cfg *config.Config, kafkaCfg *kafka_config.Config, serverApp *app.Application) events.Publisher {
	if kafkaCfg == nil {
		cfg.Log.Info("Kafka disabled, domain events are logged only")
		return events.NewLogPublisher(cfg.Log)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaEventsTopic, cfg.KafkaEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create events producer", "error", err)
	}
	producer.Use(kafka_middleware.TracingProducerMiddleware())
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	serverApp.OnShutdown(func(context.Context) error { return producer.Close() })

	return events.NewKafkaPublisher(producer)
}
