package kafka_middleware

import (
	"context"

	"slotbook/pkg/kafka"
	"slotbook/pkg/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "slotbook/pkg/kafka"

// TracingProducerMiddleware opens a producer span and carries its context
// in the message headers.
func TracingProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.publish",
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", msg.Topic),
				attribute.String("messaging.message.id", msg.GetEventID()),
			),
		)
		defer span.End()

		headers := make(map[string]string, len(msg.Headers)+2)
		for k, v := range msg.Headers {
			headers[k] = v
		}
		telemetry.Inject(ctx, headers)
		msg.Headers = headers

		err := next(ctx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// TracingConsumerMiddleware continues the producer's trace for the handler.
func TracingConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		ctx = telemetry.Extract(ctx, msg.Headers)
		ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.process",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.source.name", msg.Topic),
				attribute.Int64("messaging.kafka.offset", msg.Offset),
			),
		)
		defer span.End()

		err := next(ctx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}
