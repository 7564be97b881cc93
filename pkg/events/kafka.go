package events

import (
	"context"

	"slotbook/pkg/kafka"
)

const source = "slotbook"

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher sends events keyed by reservation so one reservation's
// events stay ordered on a single partition.
type KafkaPublisher struct {
	producer MessagePublisher
}

func NewKafkaPublisher(producer MessagePublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := NewMessage(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func NewMessage(event Event) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(event.ReservationID).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(source).
		WithTimestamp(event.OccurredAt).
		Build()
}
