package profile

import (
	"context"

	"slotbook/pkg/kafka"
	"slotbook/pkg/logger"
)

type Invalidator interface {
	Invalidate(ctx context.Context, providerID string) error
}

type rateChanged struct {
	ProviderID string `json:"provider_id"`
}

// RateInvalidationHandler evicts cached rates when the profile service
// announces a change. Undecodable messages are permanent failures and go
// straight to the DLQ.
func RateInvalidationHandler(cache Invalidator, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event rateChanged
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("decode rate change", err)
		}
		if event.ProviderID == "" {
			return kafka.NewPermanentError("rate change without provider_id", nil)
		}

		if err := cache.Invalidate(ctx, event.ProviderID); err != nil {
			return kafka.NewTransientError("invalidate rate", err)
		}

		log.Debug("Provider rate invalidated", "provider_id", event.ProviderID, "event_id", msg.GetEventID())
		return nil
	}
}
