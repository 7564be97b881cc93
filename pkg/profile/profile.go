// Package profile reads provider hourly rates from the profile service.
package profile

import (
	"context"
	"errors"
)

var ErrRateNotFound = errors.New("provider rate not found")

// RateProvider returns a provider's current hourly rate in cents.
type RateProvider interface {
	HourlyRateCents(ctx context.Context, providerID string) (int64, error)
}

// StaticRateProvider returns the same rate for every provider.
type StaticRateProvider struct {
	Cents int64
}

func (p StaticRateProvider) HourlyRateCents(ctx context.Context, providerID string) (int64, error) {
	if p.Cents <= 0 {
		return 0, ErrRateNotFound
	}
	return p.Cents, nil
}
