package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"slotbook/pkg/client"
)

type rateResponse struct {
	ProviderID      string `json:"provider_id"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
}

// HTTPRateProvider asks the profile service for a provider's rate.
type HTTPRateProvider struct {
	client *client.HttpClient
}

func NewHTTPRateProvider(c *client.HttpClient) *HTTPRateProvider {
	return &HTTPRateProvider{client: c}
}

func (p *HTTPRateProvider) HourlyRateCents(ctx context.Context, providerID string) (int64, error) {
	resp, err := p.client.GET(ctx, "/api/v1/providers/"+url.PathEscape(providerID)+"/rate")
	if err != nil {
		return 0, fmt.Errorf("profile service: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, ErrRateNotFound
	default:
		return 0, fmt.Errorf("profile service returned %d: %s", resp.StatusCode, client.GetErrorMessage(resp))
	}

	var body rateResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, fmt.Errorf("decode profile rate: %w", err)
	}
	if body.HourlyRateCents <= 0 {
		return 0, ErrRateNotFound
	}
	return body.HourlyRateCents, nil
}

// FallbackRateProvider uses the fallback only when the primary has no rate
// for the provider. Transport errors are returned as is.
type FallbackRateProvider struct {
	Primary  RateProvider
	Fallback RateProvider
}

func (p FallbackRateProvider) HourlyRateCents(ctx context.Context, providerID string) (int64, error) {
	cents, err := p.Primary.HourlyRateCents(ctx, providerID)
	if err == ErrRateNotFound && p.Fallback != nil {
		return p.Fallback.HourlyRateCents(ctx, providerID)
	}
	return cents, err
}
