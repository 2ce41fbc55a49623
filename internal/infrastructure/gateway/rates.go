package gateway

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

// RateClient quotes carrier rates and buys labels through the shipping
// rates service. Implements the rate provider and label purchaser.
type RateClient struct {
	*client
}

// NewRateClient creates a new shipping rates client
func NewRateClient(config *Config) (*RateClient, error) {
	c, err := newClient(config)
	if err != nil {
		return nil, err
	}
	return &RateClient{client: c}, nil
}

// Quote fetches carrier offers for a destination and parcel weight
func (r *RateClient) Quote(ctx context.Context, destination shipping.AddressFields, weight valueobject.Weight) ([]shipping.RateOffer, error) {
	req := quoteRequest{
		Destination: toWireAddress(destination),
		WeightGrams: weight.GramsInt(),
	}
	var resp quoteResponse
	if err := r.post(ctx, "/rates/quotes", req, &resp); err != nil {
		return nil, err
	}
	offers := make([]shipping.RateOffer, 0, len(resp.Rates))
	for _, rate := range resp.Rates {
		price, err := valueobject.NewMoneyFromString(rate.Price, valueobject.Currency(rate.Currency))
		if err != nil {
			return nil, fmt.Errorf("rate %s has invalid price %q: %w", rate.ID, rate.Price, err)
		}
		offers = append(offers, shipping.RateOffer{
			ID:       rate.ID,
			Provider: rate.Provider,
			Service:  rate.Service,
			Price:    price,
		})
	}
	return offers, nil
}

// Purchase buys a shipping label for a previously quoted rate
func (r *RateClient) Purchase(ctx context.Context, rateID string) (string, error) {
	req := labelRequest{RateID: rateID}
	var resp labelResponse
	if err := r.post(ctx, "/rates/labels", req, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("label purchase for rate %s returned no URL", rateID)
	}
	return resp.URL, nil
}
