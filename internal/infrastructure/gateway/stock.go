package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/storefront/backend/internal/domain/shared"
)

// StockClient queries the stock service for purchasable quantities.
// Implements the cart's stock oracle.
type StockClient struct {
	*client
}

// NewStockClient creates a new stock service client
func NewStockClient(config *Config) (*StockClient, error) {
	c, err := newClient(config)
	if err != nil {
		return nil, err
	}
	return &StockClient{client: c}, nil
}

// Stock returns the available quantity for an item. An item the service
// does not know is reported as not found, not as zero stock.
func (s *StockClient) Stock(ctx context.Context, itemRef string) (int64, error) {
	var resp stockResponse
	err := s.get(ctx, "/stock/"+url.PathEscape(itemRef), &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return resp.Available, nil
}
