package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// PromotionClient resolves promotion codes against the promotion service.
// Implements the cart's promotion validator.
type PromotionClient struct {
	*client
}

// NewPromotionClient creates a new promotion service client
func NewPromotionClient(config *Config) (*PromotionClient, error) {
	c, err := newClient(config)
	if err != nil {
		return nil, err
	}
	return &PromotionClient{client: c}, nil
}

// Validate resolves a code into a discount for the given subtotal. A code
// the service rejects comes back as invalid without an error; transport
// failures are errors.
func (p *PromotionClient) Validate(ctx context.Context, code string, subtotal valueobject.Money) (valueobject.Money, bool, error) {
	req := promotionRequest{
		Code:     code,
		Subtotal: subtotal.StringFixed(2),
		Currency: string(subtotal.Currency()),
	}
	var resp promotionResponse
	if err := p.post(ctx, "/promotions/validate", req, &resp); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusUnprocessableEntity) {
			return valueobject.Zero(subtotal.Currency()), false, nil
		}
		return valueobject.Zero(subtotal.Currency()), false, err
	}
	if !resp.Valid {
		return valueobject.Zero(subtotal.Currency()), false, nil
	}
	discount, err := valueobject.NewMoneyFromString(resp.Discount, subtotal.Currency())
	if err != nil {
		return valueobject.Zero(subtotal.Currency()), false, err
	}
	return discount, true, nil
}
