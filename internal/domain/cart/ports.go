package cart

import (
	"context"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// StockOracle reports the currently purchasable quantity for an item.
// The value is advisory: the authoritative check happens server-side at
// order creation.
type StockOracle interface {
	Stock(ctx context.Context, itemRef string) (int64, error)
}

// PromotionValidator validates a user-supplied promotion code against the
// backend and resolves it into a discount for the given subtotal.
type PromotionValidator interface {
	Validate(ctx context.Context, code string, subtotal valueobject.Money) (discount valueobject.Money, valid bool, err error)
}
