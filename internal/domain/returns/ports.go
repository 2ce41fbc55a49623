package returns

import (
	"context"

	"github.com/storefront/backend/internal/domain/shipping"
)

// HistoricalOrder is a completed order as reported by the order system of
// record. ShipTo is the address the order was delivered to, which becomes
// the return's origin.
type HistoricalOrder struct {
	OrderID string
	ShipTo  shipping.AddressFields
	Lines   []OrderLine
}

// OrderHistory looks up completed orders eligible for return
type OrderHistory interface {
	Order(ctx context.Context, orderID string) (*HistoricalOrder, error)
}
