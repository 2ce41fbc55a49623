package cart

import (
	"github.com/google/uuid"

	cartdomain "github.com/storefront/backend/internal/domain/cart"
)

// AddItemRequest carries the inputs for adding an item to the cart
type AddItemRequest struct {
	ItemRef     string
	Name        string
	Quantity    int64
	Options     map[string]string
	UnitPrice   string // decimal string in the cart currency
	WeightGrams int64
}

// LineItemResponse is the API view of a cart line
type LineItemResponse struct {
	ID        uuid.UUID         `json:"id"`
	ItemRef   string            `json:"itemRef"`
	Name      string            `json:"name"`
	Quantity  int64             `json:"quantity"`
	Options   map[string]string `json:"options,omitempty"`
	UnitPrice string            `json:"unitPrice"`
	LineTotal string            `json:"lineTotal"`
}

// PromotionResponse is the API view of an applied promotion
type PromotionResponse struct {
	Code     string `json:"code"`
	Discount string `json:"discount"`
}

// Response is the API view of the cart with its derived totals. A
// StockWarning is set when the stock oracle was unreachable and the
// mutation proceeded against the last known stock value.
type Response struct {
	Lines        []LineItemResponse `json:"lines"`
	Currency     string             `json:"currency"`
	Subtotal     string             `json:"subtotal"`
	Discount     string             `json:"discount"`
	ShippingCost string             `json:"shippingCost"`
	Total        string             `json:"total"`
	WeightGrams  int64              `json:"weightGrams"`
	Promotion    *PromotionResponse `json:"promotion,omitempty"`
	StockWarning string             `json:"stockWarning,omitempty"`
}

// ToResponse builds the API view of a cart
func ToResponse(c *cartdomain.Cart, stockWarning string) Response {
	lines := c.Lines()
	out := Response{
		Lines:        make([]LineItemResponse, 0, len(lines)),
		Currency:     string(c.Currency()),
		Subtotal:     c.Subtotal().StringFixed(2),
		Discount:     c.Discount().StringFixed(2),
		ShippingCost: c.ShippingCost().StringFixed(2),
		Total:        c.Total().StringFixed(2),
		WeightGrams:  c.TotalWeight().GramsInt(),
		StockWarning: stockWarning,
	}
	for idx := range lines {
		l := &lines[idx]
		out.Lines = append(out.Lines, LineItemResponse{
			ID:        l.ID,
			ItemRef:   l.ItemRef,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Options:   l.Options,
			UnitPrice: l.UnitPrice.StringFixed(2),
			LineTotal: l.LineTotal().StringFixed(2),
		})
	}
	if promo := c.AppliedPromotion(); promo != nil {
		out.Promotion = &PromotionResponse{
			Code:     promo.Code,
			Discount: promo.Discount.StringFixed(2),
		}
	}
	return out
}
