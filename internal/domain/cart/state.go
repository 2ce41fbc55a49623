package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// LineItemState is the persistable form of a cart line
type LineItemState struct {
	ID         uuid.UUID          `json:"id"`
	ItemRef    string             `json:"itemRef"`
	Name       string             `json:"name"`
	Quantity   int64              `json:"quantity"`
	Options    map[string]string  `json:"options,omitempty"`
	UnitPrice  valueobject.Money  `json:"unitPrice"`
	UnitWeight valueobject.Weight `json:"unitWeight"`
	AddedAt    time.Time          `json:"addedAt"`
}

// PromotionState is the persistable form of an applied promotion
type PromotionState struct {
	Code     string            `json:"code"`
	Discount valueobject.Money `json:"discount"`
}

// State is the persistable form of the cart. Shipping cost is intentionally
// not part of it: a restored cart starts with no rate selected, and the
// checkout session re-applies the selection only if its context is still
// current.
type State struct {
	Currency  valueobject.Currency `json:"currency"`
	Lines     []LineItemState      `json:"lines"`
	Promotion *PromotionState      `json:"promotion,omitempty"`
}

// ToState captures the cart for persistence
func (c *Cart) ToState() State {
	lines := make([]LineItemState, 0, len(c.lines))
	for idx := range c.lines {
		l := &c.lines[idx]
		lines = append(lines, LineItemState{
			ID:         l.ID,
			ItemRef:    l.ItemRef,
			Name:       l.Name,
			Quantity:   l.Quantity,
			Options:    l.Options,
			UnitPrice:  l.UnitPrice,
			UnitWeight: l.UnitWeight,
			AddedAt:    l.CreatedAt,
		})
	}
	state := State{
		Currency: c.currency,
		Lines:    lines,
	}
	if c.promotion != nil {
		state.Promotion = &PromotionState{
			Code:     c.promotion.Code,
			Discount: c.promotion.Discount,
		}
	}
	return state
}

// FromState rebuilds a cart from a persisted state
func FromState(state State) (*Cart, error) {
	currency := state.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	c := NewCart(currency)
	for _, ls := range state.Lines {
		if ls.Quantity < 1 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Persisted line quantity must be at least 1")
		}
		line := LineItem{
			BaseEntity: shared.BaseEntity{
				ID:        ls.ID,
				CreatedAt: ls.AddedAt,
				UpdatedAt: ls.AddedAt,
			},
			ItemRef:    ls.ItemRef,
			Name:       ls.Name,
			Quantity:   ls.Quantity,
			Options:    ls.Options,
			UnitPrice:  ls.UnitPrice,
			UnitWeight: ls.UnitWeight,
		}
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		c.lines = append(c.lines, line)
	}
	if state.Promotion != nil {
		c.promotion = &Promotion{
			Code:     state.Promotion.Code,
			Discount: state.Promotion.Discount,
		}
	}
	c.recalculate()
	return c, nil
}
