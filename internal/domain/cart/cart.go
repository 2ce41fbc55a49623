package cart

import (
	"sort"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// LineItem represents a single purchasable line in the cart.
// It snapshots unit price and weight at the moment the item was added.
type LineItem struct {
	shared.BaseEntity
	ItemRef    string
	Name       string
	Quantity   int64
	Options    map[string]string
	UnitPrice  valueobject.Money
	UnitWeight valueobject.Weight
}

// LineTotal returns the line's price contribution (unit price * quantity)
func (l *LineItem) LineTotal() valueobject.Money {
	return l.UnitPrice.MultiplyByInt(l.Quantity)
}

// LineWeight returns the line's weight contribution
func (l *LineItem) LineWeight() valueobject.Weight {
	return l.UnitWeight.MultiplyByInt(l.Quantity)
}

// sameVariant reports whether the line matches an item reference with the
// given variant options.
func (l *LineItem) sameVariant(itemRef string, options map[string]string) bool {
	if l.ItemRef != itemRef || len(l.Options) != len(options) {
		return false
	}
	for k, v := range options {
		if l.Options[k] != v {
			return false
		}
	}
	return true
}

// Promotion represents an accepted promotion code and its discount.
// At most one promotion is active per cart; applying a new one replaces it.
type Promotion struct {
	Code     string
	Discount valueobject.Money
}

// Cart is the aggregate root owning the session's line items, the applied
// promotion and the currently selected shipping cost.
//
// Subtotal, weight, discount and total are derivations, recomputed
// synchronously inside every mutation. A caller never observes a stale total
// after a mutation returns.
type Cart struct {
	lines        []LineItem
	promotion    *Promotion
	shippingCost valueobject.Money
	currency     valueobject.Currency

	// memoized derivations, refreshed by recalculate()
	subtotal valueobject.Money
	discount valueobject.Money
	total    valueobject.Money
	weight   valueobject.Weight
}

// NewCart creates an empty cart in the given currency
func NewCart(currency valueobject.Currency) *Cart {
	c := &Cart{
		lines:        make([]LineItem, 0),
		currency:     currency,
		shippingCost: valueobject.Zero(currency),
	}
	c.recalculate()
	return c
}

// AddItem adds an item to the cart, merging with an existing line when the
// item reference and variant options match. availableStock is the most
// recently observed purchasable quantity for the item; the resulting line
// quantity must not exceed it.
func (c *Cart) AddItem(
	itemRef, name string,
	quantity int64,
	options map[string]string,
	unitPrice valueobject.Money,
	unitWeight valueobject.Weight,
	availableStock int64,
) (*LineItem, error) {
	if itemRef == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item reference cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if unitPrice.Currency() != c.currency {
		return nil, shared.NewDomainError("CURRENCY_MISMATCH", "Item currency does not match cart currency")
	}

	if existing := c.findVariant(itemRef, options); existing != nil {
		merged := existing.Quantity + quantity
		if merged > availableStock {
			return nil, shared.ErrInsufficientStock
		}
		existing.Quantity = merged
		existing.Touch()
		c.recalculate()
		return existing, nil
	}

	if quantity > availableStock {
		return nil, shared.ErrInsufficientStock
	}

	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[k] = v
	}
	line := LineItem{
		BaseEntity: shared.NewBaseEntity(),
		ItemRef:    itemRef,
		Name:       name,
		Quantity:   quantity,
		Options:    opts,
		UnitPrice:  unitPrice,
		UnitWeight: unitWeight,
	}
	c.lines = append(c.lines, line)
	c.recalculate()
	return &c.lines[len(c.lines)-1], nil
}

// UpdateQuantity changes a line's quantity. Zero removes the line. The new
// quantity must not exceed availableStock; on rejection the previous
// quantity is left untouched.
func (c *Cart) UpdateQuantity(lineID uuid.UUID, quantity, availableStock int64) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if quantity == 0 {
		return c.RemoveItem(lineID)
	}

	line := c.findLine(lineID)
	if line == nil {
		return shared.ErrNotFound
	}
	if quantity > availableStock {
		return shared.ErrInsufficientStock
	}

	line.Quantity = quantity
	line.Touch()
	c.recalculate()
	return nil
}

// RemoveItem removes a line from the cart
func (c *Cart) RemoveItem(lineID uuid.UUID) error {
	for idx := range c.lines {
		if c.lines[idx].ID == lineID {
			c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
			c.recalculate()
			return nil
		}
	}
	return shared.ErrNotFound
}

// Clear removes all lines, the promotion and any shipping cost
func (c *Cart) Clear() {
	c.lines = c.lines[:0]
	c.promotion = nil
	c.shippingCost = valueobject.Zero(c.currency)
	c.recalculate()
}

// ApplyPromotion stores an accepted promotion, replacing any previous one
func (c *Cart) ApplyPromotion(code string, discount valueobject.Money) error {
	if code == "" {
		return shared.NewDomainError("INVALID_PROMOTION", "Promotion code cannot be empty")
	}
	if discount.Currency() != c.currency {
		return shared.NewDomainError("CURRENCY_MISMATCH", "Discount currency does not match cart currency")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_PROMOTION", "Discount cannot be negative")
	}
	c.promotion = &Promotion{Code: code, Discount: discount}
	c.recalculate()
	return nil
}

// ClearPromotion removes the applied promotion and resets the discount to zero
func (c *Cart) ClearPromotion() {
	c.promotion = nil
	c.recalculate()
}

// SetShippingCost records the price of the selected shipping rate
func (c *Cart) SetShippingCost(cost valueobject.Money) error {
	if cost.Currency() != c.currency {
		return shared.NewDomainError("CURRENCY_MISMATCH", "Shipping cost currency does not match cart currency")
	}
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING_COST", "Shipping cost cannot be negative")
	}
	c.shippingCost = cost
	c.recalculate()
	return nil
}

// ClearShippingCost resets the shipping cost to zero. Called whenever the
// selected rate is invalidated.
func (c *Cart) ClearShippingCost() {
	c.shippingCost = valueobject.Zero(c.currency)
	c.recalculate()
}

// recalculate refreshes the memoized derivations. Every mutation ends here,
// so derived values are always consistent with the lines and promotion.
func (c *Cart) recalculate() {
	subtotal := valueobject.Zero(c.currency)
	weight := valueobject.ZeroWeight()
	for idx := range c.lines {
		subtotal = subtotal.MustAdd(c.lines[idx].LineTotal())
		weight = weight.Add(c.lines[idx].LineWeight())
	}

	discount := valueobject.Zero(c.currency)
	if c.promotion != nil {
		discount = c.promotion.Discount
		// A discount never exceeds the subtotal
		if greater, _ := discount.GreaterThan(subtotal); greater {
			discount = subtotal
		}
	}

	c.subtotal = subtotal
	c.weight = weight
	c.discount = discount
	c.total = subtotal.MustSubtract(discount).MustAdd(c.shippingCost)
}

// Subtotal returns the sum of all line totals
func (c *Cart) Subtotal() valueobject.Money {
	return c.subtotal
}

// Discount returns the applied promotion discount (zero when none)
func (c *Cart) Discount() valueobject.Money {
	return c.discount
}

// ShippingCost returns the selected rate price (zero when no rate selected)
func (c *Cart) ShippingCost() valueobject.Money {
	return c.shippingCost
}

// Total returns subtotal - discount + shipping cost
func (c *Cart) Total() valueobject.Money {
	return c.total
}

// TotalWeight returns the sum of all line weights
func (c *Cart) TotalWeight() valueobject.Weight {
	return c.weight
}

// Currency returns the cart currency
func (c *Cart) Currency() valueobject.Currency {
	return c.currency
}

// AppliedPromotion returns the active promotion, or nil
func (c *Cart) AppliedPromotion() *Promotion {
	if c.promotion == nil {
		return nil
	}
	p := *c.promotion
	return &p
}

// Lines returns a copy of the cart lines in insertion order
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// GetLine returns a line by its ID, or nil
func (c *Cart) GetLine(lineID uuid.UUID) *LineItem {
	return c.findLine(lineID)
}

// IsEmpty returns true if the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ItemCount returns the number of distinct lines
func (c *Cart) ItemCount() int {
	return len(c.lines)
}

// ItemRefs returns the distinct item references in the cart, sorted
func (c *Cart) ItemRefs() []string {
	seen := make(map[string]struct{}, len(c.lines))
	refs := make([]string, 0, len(c.lines))
	for idx := range c.lines {
		if _, ok := seen[c.lines[idx].ItemRef]; ok {
			continue
		}
		seen[c.lines[idx].ItemRef] = struct{}{}
		refs = append(refs, c.lines[idx].ItemRef)
	}
	sort.Strings(refs)
	return refs
}

// QuantityOf returns the total quantity across lines for an item reference
func (c *Cart) QuantityOf(itemRef string) int64 {
	var total int64
	for idx := range c.lines {
		if c.lines[idx].ItemRef == itemRef {
			total += c.lines[idx].Quantity
		}
	}
	return total
}

func (c *Cart) findLine(lineID uuid.UUID) *LineItem {
	for idx := range c.lines {
		if c.lines[idx].ID == lineID {
			return &c.lines[idx]
		}
	}
	return nil
}

func (c *Cart) findVariant(itemRef string, options map[string]string) *LineItem {
	for idx := range c.lines {
		if c.lines[idx].sameVariant(itemRef, options) {
			return &c.lines[idx]
		}
	}
	return nil
}
