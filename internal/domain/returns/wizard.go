package returns

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

// Step is a return wizard step. Steps are linear and 1-indexed,
// independently of the checkout sequence.
type Step int

const (
	StepItemSelection Step = iota + 1
	StepReturnRateSelection
	StepReturnPayment
	StepLabelIssuance
	StepPackagingInstructions
)

const (
	firstStep = StepItemSelection
	lastStep  = StepPackagingInstructions
)

// String returns the step name
func (s Step) String() string {
	switch s {
	case StepItemSelection:
		return "ITEM_SELECTION"
	case StepReturnRateSelection:
		return "RETURN_RATE_SELECTION"
	case StepReturnPayment:
		return "RETURN_PAYMENT"
	case StepLabelIssuance:
		return "LABEL_ISSUANCE"
	case StepPackagingInstructions:
		return "PACKAGING_INSTRUCTIONS"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// IsValid checks if the step is within the sequence
func (s Step) IsValid() bool {
	return s >= firstStep && s <= lastStep
}

// StepPredicate reports whether a step's completion predicate holds
type StepPredicate func(Step) bool

// OrderLine is a historical order line eligible for return. It references
// an immutable purchased line, not a live catalog item.
type OrderLine struct {
	LineID          uuid.UUID
	ItemRef         string
	Name            string
	PurchasedQty    int64
	AlreadyReturned int64
	UnitPrice       valueobject.Money
	UnitWeight      valueobject.Weight
}

// ReturnableQty returns how many units may still be returned
func (l OrderLine) ReturnableQty() int64 {
	remaining := l.PurchasedQty - l.AlreadyReturned
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Label is an issued return-shipping label
type Label struct {
	RateID string `json:"rateId"`
	URL    string `json:"url"`
}

// Wizard is the return wizard aggregate: a linear step sequence over a
// subset of one historical order's items. Item selection drives the
// aggregate return weight, which in turn scopes the return-rate quotes.
type Wizard struct {
	OrderID    string
	ShipFrom   *shipping.Address // customer's historical shipping address (return origin)
	lines      []OrderLine
	selections map[uuid.UUID]int64
	current    Step
	label      *Label
	completed  bool
}

// NewWizard creates a wizard over a historical order's returnable lines
func NewWizard(orderID string, shipFrom *shipping.Address, lines []OrderLine) (*Wizard, error) {
	if orderID == "" {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if shipFrom == nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Return origin address is required")
	}
	owned := make([]OrderLine, len(lines))
	copy(owned, lines)
	return &Wizard{
		OrderID:    orderID,
		ShipFrom:   shipFrom,
		lines:      owned,
		selections: make(map[uuid.UUID]int64),
		current:    firstStep,
	}, nil
}

// Current returns the current step
func (w *Wizard) Current() Step {
	return w.current
}

// Lines returns the order's returnable lines
func (w *Wizard) Lines() []OrderLine {
	out := make([]OrderLine, len(w.lines))
	copy(out, w.lines)
	return out
}

// SelectItem marks a line for return with the requested quantity. Only
// allowed on the item-selection step; quantity must fit in
// [1, returnable quantity].
func (w *Wizard) SelectItem(lineID uuid.UUID, quantity int64) error {
	if w.current != StepItemSelection {
		return shared.ErrInvalidState
	}
	line := w.findLine(lineID)
	if line == nil {
		return shared.ErrNotFound
	}
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be at least 1")
	}
	if quantity > line.ReturnableQty() {
		return shared.NewDomainError("INVALID_QUANTITY", "Return quantity cannot exceed the returnable quantity")
	}
	w.selections[lineID] = quantity
	return nil
}

// DeselectItem removes a line from the return selection
func (w *Wizard) DeselectItem(lineID uuid.UUID) error {
	if w.current != StepItemSelection {
		return shared.ErrInvalidState
	}
	if _, ok := w.selections[lineID]; !ok {
		return shared.ErrNotFound
	}
	delete(w.selections, lineID)
	return nil
}

// Selections returns the selected line quantities
func (w *Wizard) Selections() map[uuid.UUID]int64 {
	out := make(map[uuid.UUID]int64, len(w.selections))
	for k, v := range w.selections {
		out[k] = v
	}
	return out
}

// HasSelection reports whether at least one line is selected. This is the
// ItemSelection completion predicate.
func (w *Wizard) HasSelection() bool {
	return len(w.selections) > 0
}

// SelectedWeight returns the aggregate weight of the selected items. The
// return-rate quote context derives from it, so selection changes move the
// context and stale any selected return rate.
func (w *Wizard) SelectedWeight() valueobject.Weight {
	weight := valueobject.ZeroWeight()
	for lineID, qty := range w.selections {
		if line := w.findLine(lineID); line != nil {
			weight = weight.Add(line.UnitWeight.MultiplyByInt(qty))
		}
	}
	return weight
}

// QuoteContext returns the rate quote context for the current selection:
// the historical shipping address as origin and the selected weight.
func (w *Wizard) QuoteContext() shipping.QuoteContext {
	return shipping.ContextFor(w.ShipFrom, w.SelectedWeight())
}

// Advance moves to the next step if the current step's completion
// predicate holds.
func (w *Wizard) Advance(isComplete StepPredicate) error {
	if w.current == lastStep {
		return shared.NewDomainError("INVALID_STEP", "Already on the final step")
	}
	if !isComplete(w.current) {
		return shared.ErrStepIncomplete
	}
	w.current++
	return nil
}

// Retreat moves to the previous step; always permitted
func (w *Wizard) Retreat() error {
	if w.current == firstStep {
		return shared.NewDomainError("INVALID_STEP", "Already on the first step")
	}
	w.current--
	return nil
}

// SetLabel records the issued return-shipping label. A label, once issued,
// is never replaced: a second issuance attempt returns the cached label.
func (w *Wizard) SetLabel(rateID, url string) error {
	if url == "" {
		return shared.NewDomainError("INVALID_LABEL", "Label URL cannot be empty")
	}
	if w.label != nil {
		return shared.ErrInvalidState
	}
	w.label = &Label{RateID: rateID, URL: url}
	return nil
}

// Label returns the issued label, or nil
func (w *Wizard) Label() *Label {
	if w.label == nil {
		return nil
	}
	l := *w.label
	return &l
}

// HasLabel reports whether a label has been issued. This is the
// LabelIssuance completion predicate.
func (w *Wizard) HasLabel() bool {
	return w.label != nil
}

// Complete finalizes the wizard on the last step. Returned quantities are
// recorded by the caller as session markers, not on the wizard's lines:
// the markers are the single source of truth for later wizards.
func (w *Wizard) Complete() error {
	if w.current != lastStep {
		return shared.ErrInvalidState
	}
	if w.completed {
		return shared.ErrInvalidState
	}
	if w.label == nil {
		return shared.NewDomainError("NO_LABEL", "Cannot complete a return without an issued label")
	}
	w.completed = true
	return nil
}

// IsCompleted reports whether the wizard has been finalized
func (w *Wizard) IsCompleted() bool {
	return w.completed
}

func (w *Wizard) findLine(lineID uuid.UUID) *OrderLine {
	for idx := range w.lines {
		if w.lines[idx].LineID == lineID {
			return &w.lines[idx]
		}
	}
	return nil
}
