package shipping

import (
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// QuoteContext identifies the (address, weight) pair a set of rate quotes
// was computed from. Two contexts are interchangeable only when they are
// equal; any difference makes quotes computed under the old context stale.
type QuoteContext struct {
	AddressID       uuid.UUID `json:"addressId"`
	AddressRevision int64     `json:"addressRevision"`
	WeightGrams     int64     `json:"weightGrams"`
}

// ContextFor builds the quote context for an address and cart weight
func ContextFor(addr *Address, weight valueobject.Weight) QuoteContext {
	if addr == nil {
		return QuoteContext{}
	}
	return QuoteContext{
		AddressID:       addr.ID,
		AddressRevision: addr.Revision,
		WeightGrams:     weight.GramsInt(),
	}
}

// IsZero reports whether the context is unset
func (c QuoteContext) IsZero() bool {
	return c == QuoteContext{}
}

// RateQuote is a priced shipping offer from a carrier, valid only for the
// context it was computed from.
type RateQuote struct {
	ID       string
	Provider string
	Service  string
	Price    valueobject.Money
	Context  QuoteContext
}

// QuoteStatus describes the state of the latest rate fetch. Error is
// distinct from loading and from an empty result set; all three leave the
// rate-selection step incomplete until a quote is selected.
type QuoteStatus string

const (
	QuoteStatusIdle    QuoteStatus = "IDLE"
	QuoteStatusLoading QuoteStatus = "LOADING"
	QuoteStatusReady   QuoteStatus = "READY"
	QuoteStatusEmpty   QuoteStatus = "EMPTY"
	QuoteStatusError   QuoteStatus = "ERROR"
)

// RateBoard holds the candidate quotes for the current context and the
// user's selection. Selection never survives a context change.
type RateBoard struct {
	context  QuoteContext
	quotes   []RateQuote
	selected *RateQuote
	status   QuoteStatus
	lastErr  string
}

// NewRateBoard creates an empty rate board
func NewRateBoard() *RateBoard {
	return &RateBoard{status: QuoteStatusIdle}
}

// BeginFetch records that a fetch for the given context has been issued.
// If the context differs from the current one, the previous quotes and any
// selection are dropped first.
func (r *RateBoard) BeginFetch(ctx QuoteContext) {
	if r.context != ctx {
		r.quotes = nil
		r.selected = nil
	}
	r.context = ctx
	r.status = QuoteStatusLoading
	r.lastErr = ""
}

// SetQuotes applies a fetch result, but only if it belongs to the current
// context. A stale result is silently discarded and false is returned.
func (r *RateBoard) SetQuotes(ctx QuoteContext, quotes []RateQuote) bool {
	if ctx != r.context {
		return false
	}
	r.quotes = quotes
	r.selected = nil
	if len(quotes) == 0 {
		r.status = QuoteStatusEmpty
	} else {
		r.status = QuoteStatusReady
	}
	r.lastErr = ""
	return true
}

// SetError records a fetch failure for the current context. A failure for a
// superseded context is discarded and false is returned.
func (r *RateBoard) SetError(ctx QuoteContext, message string) bool {
	if ctx != r.context {
		return false
	}
	r.quotes = nil
	r.selected = nil
	r.status = QuoteStatusError
	r.lastErr = message
	return true
}

// Select picks a quote by ID from the current candidates
func (r *RateBoard) Select(quoteID string) (*RateQuote, error) {
	if r.status != QuoteStatusReady {
		return nil, shared.NewDomainError("NO_QUOTES", "No shipping rates available to select")
	}
	for idx := range r.quotes {
		if r.quotes[idx].ID == quoteID {
			r.selected = &r.quotes[idx]
			return r.selected, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Invalidate drops all quotes and the selection, returning the board to
// idle. Called when the address or cart weight changes.
func (r *RateBoard) Invalidate() {
	r.context = QuoteContext{}
	r.quotes = nil
	r.selected = nil
	r.status = QuoteStatusIdle
	r.lastErr = ""
}

// Selected returns the selected quote, or nil
func (r *RateBoard) Selected() *RateQuote {
	if r.selected == nil {
		return nil
	}
	q := *r.selected
	return &q
}

// HasSelection reports whether a quote is selected for the given current
// context. This is the RateSelection completion predicate: a selection made
// under a different context does not count.
func (r *RateBoard) HasSelection(current QuoteContext) bool {
	return r.selected != nil && r.context == current && r.selected.Context == current
}

// Quotes returns the candidate quotes for the current context
func (r *RateBoard) Quotes() []RateQuote {
	out := make([]RateQuote, len(r.quotes))
	copy(out, r.quotes)
	return out
}

// Status returns the state of the latest fetch
func (r *RateBoard) Status() QuoteStatus {
	return r.status
}

// LastError returns the recorded fetch error message, if any
func (r *RateBoard) LastError() string {
	return r.lastErr
}

// Context returns the context the board's quotes belong to
func (r *RateBoard) Context() QuoteContext {
	return r.context
}
