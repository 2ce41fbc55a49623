package sessions

import (
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/returns"
	"github.com/storefront/backend/internal/domain/session"
	"github.com/storefront/backend/internal/domain/shipping"
)

// StockEntry is the last observed stock level for an item, cached per
// session. Stale means the oracle could not be reached on the last refresh
// and the value must not be treated as current for submission-blocking
// decisions.
type StockEntry struct {
	Quantity   int64
	Stale      bool
	ObservedAt time.Time
}

// ReturnState bundles one in-flight return wizard with its own rate board,
// payment intent and fetch sequence, mirroring the checkout trio.
type ReturnState struct {
	Wizard  *returns.Wizard
	Rates   *shipping.RateBoard
	Intent  *checkout.PaymentIntent
	RateSeq uint64
}

// State is the one-per-session set of state containers. All mutations go
// through the session mutex, which renders the source model's single UI
// thread: mutations are synchronous, and async fetch results re-acquire the
// lock and re-check relevance before applying.
type State struct {
	mu sync.Mutex

	ID          string
	Cart        *cart.Cart
	AddressBook *shipping.AddressBook
	Rates       *shipping.RateBoard
	Checkout    *checkout.Session
	Intent      *checkout.PaymentIntent

	Stock         map[string]StockEntry
	Returns       map[string]*ReturnState
	ReturnedLines map[string][]session.ReturnedLine

	// RateSeq stamps outgoing rate fetches; a response whose stamp is older
	// than the latest issued fetch is discarded on arrival.
	RateSeq uint64
}

// Lock acquires the session mutex
func (s *State) Lock() {
	s.mu.Lock()
}

// Unlock releases the session mutex
func (s *State) Unlock() {
	s.mu.Unlock()
}

// QuoteContext returns the current checkout quote context: the active
// address (if any) and the cart weight.
func (s *State) QuoteContext() shipping.QuoteContext {
	return shipping.ContextFor(s.AddressBook.Active(), s.Cart.TotalWeight())
}

// ReconcileAfterMutation re-establishes the cross-store invariants after
// any cart or address mutation:
//   - a selected rate whose quote context no longer matches is dropped and
//     the shipping cost reset to zero before any refetch;
//   - a live payment intent whose amount no longer matches the cart total
//     is invalidated so it cannot be confirmed or reused.
func (s *State) ReconcileAfterMutation() {
	current := s.QuoteContext()
	if !s.Rates.Context().IsZero() && s.Rates.Context() != current {
		s.Rates.Invalidate()
		s.Cart.ClearShippingCost()
	}
	if s.Intent != nil && !s.Intent.IsInvalidated() && !s.Intent.Matches(s.Cart.Total()) {
		s.Intent.Invalidate()
	}
}

// MarkStockStale flags every cached stock entry as stale, forcing a
// re-query before the next stock-gated mutation. Used after a server-side
// stock conflict.
func (s *State) MarkStockStale() {
	for ref, entry := range s.Stock {
		entry.Stale = true
		s.Stock[ref] = entry
	}
}

// ReturnedFor returns the persisted returned-line markers for an order
func (s *State) ReturnedFor(orderID string) []session.ReturnedLine {
	return s.ReturnedLines[orderID]
}

// RecordReturned appends returned-line markers for an order
func (s *State) RecordReturned(orderID string, lines []session.ReturnedLine) {
	if s.ReturnedLines == nil {
		s.ReturnedLines = make(map[string][]session.ReturnedLine)
	}
	s.ReturnedLines[orderID] = append(s.ReturnedLines[orderID], lines...)
}
