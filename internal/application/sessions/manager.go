package sessions

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/session"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

// Manager owns the live session states and their durable snapshots. A
// session is materialized on first use, restored from the snapshot store
// when one exists.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*State
	store    session.Store
	currency valueobject.Currency
	logger   *zap.Logger
}

// NewManager creates a session manager backed by the given snapshot store
func NewManager(store session.Store, currency valueobject.Currency, logger *zap.Logger) *Manager {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &Manager{
		sessions: make(map[string]*State),
		store:    store,
		currency: currency,
		logger:   logger.Named("sessions"),
	}
}

// Get returns the session state for an ID, restoring it from the snapshot
// store or creating a fresh one.
func (m *Manager) Get(ctx context.Context, sessionID string) (*State, error) {
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Session ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.sessions[sessionID]; ok {
		return st, nil
	}

	st, err := m.restore(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.sessions[sessionID] = st
	return st, nil
}

// restore loads a snapshot and rebuilds the session state from it. A
// missing or unreadable snapshot yields a fresh session; corruption is not
// allowed to lock a shopper out.
func (m *Manager) restore(ctx context.Context, sessionID string) (*State, error) {
	fresh := func() *State {
		return &State{
			ID:            sessionID,
			Cart:          cart.NewCart(m.currency),
			AddressBook:   shipping.NewAddressBook(),
			Rates:         shipping.NewRateBoard(),
			Checkout:      checkout.NewSession(),
			Stock:         make(map[string]StockEntry),
			Returns:       make(map[string]*ReturnState),
			ReturnedLines: make(map[string][]session.ReturnedLine),
		}
	}

	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		m.logger.Warn("failed to load session snapshot, starting fresh",
			zap.String("session_id", sessionID), zap.Error(err))
		return fresh(), nil
	}
	if snap == nil {
		return fresh(), nil
	}

	restoredCart, err := cart.FromState(snap.Cart)
	if err != nil {
		m.logger.Warn("corrupt cart snapshot, starting fresh",
			zap.String("session_id", sessionID), zap.Error(err))
		return fresh(), nil
	}
	book, err := shipping.BookFromState(snap.AddressBook)
	if err != nil {
		m.logger.Warn("corrupt address book snapshot, starting fresh",
			zap.String("session_id", sessionID), zap.Error(err))
		return fresh(), nil
	}

	st := fresh()
	st.Cart = restoredCart
	st.AddressBook = book
	if snap.ReturnedLines != nil {
		st.ReturnedLines = snap.ReturnedLines
	}

	// Honor the persisted rate selection only if its quote context still
	// matches the restored address and cart; otherwise the selection is
	// stale and the board starts idle with shipping cost zero.
	current := st.QuoteContext()
	st.Rates = shipping.RestoreSelection(snap.SelectedRate, current)
	if selected := st.Rates.Selected(); selected != nil {
		if err := st.Cart.SetShippingCost(selected.Price); err != nil {
			st.Rates.Invalidate()
		}
	}

	// The checkout position is restored, then clamped back to the earliest
	// incomplete step: a reload never resumes past data that went stale
	// while the session was away. The payment intent is deliberately not
	// persisted, so a restored session can never sit past the payment step.
	if cs, err := checkout.RestoreSession(checkout.Step(snap.CheckoutStep)); err == nil {
		st.Checkout = cs
	}
	m.clampRestoredStep(st)

	return st, nil
}

// clampRestoredStep rewinds the restored checkout position to the earliest
// step whose predecessor's completion predicate fails.
func (m *Manager) clampRestoredStep(st *State) {
	allowed := checkout.StepAddressSelection
	if st.AddressBook.HasValidatedActive() {
		allowed = checkout.StepRateSelection
		if st.Rates.HasSelection(st.QuoteContext()) {
			allowed = checkout.StepPayment
		}
	}
	if st.Checkout.Current() > allowed {
		_ = st.Checkout.RouteBackTo(allowed)
	}
}

// Persist writes the session's durable state to the snapshot store. The
// caller must hold the session lock. Persist failures are logged and
// swallowed: losing a snapshot degrades reload recovery, not the live
// session.
func (m *Manager) Persist(ctx context.Context, st *State) {
	snap := &session.Snapshot{
		Cart:          st.Cart.ToState(),
		AddressBook:   st.AddressBook.ToState(),
		CheckoutStep:  int(st.Checkout.Current()),
		SelectedRate:  shipping.SelectionToState(st.Rates.Selected()),
		ReturnedLines: st.ReturnedLines,
		SavedAt:       time.Now(),
	}
	if err := m.store.Save(ctx, st.ID, snap); err != nil {
		m.logger.Warn("failed to persist session snapshot",
			zap.String("session_id", st.ID), zap.Error(err))
	}
}

// Teardown clears the session's ephemeral checkout state after a completed
// order: the cart is emptied, the rate board and intent dropped, and the
// wizard reset. The address book and returned-line markers survive. The
// caller must hold the session lock.
func (m *Manager) Teardown(ctx context.Context, st *State) {
	st.Cart.Clear()
	st.Rates.Invalidate()
	st.Intent = nil
	st.Checkout.Reset()
	m.Persist(ctx, st)
}

// Drop removes a session from memory and clears its snapshot
func (m *Manager) Drop(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return m.store.Clear(ctx, sessionID)
}
