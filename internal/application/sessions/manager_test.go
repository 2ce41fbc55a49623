package sessions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/session"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

// fakeStore is an in-memory session.Store with injectable failures.
type fakeStore struct {
	snapshots map[string]*session.Snapshot
	loadErr   error
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string]*session.Snapshot)}
}

func (f *fakeStore) Load(_ context.Context, sessionID string) (*session.Snapshot, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.snapshots[sessionID], nil
}

func (f *fakeStore) Save(_ context.Context, sessionID string, snapshot *session.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshots[sessionID] = snapshot
	return nil
}

func (f *fakeStore) Clear(_ context.Context, sessionID string) error {
	delete(f.snapshots, sessionID)
	return nil
}

func newTestManager(store session.Store) *Manager {
	return NewManager(store, valueobject.GBP, zap.NewNop())
}

func gbp(amount float64) valueobject.Money {
	return valueobject.NewMoneyGBPFromFloat(amount)
}

func grams(t *testing.T, g int64) valueobject.Weight {
	t.Helper()
	w, err := valueobject.NewWeightFromGrams(g)
	require.NoError(t, err)
	return w
}

func validatedAddress(t *testing.T) *shipping.Address {
	t.Helper()
	addr, err := shipping.NewAddress(shipping.AddressFields{
		Recipient:  "Ada Lovelace",
		Line1:      "12 Analytical Way",
		City:       "London",
		PostalCode: "SW1A 1AA",
		Country:    "GB",
	})
	require.NoError(t, err)
	addr.MarkValidated()
	return addr
}

func TestManagerGet(t *testing.T) {
	t.Run("creates a fresh session on first use", func(t *testing.T) {
		m := newTestManager(newFakeStore())
		st, err := m.Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.True(t, st.Cart.IsEmpty())
		assert.Equal(t, checkout.StepAddressSelection, st.Checkout.Current())
		assert.Equal(t, valueobject.GBP, st.Cart.Currency())
	})

	t.Run("returns the same live state for repeated gets", func(t *testing.T) {
		m := newTestManager(newFakeStore())
		first, err := m.Get(context.Background(), "sess-1")
		require.NoError(t, err)
		second, err := m.Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("rejects an empty session id", func(t *testing.T) {
		m := newTestManager(newFakeStore())
		_, err := m.Get(context.Background(), "")
		require.Error(t, err)
	})

	t.Run("store load failure yields a fresh session", func(t *testing.T) {
		store := newFakeStore()
		store.loadErr = errors.New("redis down")
		m := newTestManager(store)
		st, err := m.Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.True(t, st.Cart.IsEmpty())
	})
}

func TestManagerPersistRestore(t *testing.T) {
	seed := func(t *testing.T, m *Manager, sessionID string) *State {
		t.Helper()
		st, err := m.Get(context.Background(), sessionID)
		require.NoError(t, err)
		_, err = st.Cart.AddItem("mug-01", "Mug", 2, nil, gbp(4.50), grams(t, 300), 10)
		require.NoError(t, err)
		st.AddressBook.Add(validatedAddress(t))
		return st
	}

	t.Run("cart and address book survive a reload", func(t *testing.T) {
		store := newFakeStore()
		m := newTestManager(store)
		st := seed(t, m, "sess-1")
		m.Persist(context.Background(), st)

		restored, err := newTestManager(store).Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), restored.Cart.QuantityOf("mug-01"))
		assert.True(t, restored.AddressBook.HasValidatedActive())
	})

	t.Run("selected rate survives when its context still matches", func(t *testing.T) {
		store := newFakeStore()
		m := newTestManager(store)
		st := seed(t, m, "sess-1")

		ctx := st.QuoteContext()
		st.Rates.BeginFetch(ctx)
		require.True(t, st.Rates.SetQuotes(ctx, []shipping.RateQuote{
			{ID: "std", Provider: "royal-mail", Service: "Standard", Price: gbp(3.95), Context: ctx},
		}))
		_, err := st.Rates.Select("std")
		require.NoError(t, err)
		require.NoError(t, st.Cart.SetShippingCost(gbp(3.95)))
		m.Persist(context.Background(), st)

		restored, err := newTestManager(store).Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.True(t, restored.Rates.HasSelection(restored.QuoteContext()))
		assert.Equal(t, "3.95", restored.Cart.ShippingCost().StringFixed(2))
	})

	t.Run("stale selected rate is dropped on restore", func(t *testing.T) {
		store := newFakeStore()
		m := newTestManager(store)
		st := seed(t, m, "sess-1")

		ctx := st.QuoteContext()
		st.Rates.BeginFetch(ctx)
		require.True(t, st.Rates.SetQuotes(ctx, []shipping.RateQuote{
			{ID: "std", Provider: "royal-mail", Service: "Standard", Price: gbp(3.95), Context: ctx},
		}))
		_, err := st.Rates.Select("std")
		require.NoError(t, err)
		m.Persist(context.Background(), st)

		// moving the cart weight after the snapshot stales the persisted rate
		snap := store.snapshots["sess-1"]
		snap.SelectedRate.Context.WeightGrams += 500

		restored, err := newTestManager(store).Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.False(t, restored.Rates.HasSelection(restored.QuoteContext()))
		assert.True(t, restored.Cart.ShippingCost().IsZero())
	})

	t.Run("restored step is clamped to the earliest incomplete step", func(t *testing.T) {
		store := newFakeStore()
		m := newTestManager(store)
		st := seed(t, m, "sess-1")
		m.Persist(context.Background(), st)

		// intent state is not persisted, so a session parked on confirmation
		// must rewind to payment at most
		store.snapshots["sess-1"].CheckoutStep = int(checkout.StepConfirmation)

		restored, err := newTestManager(store).Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, checkout.StepRateSelection, restored.Checkout.Current())
	})

	t.Run("step clamps to address selection without a validated address", func(t *testing.T) {
		store := newFakeStore()
		m := newTestManager(store)
		st, err := m.Get(context.Background(), "sess-1")
		require.NoError(t, err)
		m.Persist(context.Background(), st)
		store.snapshots["sess-1"].CheckoutStep = int(checkout.StepPayment)

		restored, err := newTestManager(store).Get(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, checkout.StepAddressSelection, restored.Checkout.Current())
	})

	t.Run("returned-line markers survive a reload", func(t *testing.T) {
		store := newFakeStore()
		m := newTestManager(store)
		st, err := m.Get(context.Background(), "sess-1")
		require.NoError(t, err)
		st.RecordReturned("ord-1001", []session.ReturnedLine{{Quantity: 2}})
		m.Persist(context.Background(), st)

		restored, err := newTestManager(store).Get(context.Background(), "sess-1")
		require.NoError(t, err)
		require.Len(t, restored.ReturnedFor("ord-1001"), 1)
		assert.Equal(t, int64(2), restored.ReturnedFor("ord-1001")[0].Quantity)
	})

	t.Run("persist failure does not break the live session", func(t *testing.T) {
		store := newFakeStore()
		store.saveErr = errors.New("disk full")
		m := newTestManager(store)
		st := seed(t, m, "sess-1")
		m.Persist(context.Background(), st)
		assert.Equal(t, int64(2), st.Cart.QuantityOf("mug-01"))
	})
}

func TestManagerTeardown(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	st, err := m.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	_, err = st.Cart.AddItem("mug-01", "Mug", 1, nil, gbp(4.50), grams(t, 300), 10)
	require.NoError(t, err)
	st.AddressBook.Add(validatedAddress(t))
	st.RecordReturned("ord-1001", []session.ReturnedLine{{Quantity: 1}})

	m.Teardown(context.Background(), st)

	assert.True(t, st.Cart.IsEmpty())
	assert.Nil(t, st.Intent)
	assert.Equal(t, checkout.StepAddressSelection, st.Checkout.Current())
	// the address book and return markers survive the order
	assert.True(t, st.AddressBook.HasValidatedActive())
	assert.Len(t, st.ReturnedFor("ord-1001"), 1)
}

func TestManagerDrop(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	st, err := m.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	m.Persist(context.Background(), st)

	require.NoError(t, m.Drop(context.Background(), "sess-1"))
	assert.Nil(t, store.snapshots["sess-1"])
}

func TestStateReconcileAfterMutation(t *testing.T) {
	newState := func(t *testing.T) *State {
		t.Helper()
		m := newTestManager(newFakeStore())
		st, err := m.Get(context.Background(), "sess-1")
		require.NoError(t, err)
		_, err = st.Cart.AddItem("mug-01", "Mug", 1, nil, gbp(10), grams(t, 300), 10)
		require.NoError(t, err)
		st.AddressBook.Add(validatedAddress(t))
		return st
	}

	selectRate := func(t *testing.T, st *State) {
		t.Helper()
		ctx := st.QuoteContext()
		st.Rates.BeginFetch(ctx)
		require.True(t, st.Rates.SetQuotes(ctx, []shipping.RateQuote{
			{ID: "std", Provider: "royal-mail", Service: "Standard", Price: gbp(3.95), Context: ctx},
		}))
		_, err := st.Rates.Select("std")
		require.NoError(t, err)
		require.NoError(t, st.Cart.SetShippingCost(gbp(3.95)))
	}

	t.Run("weight change drops the selected rate and shipping cost", func(t *testing.T) {
		st := newState(t)
		selectRate(t, st)

		_, err := st.Cart.AddItem("tee-01", "Tee", 1, nil, gbp(12), grams(t, 150), 10)
		require.NoError(t, err)
		st.ReconcileAfterMutation()

		assert.False(t, st.Rates.HasSelection(st.QuoteContext()))
		assert.True(t, st.Cart.ShippingCost().IsZero())
	})

	t.Run("total change invalidates a live intent", func(t *testing.T) {
		st := newState(t)
		selectRate(t, st)
		st.ReconcileAfterMutation()

		intent, err := checkout.NewPaymentIntent(st.Cart.Total(), "pi_1", "secret")
		require.NoError(t, err)
		st.Intent = intent

		require.NoError(t, st.Cart.ApplyPromotion("SAVE5", gbp(5)))
		st.ReconcileAfterMutation()
		assert.True(t, st.Intent.IsInvalidated())
	})

	t.Run("no-op when nothing moved", func(t *testing.T) {
		st := newState(t)
		selectRate(t, st)
		st.ReconcileAfterMutation()
		assert.True(t, st.Rates.HasSelection(st.QuoteContext()))
		assert.Equal(t, "3.95", st.Cart.ShippingCost().StringFixed(2))
	})
}

func TestStateMarkStockStale(t *testing.T) {
	m := newTestManager(newFakeStore())
	st, err := m.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	st.Stock["mug-01"] = StockEntry{Quantity: 5}
	st.Stock["tee-01"] = StockEntry{Quantity: 2}

	st.MarkStockStale()
	for ref, entry := range st.Stock {
		assert.True(t, entry.Stale, ref)
	}
}
