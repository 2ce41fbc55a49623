package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/sessions"
	checkoutdomain "github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/session"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

type memoryStore struct {
	snapshots map[string]*session.Snapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snapshots: make(map[string]*session.Snapshot)}
}

func (m *memoryStore) Load(_ context.Context, sessionID string) (*session.Snapshot, error) {
	return m.snapshots[sessionID], nil
}

func (m *memoryStore) Save(_ context.Context, sessionID string, snapshot *session.Snapshot) error {
	m.snapshots[sessionID] = snapshot
	return nil
}

func (m *memoryStore) Clear(_ context.Context, sessionID string) error {
	delete(m.snapshots, sessionID)
	return nil
}

// stubGateway is a scripted PaymentGateway.
type stubGateway struct {
	createErr   error
	confirmErr  error
	result      checkoutdomain.ConfirmResult
	created     int
	cancelled   []string
	createdFor  []valueobject.Money
	beforeState func()
}

func (g *stubGateway) CreateIntent(_ context.Context, amount valueobject.Money) (string, string, error) {
	if g.beforeState != nil {
		g.beforeState()
	}
	if g.createErr != nil {
		return "", "", g.createErr
	}
	g.created++
	g.createdFor = append(g.createdFor, amount)
	return "pi_123", "pi_123_secret", nil
}

func (g *stubGateway) Confirm(_ context.Context, _, _ string) (checkoutdomain.ConfirmResult, error) {
	if g.confirmErr != nil {
		return checkoutdomain.ConfirmResult{}, g.confirmErr
	}
	return g.result, nil
}

func (g *stubGateway) CancelIntent(_ context.Context, gatewayIntentID string) error {
	g.cancelled = append(g.cancelled, gatewayIntentID)
	return nil
}

type stubOrders struct {
	orderID   string
	createErr error
	calls     int
}

func (o *stubOrders) CreateOrder(_ context.Context, _ checkoutdomain.OrderSubmission) (string, error) {
	o.calls++
	if o.createErr != nil {
		return "", o.createErr
	}
	return o.orderID, nil
}

func (o *stubOrders) CreateReturn(_ context.Context, _ checkoutdomain.ReturnSubmission) error {
	return nil
}

type fixture struct {
	svc     *Service
	manager *sessions.Manager
	gateway *stubGateway
	orders  *stubOrders
}

func newFixture() *fixture {
	manager := sessions.NewManager(newMemoryStore(), valueobject.GBP, zap.NewNop())
	gateway := &stubGateway{result: checkoutdomain.ConfirmResult{Succeeded: true, ConfirmationID: "ch_789"}}
	orders := &stubOrders{orderID: "ord_1001"}
	return &fixture{
		svc:     NewService(manager, gateway, orders, zap.NewNop()),
		manager: manager,
		gateway: gateway,
		orders:  orders,
	}
}

func gbp(amount float64) valueobject.Money {
	return valueobject.NewMoneyGBPFromFloat(amount)
}

func (f *fixture) state(t *testing.T) *sessions.State {
	t.Helper()
	st, err := f.manager.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	return st
}

// seedToPayment walks a session up to the payment step: cart filled,
// address validated and active, rate selected.
func (f *fixture) seedToPayment(t *testing.T) *sessions.State {
	t.Helper()
	st := f.state(t)
	st.Lock()
	defer st.Unlock()

	w, err := valueobject.NewWeightFromGrams(300)
	require.NoError(t, err)
	_, err = st.Cart.AddItem("mug-01", "Mug", 2, nil, gbp(10), w, 10)
	require.NoError(t, err)

	addr, err := shipping.NewAddress(shipping.AddressFields{
		Recipient:  "Ada Lovelace",
		Line1:      "12 Analytical Way",
		City:       "London",
		PostalCode: "SW1A 1AA",
		Country:    "GB",
	})
	require.NoError(t, err)
	addr.MarkValidated()
	st.AddressBook.Add(addr)

	ctx := st.QuoteContext()
	st.Rates.BeginFetch(ctx)
	require.True(t, st.Rates.SetQuotes(ctx, []shipping.RateQuote{
		{ID: "std", Provider: "royal-mail", Service: "Standard", Price: gbp(3.95), Context: ctx},
	}))
	_, err = st.Rates.Select("std")
	require.NoError(t, err)
	require.NoError(t, st.Cart.SetShippingCost(gbp(3.95)))

	require.NoError(t, st.Checkout.Advance(f.svc.predicate(st)))
	require.NoError(t, st.Checkout.Advance(f.svc.predicate(st)))
	require.Equal(t, checkoutdomain.StepPayment, st.Checkout.Current())
	return st
}

// seedToConfirmation continues through a successful intent and confirmation
// onto the final step.
func (f *fixture) seedToConfirmation(t *testing.T) *sessions.State {
	t.Helper()
	st := f.seedToPayment(t)
	_, err := f.svc.CreateIntent(context.Background(), "sess-1")
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), "sess-1", "pm_card")
	require.NoError(t, err)
	_, err = f.svc.Advance(context.Background(), "sess-1")
	require.NoError(t, err)
	st.Lock()
	require.Equal(t, checkoutdomain.StepConfirmation, st.Checkout.Current())
	st.Unlock()
	return st
}

func TestServiceStatus(t *testing.T) {
	f := newFixture()
	resp, err := f.svc.Status(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int(checkoutdomain.StepAddressSelection), resp.CurrentStep)
	require.Len(t, resp.Steps, 4)
	for _, step := range resp.Steps {
		assert.False(t, step.Complete, step.Name)
	}
	assert.Nil(t, resp.Intent)
}

func TestServiceAdvanceRetreat(t *testing.T) {
	t.Run("cannot advance past an incomplete step", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Advance(context.Background(), "sess-1")
		require.ErrorIs(t, err, shared.ErrStepIncomplete)
	})

	t.Run("advance follows completed predicates", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		resp, err := f.svc.Status(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "PAYMENT", resp.CurrentStepName)
		assert.True(t, resp.Steps[0].Complete)
		assert.True(t, resp.Steps[1].Complete)
		assert.False(t, resp.Steps[2].Complete)
	})

	t.Run("retreat is never gated", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		resp, err := f.svc.Retreat(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "RATE_SELECTION", resp.CurrentStepName)
	})
}

func TestServiceCreateIntent(t *testing.T) {
	t.Run("creates an intent for the cart total", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		resp, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "23.95", resp.Amount) // 2*10 + 3.95 shipping
		assert.Equal(t, "pi_123_secret", resp.ClientSecret)
		assert.Equal(t, string(checkoutdomain.IntentStatusRequiresConfirmation), resp.Status)
	})

	t.Run("only on the payment step", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "payment step")
	})

	t.Run("idempotent for an unchanged amount", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		first, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)
		second, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, first.Handle, second.Handle)
		assert.Equal(t, 1, f.gateway.created)
	})

	t.Run("changed amount invalidates and recreates", func(t *testing.T) {
		f := newFixture()
		st := f.seedToPayment(t)
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)

		st.Lock()
		require.NoError(t, st.Cart.ApplyPromotion("SAVE5", gbp(5)))
		st.ReconcileAfterMutation()
		st.Unlock()

		resp, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "18.95", resp.Amount)
		assert.Equal(t, 2, f.gateway.created)
		assert.Equal(t, []string{"pi_123"}, f.gateway.cancelled)
	})

	t.Run("gateway outage", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		f.gateway.createErr = errors.New("stripe down")
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.ErrorIs(t, err, shared.ErrGatewayUnavailable)
	})

	t.Run("cart moved during the gateway call", func(t *testing.T) {
		f := newFixture()
		st := f.seedToPayment(t)
		f.gateway.beforeState = func() {
			st.Lock()
			_ = st.Cart.ApplyPromotion("SAVE5", gbp(5))
			st.Unlock()
		}
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.ErrorIs(t, err, shared.ErrStaleIntent)

		st.Lock()
		assert.Nil(t, st.Intent)
		st.Unlock()
	})
}

func TestServiceConfirm(t *testing.T) {
	t.Run("successful confirmation", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)

		resp, err := f.svc.Confirm(context.Background(), "sess-1", "pm_card")
		require.NoError(t, err)
		assert.Equal(t, string(checkoutdomain.IntentStatusSucceeded), resp.Status)
	})

	t.Run("requires a payment method", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Confirm(context.Background(), "sess-1", "")
		require.Error(t, err)
	})

	t.Run("requires an intent", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		_, err := f.svc.Confirm(context.Background(), "sess-1", "pm_card")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No payment intent")
	})

	t.Run("stale amount is rejected before the network call", func(t *testing.T) {
		f := newFixture()
		st := f.seedToPayment(t)
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)

		st.Lock()
		require.NoError(t, st.Cart.ApplyPromotion("SAVE5", gbp(5)))
		st.Unlock()

		_, err = f.svc.Confirm(context.Background(), "sess-1", "pm_card")
		require.ErrorIs(t, err, shared.ErrStaleIntent)
	})

	t.Run("card decline leaves the intent retryable", func(t *testing.T) {
		f := newFixture()
		st := f.seedToPayment(t)
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)

		f.gateway.result = checkoutdomain.ConfirmResult{Succeeded: false, Message: "card declined"}
		_, err = f.svc.Confirm(context.Background(), "sess-1", "pm_card")
		require.ErrorIs(t, err, shared.ErrPaymentFailed)

		st.Lock()
		assert.True(t, st.Intent.IsLive())
		assert.Equal(t, "card declined", st.Intent.FailureMessage)
		st.Unlock()

		f.gateway.result = checkoutdomain.ConfirmResult{Succeeded: true, ConfirmationID: "ch_790"}
		resp, err := f.svc.Confirm(context.Background(), "sess-1", "pm_card_2")
		require.NoError(t, err)
		assert.Equal(t, string(checkoutdomain.IntentStatusSucceeded), resp.Status)
	})

	t.Run("transport failure", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		_, err := f.svc.CreateIntent(context.Background(), "sess-1")
		require.NoError(t, err)

		f.gateway.confirmErr = errors.New("connection reset")
		_, err = f.svc.Confirm(context.Background(), "sess-1", "pm_card")
		require.ErrorIs(t, err, shared.ErrPaymentFailed)
	})
}

func TestServiceSubmit(t *testing.T) {
	t.Run("successful submission tears the session down", func(t *testing.T) {
		f := newFixture()
		st := f.seedToConfirmation(t)
		resp, err := f.svc.Submit(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "ord_1001", resp.OrderID)

		st.Lock()
		assert.True(t, st.Cart.IsEmpty())
		assert.Nil(t, st.Intent)
		assert.Equal(t, checkoutdomain.StepAddressSelection, st.Checkout.Current())
		st.Unlock()
	})

	t.Run("only from the confirmation step", func(t *testing.T) {
		f := newFixture()
		f.seedToPayment(t)
		_, err := f.svc.Submit(context.Background(), "sess-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confirmation step")
	})

	t.Run("stock conflict routes back to address selection", func(t *testing.T) {
		f := newFixture()
		st := f.seedToConfirmation(t)
		st.Lock()
		st.Stock["mug-01"] = sessions.StockEntry{Quantity: 10}
		st.Unlock()
		f.orders.createErr = shared.ErrStockConflict

		_, err := f.svc.Submit(context.Background(), "sess-1")
		require.ErrorIs(t, err, shared.ErrStockConflict)

		st.Lock()
		assert.Equal(t, checkoutdomain.StepAddressSelection, st.Checkout.Current())
		assert.True(t, st.Stock["mug-01"].Stale)
		// cart contents survive for retry
		assert.False(t, st.Cart.IsEmpty())
		st.Unlock()
	})

	t.Run("payment mismatch routes back to rate selection", func(t *testing.T) {
		f := newFixture()
		st := f.seedToConfirmation(t)
		f.orders.createErr = shared.ErrPaymentMismatch

		_, err := f.svc.Submit(context.Background(), "sess-1")
		require.ErrorIs(t, err, shared.ErrPaymentMismatch)

		st.Lock()
		assert.Equal(t, checkoutdomain.StepRateSelection, st.Checkout.Current())
		assert.True(t, st.Intent.IsInvalidated())
		assert.False(t, st.Rates.HasSelection(st.QuoteContext()))
		assert.True(t, st.Cart.ShippingCost().IsZero())
		st.Unlock()
	})

	t.Run("unknown rejection is a gateway failure", func(t *testing.T) {
		f := newFixture()
		st := f.seedToConfirmation(t)
		f.orders.createErr = errors.New("internal")

		_, err := f.svc.Submit(context.Background(), "sess-1")
		require.ErrorIs(t, err, shared.ErrGatewayUnavailable)

		st.Lock()
		assert.Equal(t, checkoutdomain.StepConfirmation, st.Checkout.Current())
		st.Unlock()
	})
}
