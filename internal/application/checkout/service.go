package checkout

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/sessions"
	checkoutdomain "github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
)

// Service orchestrates the checkout wizard: step navigation gated on
// completion predicates, the payment intent lifecycle, and the terminal
// hand-off to order creation.
type Service struct {
	manager *sessions.Manager
	gateway checkoutdomain.PaymentGateway
	orders  checkoutdomain.OrderService
	logger  *zap.Logger
}

// NewService creates a new checkout service
func NewService(
	manager *sessions.Manager,
	gateway checkoutdomain.PaymentGateway,
	orders checkoutdomain.OrderService,
	logger *zap.Logger,
) *Service {
	return &Service{
		manager: manager,
		gateway: gateway,
		orders:  orders,
		logger:  logger.Named("checkout"),
	}
}

// predicate reports step completion against the session's current state.
// Caller must hold the session lock. Predicates are evaluated fresh on
// every use: a rate selection or intent that went stale since it was made
// fails its step even if the user already advanced past it once.
func (s *Service) predicate(st *sessions.State) checkoutdomain.StepPredicate {
	return func(step checkoutdomain.Step) bool {
		switch step {
		case checkoutdomain.StepAddressSelection:
			return st.AddressBook.HasValidatedActive()
		case checkoutdomain.StepRateSelection:
			return st.Rates.HasSelection(st.QuoteContext())
		case checkoutdomain.StepPayment:
			return st.Intent != nil && st.Intent.Succeeded() && st.Intent.Matches(st.Cart.Total())
		case checkoutdomain.StepConfirmation:
			return false
		}
		return false
	}
}

// Status returns the session's checkout position and per-step completion
func (s *Service) Status(ctx context.Context, sessionID string) (*StatusResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()
	resp := s.status(st)
	return &resp, nil
}

func (s *Service) status(st *sessions.State) StatusResponse {
	isComplete := s.predicate(st)
	steps := []checkoutdomain.Step{
		checkoutdomain.StepAddressSelection,
		checkoutdomain.StepRateSelection,
		checkoutdomain.StepPayment,
		checkoutdomain.StepConfirmation,
	}
	out := StatusResponse{
		CurrentStep:     int(st.Checkout.Current()),
		CurrentStepName: st.Checkout.Current().String(),
		Steps:           make([]StepStatus, 0, len(steps)),
		Intent:          ToIntentResponse(st.Intent),
	}
	for _, step := range steps {
		out.Steps = append(out.Steps, StepStatus{
			Index:    int(step),
			Name:     step.String(),
			Complete: isComplete(step),
		})
	}
	return out
}

// Advance moves the checkout forward if the current step is complete
func (s *Service) Advance(ctx context.Context, sessionID string) (*StatusResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()

	if err := st.Checkout.Advance(s.predicate(st)); err != nil {
		return nil, err
	}
	s.manager.Persist(ctx, st)
	resp := s.status(st)
	return &resp, nil
}

// Retreat moves the checkout back one step; always permitted
func (s *Service) Retreat(ctx context.Context, sessionID string) (*StatusResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()

	if err := st.Checkout.Retreat(); err != nil {
		return nil, err
	}
	s.manager.Persist(ctx, st)
	resp := s.status(st)
	return &resp, nil
}

// CreateIntent creates (or returns) the payment intent for the current
// cart total. Idempotent with respect to amount: a live intent for the
// same amount is reused; a changed amount invalidates the old intent and
// creates a fresh one.
func (s *Service) CreateIntent(ctx context.Context, sessionID string) (*IntentResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	if st.Checkout.Current() != checkoutdomain.StepPayment {
		st.Unlock()
		return nil, shared.NewDomainError("WRONG_STEP", "Payment intents are created on the payment step")
	}
	amount := st.Cart.Total()
	if !amount.IsPositive() {
		st.Unlock()
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Cart total must be positive")
	}
	if st.Intent != nil && st.Intent.IsLive() && st.Intent.Matches(amount) {
		resp := ToIntentResponse(st.Intent)
		st.Unlock()
		return resp, nil
	}
	stale := st.Intent
	if stale != nil {
		stale.Invalidate()
	}
	st.Unlock()

	if stale != nil && !stale.Succeeded() {
		if err := s.gateway.CancelIntent(ctx, stale.GatewayIntentID); err != nil {
			s.logger.Warn("failed to cancel stale payment intent",
				zap.String("gateway_intent_id", stale.GatewayIntentID), zap.Error(err))
		}
	}

	gatewayID, clientSecret, err := s.gateway.CreateIntent(ctx, amount)
	if err != nil {
		s.logger.Warn("payment intent creation failed", zap.Error(err))
		return nil, shared.ErrGatewayUnavailable
	}

	intent, err := checkoutdomain.NewPaymentIntent(amount, gatewayID, clientSecret)
	if err != nil {
		return nil, err
	}
	if err := intent.RequireConfirmation(); err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	// The cart may have moved while the gateway call was in flight; an
	// intent for a superseded amount is discarded on arrival.
	if !intent.Matches(st.Cart.Total()) {
		intent.Invalidate()
		return nil, shared.ErrStaleIntent
	}
	st.Intent = intent
	resp := ToIntentResponse(st.Intent)
	return resp, nil
}

// Confirm confirms the live intent with a client-captured payment method.
// The double-submit guard is taken before the network call: a concurrent
// second confirmation is rejected locally.
func (s *Service) Confirm(ctx context.Context, sessionID, paymentMethod string) (*IntentResponse, error) {
	if paymentMethod == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is required")
	}
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	intent := st.Intent
	if intent == nil {
		st.Unlock()
		return nil, shared.NewDomainError("NO_INTENT", "No payment intent has been created")
	}
	if !intent.Matches(st.Cart.Total()) {
		intent.Invalidate()
		st.Unlock()
		return nil, shared.ErrStaleIntent
	}
	if err := intent.BeginConfirm(); err != nil {
		st.Unlock()
		return nil, err
	}
	gatewayID := intent.GatewayIntentID
	st.Unlock()

	result, confirmErr := s.gateway.Confirm(ctx, gatewayID, paymentMethod)

	st.Lock()
	defer st.Unlock()

	if confirmErr != nil {
		intent.FinishConfirm(false, "", "Payment confirmation could not be completed")
		s.logger.Warn("payment confirmation failed", zap.Error(confirmErr))
		return nil, shared.ErrPaymentFailed
	}
	intent.FinishConfirm(result.Succeeded, result.ConfirmationID, result.Message)
	if !result.Succeeded {
		return nil, shared.ErrPaymentFailed
	}
	resp := ToIntentResponse(intent)
	return resp, nil
}

// Submit hands the completed checkout off to order creation. On success
// the cart is cleared and the checkout session torn down. A server-side
// rejection routes the session back to the earliest step whose data the
// rejection invalidated, keeping everything else intact for retry.
func (s *Service) Submit(ctx context.Context, sessionID string) (*SubmitResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	if st.Checkout.Current() != checkoutdomain.StepConfirmation {
		st.Unlock()
		return nil, shared.NewDomainError("WRONG_STEP", "Orders are submitted from the confirmation step")
	}
	isComplete := s.predicate(st)
	if !isComplete(checkoutdomain.StepAddressSelection) ||
		!isComplete(checkoutdomain.StepRateSelection) ||
		!isComplete(checkoutdomain.StepPayment) {
		st.Unlock()
		return nil, shared.ErrStepIncomplete
	}
	submission := s.buildSubmission(st)
	st.Unlock()

	orderID, submitErr := s.orders.CreateOrder(ctx, submission)

	st.Lock()
	defer st.Unlock()

	if submitErr != nil {
		return nil, s.routeRejection(ctx, st, submitErr)
	}

	s.manager.Teardown(ctx, st)
	return &SubmitResponse{OrderID: orderID}, nil
}

// routeRejection maps an order-creation rejection back onto the wizard. A
// stock conflict invalidates the cart quantities, so the session returns
// to the first step with the stock cache flagged stale; a payment mismatch
// means the priced total drifted, so the rate selection is redone and the
// intent discarded.
func (s *Service) routeRejection(ctx context.Context, st *sessions.State, submitErr error) error {
	var domainErr *shared.DomainError
	switch {
	case errors.Is(submitErr, shared.ErrStockConflict):
		st.MarkStockStale()
		_ = st.Checkout.RouteBackTo(checkoutdomain.StepAddressSelection)
		domainErr = shared.ErrStockConflict
	case errors.Is(submitErr, shared.ErrPaymentMismatch):
		if st.Intent != nil {
			st.Intent.Invalidate()
		}
		st.Rates.Invalidate()
		st.Cart.ClearShippingCost()
		_ = st.Checkout.RouteBackTo(checkoutdomain.StepRateSelection)
		domainErr = shared.ErrPaymentMismatch
	default:
		s.logger.Warn("order creation failed", zap.Error(submitErr))
		return shared.ErrGatewayUnavailable
	}
	s.manager.Persist(ctx, st)
	return domainErr
}

// buildSubmission flattens the session state into the order hand-off.
// Caller must hold the session lock.
func (s *Service) buildSubmission(st *sessions.State) checkoutdomain.OrderSubmission {
	lines := st.Cart.Lines()
	submission := checkoutdomain.OrderSubmission{
		Lines:        make([]checkoutdomain.OrderSubmissionLine, 0, len(lines)),
		Subtotal:     st.Cart.Subtotal(),
		Discount:     st.Cart.Discount(),
		ShippingCost: st.Cart.ShippingCost(),
		Total:        st.Cart.Total(),
	}
	for idx := range lines {
		l := &lines[idx]
		submission.Lines = append(submission.Lines, checkoutdomain.OrderSubmissionLine{
			ItemRef:   l.ItemRef,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Options:   l.Options,
			UnitPrice: l.UnitPrice,
		})
	}
	if promo := st.Cart.AppliedPromotion(); promo != nil {
		submission.PromotionCode = promo.Code
	}
	if active := st.AddressBook.Active(); active != nil {
		submission.Address = active.Fields()
	}
	if selected := st.Rates.Selected(); selected != nil {
		submission.RateQuoteID = selected.ID
	}
	if st.Intent != nil {
		submission.PaymentConfirmationID = st.Intent.ConfirmationID
	}
	return submission
}
