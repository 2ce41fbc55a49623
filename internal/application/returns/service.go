package returns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/application/sessions"
	shippingapp "github.com/storefront/backend/internal/application/shipping"
	checkoutdomain "github.com/storefront/backend/internal/domain/checkout"
	returnsdomain "github.com/storefront/backend/internal/domain/returns"
	sessiondomain "github.com/storefront/backend/internal/domain/session"
	"github.com/storefront/backend/internal/domain/shared"
	shippingdomain "github.com/storefront/backend/internal/domain/shipping"
)

// packagingInstructions is shown on the final wizard step once the label
// has been issued.
const packagingInstructions = "Pack the items in their original packaging where possible, " +
	"attach the printed label to the outside of the parcel, and drop it off " +
	"at any service point of the carrier named on the label."

// Service drives the returns wizard: item selection against an order's
// returnable lines, return postage quoting and payment, label issuance and
// finalization. Each open wizard carries its own rate board and payment
// intent, independent of the checkout ones.
type Service struct {
	manager *sessions.Manager
	history returnsdomain.OrderHistory
	rates   shippingdomain.RateProvider
	labels  shippingdomain.LabelPurchaser
	gateway checkoutdomain.PaymentGateway
	orders  checkoutdomain.OrderService
	logger  *zap.Logger
}

// NewService creates a new returns service
func NewService(
	manager *sessions.Manager,
	history returnsdomain.OrderHistory,
	rates shippingdomain.RateProvider,
	labels shippingdomain.LabelPurchaser,
	gateway checkoutdomain.PaymentGateway,
	orders checkoutdomain.OrderService,
	logger *zap.Logger,
) *Service {
	return &Service{
		manager: manager,
		history: history,
		rates:   rates,
		labels:  labels,
		gateway: gateway,
		orders:  orders,
		logger:  logger.Named("returns"),
	}
}

// predicate reports wizard step completion. Caller must hold the session
// lock.
func (s *Service) predicate(rs *sessions.ReturnState) returnsdomain.StepPredicate {
	return func(step returnsdomain.Step) bool {
		switch step {
		case returnsdomain.StepItemSelection:
			return rs.Wizard.HasSelection()
		case returnsdomain.StepReturnRateSelection:
			return rs.Rates.HasSelection(rs.Wizard.QuoteContext())
		case returnsdomain.StepReturnPayment:
			selected := rs.Rates.Selected()
			return selected != nil && rs.Intent != nil &&
				rs.Intent.Succeeded() && rs.Intent.Matches(selected.Price)
		case returnsdomain.StepLabelIssuance:
			return rs.Wizard.HasLabel()
		case returnsdomain.StepPackagingInstructions:
			return false
		}
		return false
	}
}

// Start opens a return wizard for an order. Reopening an order with a
// wizard already in progress returns the existing wizard unchanged.
func (s *Service) Start(ctx context.Context, sessionID, orderID string) (*WizardResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	if rs, ok := st.Returns[orderID]; ok {
		resp := s.view(rs)
		st.Unlock()
		return &resp, nil
	}
	returned := st.ReturnedFor(orderID)
	st.Unlock()

	order, err := s.history.Order(ctx, orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		s.logger.Warn("order history lookup failed", zap.Error(err))
		return nil, shared.ErrGatewayUnavailable
	}

	shipFrom, err := shippingdomain.NewAddress(order.ShipTo)
	if err != nil {
		return nil, err
	}
	// The order's delivery address already passed verification at purchase
	// time; it becomes the return origin as-is.
	shipFrom.MarkValidated()

	lines := applyReturnedMarkers(order.Lines, returned)
	wizard, err := returnsdomain.NewWizard(orderID, shipFrom, lines)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	// A concurrent Start may have won the race while history was queried
	if rs, ok := st.Returns[orderID]; ok {
		resp := s.view(rs)
		return &resp, nil
	}
	rs := &sessions.ReturnState{
		Wizard: wizard,
		Rates:  shippingdomain.NewRateBoard(),
	}
	if st.Returns == nil {
		st.Returns = make(map[string]*sessions.ReturnState)
	}
	st.Returns[orderID] = rs
	resp := s.view(rs)
	return &resp, nil
}

// Status returns the wizard view without mutating it
func (s *Service) Status(ctx context.Context, sessionID, orderID string) (*WizardResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()

	rs, err := s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	resp := s.view(rs)
	return &resp, nil
}

// SelectItem marks a purchased line for return. Changing the selection
// moves the return quote context and the refund-side postage amount, so
// the return rate board and any return payment intent are dropped.
func (s *Service) SelectItem(ctx context.Context, sessionID, orderID string, lineID uuid.UUID, quantity int64) (*WizardResponse, error) {
	return s.mutateSelection(ctx, sessionID, orderID, func(w *returnsdomain.Wizard) error {
		return w.SelectItem(lineID, quantity)
	})
}

// DeselectItem removes a line from the return selection
func (s *Service) DeselectItem(ctx context.Context, sessionID, orderID string, lineID uuid.UUID) (*WizardResponse, error) {
	return s.mutateSelection(ctx, sessionID, orderID, func(w *returnsdomain.Wizard) error {
		return w.DeselectItem(lineID)
	})
}

func (s *Service) mutateSelection(ctx context.Context, sessionID, orderID string, mutate func(*returnsdomain.Wizard) error) (*WizardResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()

	rs, err := s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	if err := mutate(rs.Wizard); err != nil {
		return nil, err
	}
	rs.Rates.Invalidate()
	if rs.Intent != nil && !rs.Intent.IsInvalidated() {
		rs.Intent.Invalidate()
	}
	resp := s.view(rs)
	return &resp, nil
}

// FetchRates quotes return postage for the selected items, shipping from
// the order's delivery address. Sequence-stamped per wizard, like the
// checkout rate fetch.
func (s *Service) FetchRates(ctx context.Context, sessionID, orderID string) (*WizardResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	rs, err := s.wizardState(st, orderID)
	if err != nil {
		st.Unlock()
		return nil, err
	}
	if !rs.Wizard.HasSelection() {
		st.Unlock()
		return nil, shared.NewDomainError("NO_SELECTION", "Select at least one item before quoting return rates")
	}
	quoteCtx := rs.Wizard.QuoteContext()
	origin := rs.Wizard.ShipFrom.Fields()
	weight := rs.Wizard.SelectedWeight()
	rs.RateSeq++
	seq := rs.RateSeq
	rs.Rates.BeginFetch(quoteCtx)
	st.Unlock()

	offers, fetchErr := s.rates.Quote(ctx, origin, weight)

	st.Lock()
	defer st.Unlock()

	rs, err = s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	if seq != rs.RateSeq {
		resp := s.view(rs)
		return &resp, nil
	}

	if fetchErr != nil {
		s.logger.Warn("return rate quoting failed", zap.Error(fetchErr))
		rs.Rates.SetError(quoteCtx, "Could not fetch return shipping rates")
		resp := s.view(rs)
		return &resp, nil
	}

	quotes := make([]shippingdomain.RateQuote, 0, len(offers))
	for _, offer := range offers {
		quotes = append(quotes, shippingdomain.RateQuote{
			ID:       offer.ID,
			Provider: offer.Provider,
			Service:  offer.Service,
			Price:    offer.Price,
			Context:  quoteCtx,
		})
	}
	rs.Rates.SetQuotes(quoteCtx, quotes)
	resp := s.view(rs)
	return &resp, nil
}

// SelectRate picks a return postage quote. A changed rate price makes any
// existing return intent stale.
func (s *Service) SelectRate(ctx context.Context, sessionID, orderID, quoteID string) (*WizardResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()

	rs, err := s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	if rs.Rates.Context() != rs.Wizard.QuoteContext() {
		return nil, shared.ErrStaleRate
	}
	selected, err := rs.Rates.Select(quoteID)
	if err != nil {
		return nil, err
	}
	if rs.Intent != nil && !rs.Intent.IsInvalidated() && !rs.Intent.Matches(selected.Price) {
		rs.Intent.Invalidate()
	}
	resp := s.view(rs)
	return &resp, nil
}

// CreateIntent creates (or returns) the payment intent for the return
// postage. Idempotent with respect to the selected rate's price.
func (s *Service) CreateIntent(ctx context.Context, sessionID, orderID string) (*checkoutapp.IntentResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	rs, err := s.wizardState(st, orderID)
	if err != nil {
		st.Unlock()
		return nil, err
	}
	if rs.Wizard.Current() != returnsdomain.StepReturnPayment {
		st.Unlock()
		return nil, shared.NewDomainError("WRONG_STEP", "Return payment intents are created on the payment step")
	}
	selected := rs.Rates.Selected()
	if selected == nil {
		st.Unlock()
		return nil, shared.NewDomainError("NO_RATE", "A return rate must be selected before paying")
	}
	amount := selected.Price
	if rs.Intent != nil && rs.Intent.IsLive() && rs.Intent.Matches(amount) {
		resp := checkoutapp.ToIntentResponse(rs.Intent)
		st.Unlock()
		return resp, nil
	}
	stale := rs.Intent
	if stale != nil {
		stale.Invalidate()
	}
	st.Unlock()

	if stale != nil && !stale.Succeeded() {
		if err := s.gateway.CancelIntent(ctx, stale.GatewayIntentID); err != nil {
			s.logger.Warn("failed to cancel stale return intent",
				zap.String("gateway_intent_id", stale.GatewayIntentID), zap.Error(err))
		}
	}

	gatewayID, clientSecret, err := s.gateway.CreateIntent(ctx, amount)
	if err != nil {
		s.logger.Warn("return intent creation failed", zap.Error(err))
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

	rs, err = s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	selected = rs.Rates.Selected()
	if selected == nil || !intent.Matches(selected.Price) {
		intent.Invalidate()
		return nil, shared.ErrStaleIntent
	}
	rs.Intent = intent
	return checkoutapp.ToIntentResponse(rs.Intent), nil
}

// Confirm confirms the return payment intent
func (s *Service) Confirm(ctx context.Context, sessionID, orderID, paymentMethod string) (*checkoutapp.IntentResponse, error) {
	if paymentMethod == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is required")
	}
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	rs, err := s.wizardState(st, orderID)
	if err != nil {
		st.Unlock()
		return nil, err
	}
	intent := rs.Intent
	if intent == nil {
		st.Unlock()
		return nil, shared.NewDomainError("NO_INTENT", "No return payment intent has been created")
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
		s.logger.Warn("return payment confirmation failed", zap.Error(confirmErr))
		return nil, shared.ErrPaymentFailed
	}
	intent.FinishConfirm(result.Succeeded, result.ConfirmationID, result.Message)
	if !result.Succeeded {
		return nil, shared.ErrPaymentFailed
	}
	return checkoutapp.ToIntentResponse(intent), nil
}

// Advance moves the wizard forward if the current step is complete.
// Entering the label step buys the label if one has not been issued yet;
// re-entering the step never buys a second one.
func (s *Service) Advance(ctx context.Context, sessionID, orderID string) (*WizardResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	rs, err := s.wizardState(st, orderID)
	if err != nil {
		st.Unlock()
		return nil, err
	}
	if err := rs.Wizard.Advance(s.predicate(rs)); err != nil {
		st.Unlock()
		return nil, err
	}
	needLabel := rs.Wizard.Current() == returnsdomain.StepLabelIssuance && !rs.Wizard.HasLabel()
	var rateID string
	if needLabel {
		selected := rs.Rates.Selected()
		if selected == nil {
			st.Unlock()
			return nil, shared.ErrStaleRate
		}
		rateID = selected.ID
	}
	if !needLabel {
		resp := s.view(rs)
		st.Unlock()
		return &resp, nil
	}
	st.Unlock()

	labelURL, purchaseErr := s.labels.Purchase(ctx, rateID)

	st.Lock()
	defer st.Unlock()

	rs, err = s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	if purchaseErr != nil {
		s.logger.Warn("label purchase failed", zap.Error(purchaseErr))
		// Step back so the user retries the transition rather than sitting
		// on a label step with no label.
		if retreatErr := rs.Wizard.Retreat(); retreatErr != nil {
			return nil, retreatErr
		}
		return nil, shared.ErrGatewayUnavailable
	}
	if !rs.Wizard.HasLabel() {
		if err := rs.Wizard.SetLabel(rateID, labelURL); err != nil {
			return nil, err
		}
	}
	resp := s.view(rs)
	return &resp, nil
}

// Retreat moves the wizard back one step
func (s *Service) Retreat(ctx context.Context, sessionID, orderID string) (*WizardResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()

	rs, err := s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	if err := rs.Wizard.Retreat(); err != nil {
		return nil, err
	}
	resp := s.view(rs)
	return &resp, nil
}

// Complete finalizes the return on the last step: the return is posted to
// the order system, the returned quantities recorded against the order,
// and the wizard closed.
func (s *Service) Complete(ctx context.Context, sessionID, orderID string) (*CompleteResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	rs, err := s.wizardState(st, orderID)
	if err != nil {
		st.Unlock()
		return nil, err
	}
	if rs.Wizard.Current() != returnsdomain.StepPackagingInstructions {
		st.Unlock()
		return nil, shared.NewDomainError("WRONG_STEP", "Returns are finalized on the final step")
	}
	label := rs.Wizard.Label()
	if label == nil {
		st.Unlock()
		return nil, shared.ErrStepIncomplete
	}
	submission := buildReturnSubmission(rs, label)
	st.Unlock()

	if submitErr := s.orders.CreateReturn(ctx, submission); submitErr != nil {
		s.logger.Warn("return creation failed", zap.Error(submitErr))
		return nil, shared.ErrGatewayUnavailable
	}

	st.Lock()
	defer st.Unlock()

	rs, err = s.wizardState(st, orderID)
	if err != nil {
		return nil, err
	}
	if err := rs.Wizard.Complete(); err != nil {
		return nil, err
	}
	markers := make([]sessiondomain.ReturnedLine, 0, len(submission.Lines))
	for _, line := range submission.Lines {
		markers = append(markers, sessiondomain.ReturnedLine{
			LineID:   line.LineID,
			Quantity: line.Quantity,
		})
	}
	st.RecordReturned(orderID, markers)
	delete(st.Returns, orderID)
	s.manager.Persist(ctx, st)
	return &CompleteResponse{OrderID: orderID}, nil
}

// Abandon discards an open wizard without posting anything
func (s *Service) Abandon(ctx context.Context, sessionID, orderID string) error {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	rs, err := s.wizardState(st, orderID)
	if err != nil {
		return err
	}
	if rs.Intent != nil && rs.Intent.IsLive() && !rs.Intent.Succeeded() {
		rs.Intent.Invalidate()
	}
	delete(st.Returns, orderID)
	return nil
}

func (s *Service) wizardState(st *sessions.State, orderID string) (*sessions.ReturnState, error) {
	rs, ok := st.Returns[orderID]
	if !ok {
		return nil, shared.NewDomainError("NO_RETURN", "No return in progress for this order")
	}
	return rs, nil
}

// view builds the wizard response. Caller must hold the session lock.
func (s *Service) view(rs *sessions.ReturnState) WizardResponse {
	isComplete := s.predicate(rs)
	steps := []returnsdomain.Step{
		returnsdomain.StepItemSelection,
		returnsdomain.StepReturnRateSelection,
		returnsdomain.StepReturnPayment,
		returnsdomain.StepLabelIssuance,
		returnsdomain.StepPackagingInstructions,
	}
	postage := "0.00"
	if selected := rs.Rates.Selected(); selected != nil {
		postage = selected.Price.StringFixed(2)
	}
	out := WizardResponse{
		OrderID:         rs.Wizard.OrderID,
		CurrentStep:     int(rs.Wizard.Current()),
		CurrentStepName: rs.Wizard.Current().String(),
		Steps:           make([]StepStatus, 0, len(steps)),
		Lines:           toLineResponses(rs.Wizard),
		Rates:           shippingapp.ToRatesResponse(rs.Rates, postage),
		Intent:          checkoutapp.ToIntentResponse(rs.Intent),
		Label:           toLabelResponse(rs.Wizard.Label()),
		Completed:       rs.Wizard.IsCompleted(),
	}
	if rs.Wizard.Current() == returnsdomain.StepPackagingInstructions {
		out.Instructions = packagingInstructions
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

// applyReturnedMarkers overlays the session's returned-line markers on the
// order history's lines. The input is never returned as-is: the result must
// not alias the history response.
func applyReturnedMarkers(lines []returnsdomain.OrderLine, returned []sessiondomain.ReturnedLine) []returnsdomain.OrderLine {
	byLine := make(map[uuid.UUID]int64, len(returned))
	for _, r := range returned {
		byLine[r.LineID] += r.Quantity
	}
	out := make([]returnsdomain.OrderLine, len(lines))
	copy(out, lines)
	for idx := range out {
		out[idx].AlreadyReturned += byLine[out[idx].LineID]
	}
	return out
}

func buildReturnSubmission(rs *sessions.ReturnState, label *returnsdomain.Label) checkoutdomain.ReturnSubmission {
	selections := rs.Wizard.Selections()
	submission := checkoutdomain.ReturnSubmission{
		OrderID:  rs.Wizard.OrderID,
		Lines:    make([]checkoutdomain.ReturnSubmissionLine, 0, len(selections)),
		LabelURL: label.URL,
	}
	for _, line := range rs.Wizard.Lines() {
		qty, ok := selections[line.LineID]
		if !ok {
			continue
		}
		submission.Lines = append(submission.Lines, checkoutdomain.ReturnSubmissionLine{
			LineID:   line.LineID,
			ItemRef:  line.ItemRef,
			Quantity: qty,
		})
	}
	if rs.Intent != nil {
		submission.PaymentConfirmationID = rs.Intent.ConfirmationID
	}
	return submission
}
