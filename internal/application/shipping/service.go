package shipping

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/sessions"
	"github.com/storefront/backend/internal/domain/shared"
	shippingdomain "github.com/storefront/backend/internal/domain/shipping"
)

// Service handles the address book and rate quoting: address CRUD gated on
// external verification, and rate fetches guarded against stale responses.
type Service struct {
	manager   *sessions.Manager
	validator shippingdomain.AddressValidator
	rates     shippingdomain.RateProvider
	logger    *zap.Logger
}

// NewService creates a new shipping service
func NewService(
	manager *sessions.Manager,
	validator shippingdomain.AddressValidator,
	rates shippingdomain.RateProvider,
	logger *zap.Logger,
) *Service {
	return &Service{
		manager:   manager,
		validator: validator,
		rates:     rates,
		logger:    logger.Named("shipping"),
	}
}

// ListAddresses returns the session's address book
func (s *Service) ListAddresses(ctx context.Context, sessionID string) ([]AddressResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()

	active := st.AddressBook.Active()
	out := make([]AddressResponse, 0, st.AddressBook.Len())
	for _, addr := range st.AddressBook.All() {
		out = append(out, ToAddressResponse(addr, active != nil && active.ID == addr.ID))
	}
	return out, nil
}

// CreateAddress validates a new address with the verification service and
// stores it. The service's normalized form, when returned, replaces the
// user's input. The first stored address becomes active.
func (s *Service) CreateAddress(ctx context.Context, sessionID string, req AddressRequest) (*AddressResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	fields := req.fields()
	addr, err := shippingdomain.NewAddress(fields)
	if err != nil {
		return nil, err
	}

	result, err := s.validator.Validate(ctx, fields)
	if err != nil {
		s.logger.Warn("address validation service unreachable", zap.Error(err))
		return nil, shared.ErrGatewayUnavailable
	}
	if !result.Valid {
		return nil, shared.NewDomainError("ADDRESS_REJECTED", validationMessage(result.Messages))
	}
	if result.Normalized != nil {
		if err := addr.Update(*result.Normalized); err != nil {
			return nil, err
		}
	}
	addr.MarkValidated()

	st.Lock()
	defer st.Unlock()

	hadActive := st.AddressBook.Active() != nil
	st.AddressBook.Add(addr)
	if !hadActive {
		// First address auto-activates, which moves the quote context
		st.ReconcileAfterMutation()
	}
	s.manager.Persist(ctx, st)

	active := st.AddressBook.Active()
	resp := ToAddressResponse(addr, active != nil && active.ID == addr.ID)
	return &resp, nil
}

// UpdateAddress re-validates and replaces an address's content. The bumped
// revision invalidates any rate selection computed from the old content.
func (s *Service) UpdateAddress(ctx context.Context, sessionID string, addressID uuid.UUID, req AddressRequest) (*AddressResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	if st.AddressBook.Get(addressID) == nil {
		st.Unlock()
		return nil, shared.ErrNotFound
	}
	st.Unlock()

	fields := req.fields()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	result, err := s.validator.Validate(ctx, fields)
	if err != nil {
		s.logger.Warn("address validation service unreachable", zap.Error(err))
		return nil, shared.ErrGatewayUnavailable
	}
	if !result.Valid {
		return nil, shared.NewDomainError("ADDRESS_REJECTED", validationMessage(result.Messages))
	}
	if result.Normalized != nil {
		fields = *result.Normalized
	}

	st.Lock()
	defer st.Unlock()

	addr := st.AddressBook.Get(addressID)
	if addr == nil {
		return nil, shared.ErrNotFound
	}
	if err := addr.Update(fields); err != nil {
		return nil, err
	}
	addr.MarkValidated()
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	active := st.AddressBook.Active()
	resp := ToAddressResponse(addr, active != nil && active.ID == addr.ID)
	return &resp, nil
}

// DeleteAddress removes an address from the book
func (s *Service) DeleteAddress(ctx context.Context, sessionID string, addressID uuid.UUID) error {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	st.Lock()
	defer st.Unlock()

	if err := st.AddressBook.Remove(addressID); err != nil {
		return err
	}
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)
	return nil
}

// ActivateAddress makes an address the active one for the checkout.
// Switching the active address moves the quote context, which drops any
// selected rate and resets the shipping cost before a refetch.
func (s *Service) ActivateAddress(ctx context.Context, sessionID string, addressID uuid.UUID) error {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	st.Lock()
	defer st.Unlock()

	if err := st.AddressBook.SetActive(addressID); err != nil {
		return err
	}
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)
	return nil
}

// FetchRates fetches carrier quotes for the active address and the current
// cart weight. Concurrent fetches are sequence-stamped: only the latest
// issued fetch may apply its result, and the board additionally rejects
// results for a superseded quote context.
func (s *Service) FetchRates(ctx context.Context, sessionID string) (*RatesResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	active := st.AddressBook.Active()
	if active == nil || !active.Validated {
		st.Unlock()
		return nil, shared.NewDomainError("NO_ADDRESS", "A validated active address is required to quote rates")
	}
	if st.Cart.IsEmpty() {
		st.Unlock()
		return nil, shared.NewDomainError("EMPTY_CART", "Cannot quote rates for an empty cart")
	}
	quoteCtx := st.QuoteContext()
	destination := active.Fields()
	weight := st.Cart.TotalWeight()
	st.RateSeq++
	seq := st.RateSeq
	st.Rates.BeginFetch(quoteCtx)
	st.Unlock()

	offers, fetchErr := s.rates.Quote(ctx, destination, weight)

	st.Lock()
	defer st.Unlock()

	// Drop the result if a newer fetch was issued while this one was in
	// flight; the newer fetch owns the board now.
	if seq != st.RateSeq {
		resp := ToRatesResponse(st.Rates, st.Cart.ShippingCost().StringFixed(2))
		return &resp, nil
	}

	if fetchErr != nil {
		s.logger.Warn("rate quoting failed", zap.Error(fetchErr))
		st.Rates.SetError(quoteCtx, "Could not fetch shipping rates")
		st.Cart.ClearShippingCost()
		st.ReconcileAfterMutation()
		s.manager.Persist(ctx, st)
		resp := ToRatesResponse(st.Rates, st.Cart.ShippingCost().StringFixed(2))
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
	st.Rates.SetQuotes(quoteCtx, quotes)
	st.Cart.ClearShippingCost()
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToRatesResponse(st.Rates, st.Cart.ShippingCost().StringFixed(2))
	return &resp, nil
}

// SelectRate selects a quoted rate and applies its price as the cart's
// shipping cost. A selection against quotes from a superseded context is
// rejected as stale.
func (s *Service) SelectRate(ctx context.Context, sessionID, quoteID string) (*RatesResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	if st.Rates.Context() != st.QuoteContext() {
		return nil, shared.ErrStaleRate
	}
	quote, err := st.Rates.Select(quoteID)
	if err != nil {
		return nil, err
	}
	if err := st.Cart.SetShippingCost(quote.Price); err != nil {
		return nil, err
	}
	// Shipping cost feeds the total; an intent created for the old total
	// is stale now.
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToRatesResponse(st.Rates, st.Cart.ShippingCost().StringFixed(2))
	return &resp, nil
}

// Rates returns the current rate board without fetching
func (s *Service) Rates(ctx context.Context, sessionID string) (*RatesResponse, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()
	resp := ToRatesResponse(st.Rates, st.Cart.ShippingCost().StringFixed(2))
	return &resp, nil
}

func validationMessage(messages []string) string {
	if len(messages) == 0 {
		return "Address was rejected by the verification service"
	}
	return strings.Join(messages, "; ")
}
