package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/sessions"
	cartdomain "github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

const stockWarningMessage = "Stock service unreachable; quantities checked against the last known stock level"

// Service handles cart operations: line mutations gated on observed stock,
// promotion apply/clear, and mirroring every mutation into the session
// snapshot.
type Service struct {
	manager *sessions.Manager
	stock   cartdomain.StockOracle
	promos  cartdomain.PromotionValidator
	logger  *zap.Logger
}

// NewService creates a new cart service
func NewService(
	manager *sessions.Manager,
	stock cartdomain.StockOracle,
	promos cartdomain.PromotionValidator,
	logger *zap.Logger,
) *Service {
	return &Service{
		manager: manager,
		stock:   stock,
		promos:  promos,
		logger:  logger.Named("cart"),
	}
}

// Get returns the current cart
func (s *Service) Get(ctx context.Context, sessionID string) (*Response, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()
	resp := ToResponse(st.Cart, "")
	return &resp, nil
}

// AddItem adds an item to the cart. The requested quantity (merged with any
// existing line for the same variant) must not exceed the observed stock;
// a rejection leaves the cart untouched.
func (s *Service) AddItem(ctx context.Context, sessionID string, req AddItemRequest) (*Response, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unitPrice, err := valueobject.NewMoneyFromString(req.UnitPrice, st.Cart.Currency())
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRICE", "Invalid unit price")
	}
	unitWeight, err := valueobject.NewWeightFromGrams(req.WeightGrams)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_WEIGHT", "Invalid unit weight")
	}

	// The stock lookup happens before the lock is taken; the entry is
	// re-read under the lock so a concurrent refresh is not clobbered.
	warning := s.refreshStock(ctx, st, req.ItemRef)

	st.Lock()
	defer st.Unlock()

	available := s.observedStock(st, req.ItemRef)
	if _, err := st.Cart.AddItem(req.ItemRef, req.Name, req.Quantity, req.Options, unitPrice, unitWeight, available); err != nil {
		return nil, err
	}
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToResponse(st.Cart, warning)
	return &resp, nil
}

// UpdateQuantity changes a line's quantity; zero removes the line. The
// stock for the line's item is refreshed first, so concurrent depletion by
// other shoppers is observed.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, lineID uuid.UUID, quantity int64) (*Response, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Capture the item ref while locked: line pointers are invalidated by
	// concurrent removals once the lock is released for the stock fetch.
	st.Lock()
	line := st.Cart.GetLine(lineID)
	if line == nil {
		st.Unlock()
		return nil, shared.ErrNotFound
	}
	itemRef := line.ItemRef
	st.Unlock()

	var warning string
	if quantity > 0 {
		warning = s.refreshStock(ctx, st, itemRef)
	}

	st.Lock()
	defer st.Unlock()

	available := s.observedStock(st, itemRef)
	if err := st.Cart.UpdateQuantity(lineID, quantity, available); err != nil {
		return nil, err
	}
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToResponse(st.Cart, warning)
	return &resp, nil
}

// RemoveItem removes a line from the cart
func (s *Service) RemoveItem(ctx context.Context, sessionID string, lineID uuid.UUID) (*Response, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	if err := st.Cart.RemoveItem(lineID); err != nil {
		return nil, err
	}
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToResponse(st.Cart, "")
	return &resp, nil
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, sessionID string) (*Response, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	st.Cart.Clear()
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToResponse(st.Cart, "")
	return &resp, nil
}

// ApplyPromotion validates a code with the backend and applies the
// resulting discount, replacing any previously applied promotion.
func (s *Service) ApplyPromotion(ctx context.Context, sessionID, code string) (*Response, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	subtotal := st.Cart.Subtotal()
	st.Unlock()

	discount, valid, err := s.promos.Validate(ctx, code, subtotal)
	if err != nil {
		s.logger.Warn("promotion validation failed", zap.String("code", code), zap.Error(err))
		return nil, shared.ErrGatewayUnavailable
	}
	if !valid {
		return nil, shared.NewDomainError("INVALID_PROMOTION", "Promotion code was not accepted")
	}

	st.Lock()
	defer st.Unlock()

	if err := st.Cart.ApplyPromotion(code, discount); err != nil {
		return nil, err
	}
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToResponse(st.Cart, "")
	return &resp, nil
}

// ClearPromotion removes the applied promotion
func (s *Service) ClearPromotion(ctx context.Context, sessionID string) (*Response, error) {
	st, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	st.Cart.ClearPromotion()
	st.ReconcileAfterMutation()
	s.manager.Persist(ctx, st)

	resp := ToResponse(st.Cart, "")
	return &resp, nil
}

// refreshStock queries the stock oracle for an item and updates the
// session's stock cache. When the oracle is unreachable the last known
// value is kept, flagged stale, and a non-fatal warning is returned.
func (s *Service) refreshStock(ctx context.Context, st *sessions.State, itemRef string) string {
	qty, err := s.stock.Stock(ctx, itemRef)

	st.Lock()
	defer st.Unlock()

	if err != nil {
		s.logger.Warn("stock oracle unreachable, keeping last known value",
			zap.String("item_ref", itemRef), zap.Error(err))
		if entry, ok := st.Stock[itemRef]; ok {
			entry.Stale = true
			st.Stock[itemRef] = entry
		}
		return stockWarningMessage
	}

	st.Stock[itemRef] = sessions.StockEntry{
		Quantity:   qty,
		Stale:      false,
		ObservedAt: time.Now(),
	}
	return ""
}

// observedStock returns the cached stock for an item. Without any
// observation the item is treated as out of stock: an unknown item cannot
// be added optimistically. Caller must hold the session lock.
func (s *Service) observedStock(st *sessions.State, itemRef string) int64 {
	if entry, ok := st.Stock[itemRef]; ok {
		return entry.Quantity
	}
	return 0
}
