package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

// PaymentGateway is the payment collaborator. CreateIntent reserves a
// server-tracked intent for an amount; Confirm attempts collection against
// a client-captured payment method token.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount valueobject.Money) (gatewayIntentID, clientSecret string, err error)
	Confirm(ctx context.Context, gatewayIntentID, paymentMethod string) (ConfirmResult, error)
	CancelIntent(ctx context.Context, gatewayIntentID string) error
}

// ConfirmResult is the terminal outcome of a confirmation attempt
type ConfirmResult struct {
	Succeeded      bool
	ConfirmationID string
	Message        string
}

// OrderSubmissionLine is one cart line handed off to order creation
type OrderSubmissionLine struct {
	ItemRef   string
	Name      string
	Quantity  int64
	Options   map[string]string
	UnitPrice valueobject.Money
}

// OrderSubmission carries everything order creation needs: cart contents,
// chosen address, chosen rate, and the payment confirmation id.
type OrderSubmission struct {
	Lines                 []OrderSubmissionLine
	PromotionCode         string
	Subtotal              valueobject.Money
	Discount              valueobject.Money
	ShippingCost          valueobject.Money
	Total                 valueobject.Money
	Address               shipping.AddressFields
	RateQuoteID           string
	PaymentConfirmationID string
}

// ReturnSubmissionLine is one returned line handed off to return creation
type ReturnSubmissionLine struct {
	LineID   uuid.UUID
	ItemRef  string
	Quantity int64
}

// ReturnSubmission carries a finalized return for posting to the order
// collaborator.
type ReturnSubmission struct {
	OrderID               string
	Lines                 []ReturnSubmissionLine
	LabelURL              string
	PaymentConfirmationID string
}

// OrderService is the order collaborator. CreateOrder may reject with the
// shared conflict errors (ErrStockConflict, ErrPaymentMismatch), which the
// orchestrator maps back onto wizard steps.
type OrderService interface {
	CreateOrder(ctx context.Context, submission OrderSubmission) (orderID string, err error)
	CreateReturn(ctx context.Context, submission ReturnSubmission) error
}
