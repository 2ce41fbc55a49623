package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/returns"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderClient posts orders and returns to the order system of record and
// looks up completed orders for returns eligibility. Implements the order
// service and order history ports.
type OrderClient struct {
	*client
}

// NewOrderClient creates a new order service client
func NewOrderClient(config *Config) (*OrderClient, error) {
	c, err := newClient(config)
	if err != nil {
		return nil, err
	}
	return &OrderClient{client: c}, nil
}

// CreateOrder submits a completed checkout. A 409 with a conflict code is
// mapped to the matching domain error so the orchestrator can route the
// session back to the right step.
func (o *OrderClient) CreateOrder(ctx context.Context, submission checkout.OrderSubmission) (string, error) {
	req := createOrderRequest{
		Lines:                 make([]orderLineRequest, 0, len(submission.Lines)),
		PromotionCode:         submission.PromotionCode,
		Subtotal:              submission.Subtotal.StringFixed(2),
		Discount:              submission.Discount.StringFixed(2),
		ShippingCost:          submission.ShippingCost.StringFixed(2),
		Total:                 submission.Total.StringFixed(2),
		Currency:              string(submission.Total.Currency()),
		Address:               toWireAddress(submission.Address),
		RateQuoteID:           submission.RateQuoteID,
		PaymentConfirmationID: submission.PaymentConfirmationID,
	}
	for _, line := range submission.Lines {
		req.Lines = append(req.Lines, orderLineRequest{
			ItemRef:   line.ItemRef,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Options:   line.Options,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}

	var resp createOrderResponse
	if err := o.post(ctx, "/orders", req, &resp); err != nil {
		return "", mapConflict(err)
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("order creation returned no order ID")
	}
	return resp.OrderID, nil
}

// CreateReturn posts a finalized return against an order
func (o *OrderClient) CreateReturn(ctx context.Context, submission checkout.ReturnSubmission) error {
	req := createReturnRequest{
		Lines:                 make([]returnLineRequest, 0, len(submission.Lines)),
		LabelURL:              submission.LabelURL,
		PaymentConfirmationID: submission.PaymentConfirmationID,
	}
	for _, line := range submission.Lines {
		req.Lines = append(req.Lines, returnLineRequest{
			LineID:   line.LineID.String(),
			ItemRef:  line.ItemRef,
			Quantity: line.Quantity,
		})
	}
	path := "/orders/" + url.PathEscape(submission.OrderID) + "/returns"
	return o.post(ctx, path, req, nil)
}

// Order looks up a completed order for returns eligibility
func (o *OrderClient) Order(ctx context.Context, orderID string) (*returns.HistoricalOrder, error) {
	var resp historicalOrderResponse
	if err := o.get(ctx, "/orders/"+url.PathEscape(orderID), &resp); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	order := &returns.HistoricalOrder{
		OrderID: resp.OrderID,
		ShipTo:  fromWireAddress(resp.ShipTo),
		Lines:   make([]returns.OrderLine, 0, len(resp.Lines)),
	}
	for _, line := range resp.Lines {
		lineID, err := uuid.Parse(line.LineID)
		if err != nil {
			return nil, fmt.Errorf("order %s has invalid line ID %q: %w", orderID, line.LineID, err)
		}
		price, err := valueobject.NewMoneyFromString(line.UnitPrice, valueobject.Currency(line.Currency))
		if err != nil {
			return nil, fmt.Errorf("order %s line %s has invalid price %q: %w", orderID, line.LineID, line.UnitPrice, err)
		}
		weight, err := valueobject.NewWeightFromGrams(line.WeightGrams)
		if err != nil {
			return nil, fmt.Errorf("order %s line %s has invalid weight: %w", orderID, line.LineID, err)
		}
		order.Lines = append(order.Lines, returns.OrderLine{
			LineID:          lineID,
			ItemRef:         line.ItemRef,
			Name:            line.Name,
			PurchasedQty:    line.PurchasedQty,
			AlreadyReturned: line.AlreadyReturned,
			UnitPrice:       price,
			UnitWeight:      weight,
		})
	}
	return order, nil
}

// mapConflict translates the order service's 409 conflict codes into the
// domain errors the checkout orchestrator routes on.
func mapConflict(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusConflict {
		return err
	}
	switch statusErr.Code {
	case "STOCK_CONFLICT":
		return shared.ErrStockConflict
	case "PAYMENT_MISMATCH":
		return shared.ErrPaymentMismatch
	}
	return err
}
