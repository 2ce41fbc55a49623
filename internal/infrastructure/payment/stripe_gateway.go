package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// StripeGateway implements the payment gateway port over Stripe
// PaymentIntents. Amounts are converted to the currency's minor unit as
// Stripe expects.
type StripeGateway struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a new Stripe payment gateway
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.InitStripeClient()

	return &StripeGateway{
		config: config,
		logger: logger.Named("stripe"),
	}, nil
}

// CreateIntent reserves a payment intent for the given amount
func (g *StripeGateway) CreateIntent(ctx context.Context, amount valueobject.Money) (string, string, error) {
	g.logger.Debug("Creating Stripe payment intent",
		zap.String("amount", amount.StringFixed(2)),
		zap.String("currency", string(amount.Currency())))

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount.MinorUnits()),
		Currency: stripe.String(strings.ToLower(string(amount.Currency()))),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe payment intent", zap.Error(err))
		return "", "", fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	g.logger.Info("Created Stripe payment intent", zap.String("intent_id", intent.ID))
	return intent.ID, intent.ClientSecret, nil
}

// Confirm attempts collection against a client-captured payment method.
// A card decline is a non-error outcome with Succeeded false; only
// transport and API failures are errors.
func (g *StripeGateway) Confirm(ctx context.Context, gatewayIntentID, paymentMethod string) (checkout.ConfirmResult, error) {
	g.logger.Debug("Confirming Stripe payment intent", zap.String("intent_id", gatewayIntentID))

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	}
	params.Context = ctx

	intent, err := paymentintent.Confirm(gatewayIntentID, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Type == stripe.ErrorTypeCard {
			g.logger.Info("Stripe card declined",
				zap.String("intent_id", gatewayIntentID),
				zap.String("decline_code", string(stripeErr.DeclineCode)))
			return checkout.ConfirmResult{
				Succeeded: false,
				Message:   stripeErr.Msg,
			}, nil
		}
		g.logger.Error("Failed to confirm Stripe payment intent",
			zap.String("intent_id", gatewayIntentID), zap.Error(err))
		return checkout.ConfirmResult{}, fmt.Errorf("stripe: failed to confirm payment intent: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		g.logger.Info("Stripe payment intent not succeeded after confirm",
			zap.String("intent_id", gatewayIntentID),
			zap.String("status", string(intent.Status)))
		return checkout.ConfirmResult{
			Succeeded: false,
			Message:   fmt.Sprintf("payment did not complete (status %s)", intent.Status),
		}, nil
	}

	confirmationID := intent.ID
	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		confirmationID = intent.LatestCharge.ID
	}

	g.logger.Info("Confirmed Stripe payment intent",
		zap.String("intent_id", gatewayIntentID),
		zap.String("confirmation_id", confirmationID))
	return checkout.ConfirmResult{
		Succeeded:      true,
		ConfirmationID: confirmationID,
	}, nil
}

// CancelIntent cancels an intent that will never be confirmed
func (g *StripeGateway) CancelIntent(ctx context.Context, gatewayIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(gatewayIntentID, params); err != nil {
		return fmt.Errorf("stripe: failed to cancel payment intent: %w", err)
	}
	g.logger.Info("Cancelled Stripe payment intent", zap.String("intent_id", gatewayIntentID))
	return nil
}
