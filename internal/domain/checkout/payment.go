package checkout

import (
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// IntentStatus is the lifecycle status of a payment intent
type IntentStatus string

const (
	IntentStatusPending              IntentStatus = "PENDING"
	IntentStatusRequiresConfirmation IntentStatus = "REQUIRES_CONFIRMATION"
	IntentStatusSucceeded            IntentStatus = "SUCCEEDED"
	IntentStatusFailed               IntentStatus = "FAILED"
)

// IsTerminal reports whether the status is a terminal outcome
func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusSucceeded || s == IntentStatusFailed
}

// PaymentIntent wraps one attempt to collect a specific amount through the
// payment gateway. An intent is bound to the amount it was created for; a
// changed total invalidates it rather than reusing it.
type PaymentIntent struct {
	Handle          uuid.UUID
	GatewayIntentID string
	ClientSecret    string
	Amount          valueobject.Money
	Status          IntentStatus
	ConfirmationID  string
	FailureMessage  string

	confirmInFlight bool
	invalidated     bool
}

// NewPaymentIntent creates a pending intent for the given amount, backed by
// the gateway identifiers returned at creation time.
func NewPaymentIntent(amount valueobject.Money, gatewayIntentID, clientSecret string) (*PaymentIntent, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if gatewayIntentID == "" || clientSecret == "" {
		return nil, shared.NewDomainError("INVALID_INTENT", "Gateway intent ID and client secret are required")
	}
	return &PaymentIntent{
		Handle:          uuid.New(),
		GatewayIntentID: gatewayIntentID,
		ClientSecret:    clientSecret,
		Amount:          amount,
		Status:          IntentStatusPending,
	}, nil
}

// IsLive reports whether the intent can still be confirmed: not invalidated
// and not in a terminal failure-free state already.
func (p *PaymentIntent) IsLive() bool {
	return !p.invalidated && p.Status != IntentStatusSucceeded
}

// Matches reports whether the intent was created for the given amount
func (p *PaymentIntent) Matches(amount valueobject.Money) bool {
	return p.Amount.Equals(amount)
}

// Invalidate marks the intent as unusable. Called when the checkout amount
// changes after the intent was created.
func (p *PaymentIntent) Invalidate() {
	p.invalidated = true
}

// IsInvalidated reports whether the intent has been discarded
func (p *PaymentIntent) IsInvalidated() bool {
	return p.invalidated
}

// RequireConfirmation transitions a pending intent to requiring a client
// payment method.
func (p *PaymentIntent) RequireConfirmation() error {
	if p.invalidated {
		return shared.ErrStaleIntent
	}
	if p.Status != IntentStatusPending {
		return shared.ErrInvalidState
	}
	p.Status = IntentStatusRequiresConfirmation
	return nil
}

// BeginConfirm acquires the double-submit guard. A second confirmation
// while one is in flight is rejected locally, before any network call.
func (p *PaymentIntent) BeginConfirm() error {
	if p.invalidated {
		return shared.ErrStaleIntent
	}
	if p.Status == IntentStatusSucceeded {
		return shared.NewDomainError("ALREADY_SUCCEEDED", "Payment has already succeeded")
	}
	if p.confirmInFlight {
		return shared.ErrConfirmInFlight
	}
	p.confirmInFlight = true
	return nil
}

// FinishConfirm releases the guard and applies the terminal outcome. A
// failed confirmation leaves the intent live so it can be retried with a
// fresh payment method while the amount is unchanged.
func (p *PaymentIntent) FinishConfirm(succeeded bool, confirmationID, failureMessage string) {
	p.confirmInFlight = false
	if succeeded {
		p.Status = IntentStatusSucceeded
		p.ConfirmationID = confirmationID
		p.FailureMessage = ""
		return
	}
	p.Status = IntentStatusFailed
	p.FailureMessage = failureMessage
}

// ConfirmInFlight reports whether a confirmation is currently in flight
func (p *PaymentIntent) ConfirmInFlight() bool {
	return p.confirmInFlight
}

// Succeeded reports whether the payment reached the terminal success state.
// This is the Payment step completion predicate.
func (p *PaymentIntent) Succeeded() bool {
	return p.Status == IntentStatusSucceeded
}
