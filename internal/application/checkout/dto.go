package checkout

import (
	checkoutdomain "github.com/storefront/backend/internal/domain/checkout"
)

// StatusResponse is the API view of the checkout session position and the
// completion state of every step.
type StatusResponse struct {
	CurrentStep     int             `json:"currentStep"`
	CurrentStepName string          `json:"currentStepName"`
	Steps           []StepStatus    `json:"steps"`
	Intent          *IntentResponse `json:"intent,omitempty"`
}

// StepStatus reports one step's completion predicate
type StepStatus struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
}

// IntentResponse is the API view of the live payment intent. The client
// secret is handed to the gateway's client-side capture surface.
type IntentResponse struct {
	Handle       string `json:"handle"`
	ClientSecret string `json:"clientSecret"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	Failure      string `json:"failure,omitempty"`
}

// ToIntentResponse builds the API view of a payment intent
func ToIntentResponse(intent *checkoutdomain.PaymentIntent) *IntentResponse {
	if intent == nil {
		return nil
	}
	return &IntentResponse{
		Handle:       intent.Handle.String(),
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount.StringFixed(2),
		Currency:     string(intent.Amount.Currency()),
		Status:       string(intent.Status),
		Failure:      intent.FailureMessage,
	}
}

// SubmitResponse is the result of a successful order submission
type SubmitResponse struct {
	OrderID string `json:"orderId"`
}
