package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput       = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState       = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock  = NewDomainError("INSUFFICIENT_STOCK", "Requested quantity exceeds available stock")
	ErrStepIncomplete     = NewDomainError("STEP_INCOMPLETE", "Current step is not complete")
	ErrStaleRate          = NewDomainError("STALE_RATE", "Selected shipping rate no longer matches the current address and cart")
	ErrStaleIntent        = NewDomainError("STALE_INTENT", "Payment intent amount no longer matches the current total")
	ErrConfirmInFlight    = NewDomainError("CONFIRM_IN_FLIGHT", "A payment confirmation is already in progress")
	ErrStockConflict      = NewDomainError("STOCK_CONFLICT", "Order rejected due to a server-side stock conflict")
	ErrPaymentMismatch    = NewDomainError("PAYMENT_MISMATCH", "Order rejected due to a payment amount mismatch")
	ErrPaymentFailed      = NewDomainError("PAYMENT_FAILED", "Payment confirmation failed")
	ErrGatewayUnavailable = NewDomainError("GATEWAY_UNAVAILABLE", "External service is unreachable")
)
