package dto

import "net/http"

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeValidation is used for request body validation failures
	ErrCodeValidation = "VALIDATION_FAILED"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not present here default to 400: most unmapped codes are input
// validation failures raised by the domain constructors.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,

	// Missing or unknown resources
	"NO_RETURN": http.StatusNotFound,

	// Business-rule rejections the client can resolve by changing input
	"INSUFFICIENT_STOCK": http.StatusUnprocessableEntity,
	"INVALID_PROMOTION":  http.StatusUnprocessableEntity,
	"ADDRESS_REJECTED":   http.StatusUnprocessableEntity,

	// State conflicts: the session has to move before the call can succeed
	"INVALID_STATE":     http.StatusConflict,
	"WRONG_STEP":        http.StatusConflict,
	"INVALID_STEP":      http.StatusConflict,
	"STEP_INCOMPLETE":   http.StatusConflict,
	"STALE_RATE":        http.StatusConflict,
	"STALE_INTENT":      http.StatusConflict,
	"CONFIRM_IN_FLIGHT": http.StatusConflict,
	"ALREADY_SUCCEEDED": http.StatusConflict,
	"STOCK_CONFLICT":    http.StatusConflict,
	"PAYMENT_MISMATCH":  http.StatusConflict,
	"NO_ADDRESS":        http.StatusConflict,
	"EMPTY_CART":        http.StatusConflict,
	"NO_QUOTES":         http.StatusConflict,
	"NO_RATE":           http.StatusConflict,
	"NO_SELECTION":      http.StatusConflict,
	"NO_INTENT":         http.StatusConflict,
	"NO_LABEL":          http.StatusConflict,

	// Payment outcomes
	"PAYMENT_FAILED": http.StatusPaymentRequired,

	// Upstream failures
	"GATEWAY_UNAVAILABLE": http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusBadRequest
}
