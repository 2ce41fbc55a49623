package shipping

import (
	"context"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ValidationResult is the outcome of external address verification.
// Normalized, when present, is the service's corrected form of the address
// and should be stored in place of the user's input.
type ValidationResult struct {
	Valid      bool
	Normalized *AddressFields
	Messages   []string
}

// AddressValidator verifies a shipping address with the external
// address-verification service.
type AddressValidator interface {
	Validate(ctx context.Context, fields AddressFields) (ValidationResult, error)
}

// RateOffer is a raw carrier rate offer as returned by the quoting service
type RateOffer struct {
	ID       string
	Provider string
	Service  string
	Price    valueobject.Money
}

// RateProvider fetches carrier rate offers for an address and parcel weight
type RateProvider interface {
	Quote(ctx context.Context, destination AddressFields, weight valueobject.Weight) ([]RateOffer, error)
}

// LabelPurchaser buys a shipping label for a previously quoted rate
type LabelPurchaser interface {
	Purchase(ctx context.Context, rateID string) (labelURL string, err error)
}
