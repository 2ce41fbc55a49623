package gateway

import (
	"context"

	"github.com/storefront/backend/internal/domain/shipping"
)

// AddressClient verifies shipping addresses with the external verification
// service. Implements the shipping address validator.
type AddressClient struct {
	*client
}

// NewAddressClient creates a new address verification client
func NewAddressClient(config *Config) (*AddressClient, error) {
	c, err := newClient(config)
	if err != nil {
		return nil, err
	}
	return &AddressClient{client: c}, nil
}

// Validate submits an address for verification. The service may return a
// normalized form, which replaces the user's input when stored.
func (a *AddressClient) Validate(ctx context.Context, fields shipping.AddressFields) (shipping.ValidationResult, error) {
	req := validateAddressRequest{Address: toWireAddress(fields)}
	var resp validateAddressResponse
	if err := a.post(ctx, "/addresses/validate", req, &resp); err != nil {
		return shipping.ValidationResult{}, err
	}
	result := shipping.ValidationResult{
		Valid:    resp.Valid,
		Messages: resp.Messages,
	}
	if resp.Normalized != nil {
		normalized := fromWireAddress(*resp.Normalized)
		result.Normalized = &normalized
	}
	return result, nil
}

func toWireAddress(fields shipping.AddressFields) wireAddress {
	return wireAddress{
		Recipient:  fields.Recipient,
		Line1:      fields.Line1,
		Line2:      fields.Line2,
		City:       fields.City,
		Region:     fields.Region,
		PostalCode: fields.PostalCode,
		Country:    fields.Country,
		Email:      fields.Email,
		Phone:      fields.Phone,
	}
}

func fromWireAddress(addr wireAddress) shipping.AddressFields {
	return shipping.AddressFields{
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Email:      addr.Email,
		Phone:      addr.Phone,
	}
}
