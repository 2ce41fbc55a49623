package shipping

import (
	"github.com/google/uuid"

	shippingdomain "github.com/storefront/backend/internal/domain/shipping"
)

// AddressRequest carries the user-entered address fields
type AddressRequest struct {
	Recipient  string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
	Email      string
	Phone      string
}

func (r AddressRequest) fields() shippingdomain.AddressFields {
	return shippingdomain.AddressFields{
		Recipient:  r.Recipient,
		Line1:      r.Line1,
		Line2:      r.Line2,
		City:       r.City,
		Region:     r.Region,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		Email:      r.Email,
		Phone:      r.Phone,
	}
}

// AddressResponse is the API view of a saved address
type AddressResponse struct {
	ID         uuid.UUID `json:"id"`
	Recipient  string    `json:"recipient"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	Region     string    `json:"region,omitempty"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Validated  bool      `json:"validated"`
	Active     bool      `json:"active"`
}

// ToAddressResponse builds the API view of an address
func ToAddressResponse(addr *shippingdomain.Address, active bool) AddressResponse {
	return AddressResponse{
		ID:         addr.ID,
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Email:      addr.Email,
		Phone:      addr.Phone,
		Validated:  addr.Validated,
		Active:     active,
	}
}

// RateQuoteResponse is the API view of one rate quote
type RateQuoteResponse struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Service  string `json:"service"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Selected bool   `json:"selected"`
}

// RatesResponse is the API view of the rate board
type RatesResponse struct {
	Status       string              `json:"status"`
	Quotes       []RateQuoteResponse `json:"quotes"`
	Error        string              `json:"error,omitempty"`
	ShippingCost string              `json:"shippingCost"`
}

// ToRatesResponse builds the API view of the rate board
func ToRatesResponse(board *shippingdomain.RateBoard, shippingCost string) RatesResponse {
	quotes := board.Quotes()
	selected := board.Selected()
	out := RatesResponse{
		Status:       string(board.Status()),
		Quotes:       make([]RateQuoteResponse, 0, len(quotes)),
		Error:        board.LastError(),
		ShippingCost: shippingCost,
	}
	for _, q := range quotes {
		out.Quotes = append(out.Quotes, RateQuoteResponse{
			ID:       q.ID,
			Provider: q.Provider,
			Service:  q.Service,
			Price:    q.Price.StringFixed(2),
			Currency: string(q.Price.Currency()),
			Selected: selected != nil && selected.ID == q.ID,
		})
	}
	return out
}
