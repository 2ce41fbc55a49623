package shipping

import (
	"strings"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// countriesWithSubdivisions lists ISO country codes for which a region/state
// is a required part of a deliverable address.
var countriesWithSubdivisions = map[string]struct{}{
	"US": {}, "CA": {}, "AU": {}, "BR": {}, "CN": {}, "IN": {}, "IT": {}, "JP": {}, "MX": {}, "ES": {},
}

// RegionRequired returns true if the country expects a region/state field
func RegionRequired(countryCode string) bool {
	_, ok := countriesWithSubdivisions[strings.ToUpper(countryCode)]
	return ok
}

// Address is a deliverable shipping address in the session's address book.
// Revision is bumped on every content change so dependent state (rate
// quotes) can detect that the address it was computed from has moved on.
type Address struct {
	shared.BaseEntity
	Recipient  string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string // ISO 3166-1 alpha-2
	Email      string
	Phone      string
	Validated  bool
	Revision   int64
}

// AddressFields carries the raw user-entered fields for creating or
// updating an address, before validation.
type AddressFields struct {
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

// Validate performs local structural checks. External verification against
// the address-validation service happens in the application layer.
func (f AddressFields) Validate() error {
	if strings.TrimSpace(f.Recipient) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Recipient cannot be empty")
	}
	if strings.TrimSpace(f.Line1) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Address line 1 cannot be empty")
	}
	if strings.TrimSpace(f.City) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "City cannot be empty")
	}
	if strings.TrimSpace(f.PostalCode) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Postal code cannot be empty")
	}
	country := strings.ToUpper(strings.TrimSpace(f.Country))
	if len(country) != 2 {
		return shared.NewDomainError("INVALID_ADDRESS", "Country must be a two-letter ISO code")
	}
	if RegionRequired(country) && strings.TrimSpace(f.Region) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Region is required for the selected country")
	}
	return nil
}

// NewAddress creates a validated address entity from its fields
func NewAddress(fields AddressFields) (*Address, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	addr := &Address{
		BaseEntity: shared.NewBaseEntity(),
		Revision:   1,
	}
	addr.apply(fields)
	return addr, nil
}

// Update replaces the address content and bumps the revision
func (a *Address) Update(fields AddressFields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	a.apply(fields)
	a.Revision++
	a.Validated = false
	a.Touch()
	return nil
}

// MarkValidated records acceptance by the address-verification service
func (a *Address) MarkValidated() {
	a.Validated = true
	a.Touch()
}

func (a *Address) apply(fields AddressFields) {
	a.Recipient = strings.TrimSpace(fields.Recipient)
	a.Line1 = strings.TrimSpace(fields.Line1)
	a.Line2 = strings.TrimSpace(fields.Line2)
	a.City = strings.TrimSpace(fields.City)
	a.Region = strings.TrimSpace(fields.Region)
	a.PostalCode = strings.TrimSpace(fields.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(fields.Country))
	a.Email = strings.TrimSpace(fields.Email)
	a.Phone = strings.TrimSpace(fields.Phone)
}

// Fields returns the address content as AddressFields
func (a *Address) Fields() AddressFields {
	return AddressFields{
		Recipient:  a.Recipient,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Email:      a.Email,
		Phone:      a.Phone,
	}
}

// AddressBook holds the session's saved addresses and the single active
// address for the current checkout.
type AddressBook struct {
	addresses []*Address
	activeID  uuid.UUID
}

// NewAddressBook creates an empty address book
func NewAddressBook() *AddressBook {
	return &AddressBook{addresses: make([]*Address, 0)}
}

// Add stores a new address. The first address added becomes active.
func (b *AddressBook) Add(addr *Address) {
	b.addresses = append(b.addresses, addr)
	if b.activeID == uuid.Nil {
		b.activeID = addr.ID
	}
}

// Get returns an address by ID, or nil
func (b *AddressBook) Get(id uuid.UUID) *Address {
	for _, addr := range b.addresses {
		if addr.ID == id {
			return addr
		}
	}
	return nil
}

// Remove deletes an address by ID. Removing the active address clears the
// active selection.
func (b *AddressBook) Remove(id uuid.UUID) error {
	for idx, addr := range b.addresses {
		if addr.ID == id {
			b.addresses = append(b.addresses[:idx], b.addresses[idx+1:]...)
			if b.activeID == id {
				b.activeID = uuid.Nil
			}
			return nil
		}
	}
	return shared.ErrNotFound
}

// SetActive marks an address as the active one for the current checkout
func (b *AddressBook) SetActive(id uuid.UUID) error {
	if b.Get(id) == nil {
		return shared.ErrNotFound
	}
	b.activeID = id
	return nil
}

// ClearActive clears the active address selection
func (b *AddressBook) ClearActive() {
	b.activeID = uuid.Nil
}

// Active returns the active address, or nil when none is selected
func (b *AddressBook) Active() *Address {
	if b.activeID == uuid.Nil {
		return nil
	}
	return b.Get(b.activeID)
}

// HasValidatedActive reports whether an active, externally validated
// address exists. This is the AddressSelection completion predicate.
func (b *AddressBook) HasValidatedActive() bool {
	active := b.Active()
	return active != nil && active.Validated
}

// All returns the stored addresses in insertion order
func (b *AddressBook) All() []*Address {
	out := make([]*Address, len(b.addresses))
	copy(out, b.addresses)
	return out
}

// Len returns the number of stored addresses
func (b *AddressBook) Len() int {
	return len(b.addresses)
}
