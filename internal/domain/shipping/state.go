package shipping

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// AddressState is the persistable form of an address-book entry
type AddressState struct {
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
	Revision   int64     `json:"revision"`
	CreatedAt  time.Time `json:"createdAt"`
}

// BookState is the persistable form of the address book
type BookState struct {
	Addresses []AddressState `json:"addresses"`
	ActiveID  uuid.UUID      `json:"activeId"`
}

// ToState captures an address for persistence
func (a *Address) ToState() AddressState {
	return AddressState{
		ID:         a.ID,
		Recipient:  a.Recipient,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Email:      a.Email,
		Phone:      a.Phone,
		Validated:  a.Validated,
		Revision:   a.Revision,
		CreatedAt:  a.CreatedAt,
	}
}

// AddressFromState rebuilds an address from a persisted state
func AddressFromState(state AddressState) (*Address, error) {
	if state.ID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Persisted address has no ID")
	}
	addr := &Address{
		BaseEntity: shared.BaseEntity{
			ID:        state.ID,
			CreatedAt: state.CreatedAt,
			UpdatedAt: state.CreatedAt,
		},
		Validated: state.Validated,
		Revision:  state.Revision,
	}
	addr.apply(AddressFields{
		Recipient:  state.Recipient,
		Line1:      state.Line1,
		Line2:      state.Line2,
		City:       state.City,
		Region:     state.Region,
		PostalCode: state.PostalCode,
		Country:    state.Country,
		Email:      state.Email,
		Phone:      state.Phone,
	})
	if addr.Revision < 1 {
		addr.Revision = 1
	}
	return addr, nil
}

// ToState captures the address book for persistence
func (b *AddressBook) ToState() BookState {
	addresses := make([]AddressState, 0, len(b.addresses))
	for _, addr := range b.addresses {
		addresses = append(addresses, addr.ToState())
	}
	return BookState{Addresses: addresses, ActiveID: b.activeID}
}

// BookFromState rebuilds an address book from a persisted state
func BookFromState(state BookState) (*AddressBook, error) {
	book := NewAddressBook()
	for _, as := range state.Addresses {
		addr, err := AddressFromState(as)
		if err != nil {
			return nil, err
		}
		book.addresses = append(book.addresses, addr)
	}
	if state.ActiveID != uuid.Nil && book.Get(state.ActiveID) != nil {
		book.activeID = state.ActiveID
	}
	return book, nil
}

// SelectionState is the persistable form of a selected rate quote together
// with the context it was computed from. On restore, the selection is only
// honored when the context still matches the session's current context.
type SelectionState struct {
	QuoteID  string            `json:"quoteId"`
	Provider string            `json:"provider"`
	Service  string            `json:"service"`
	Price    valueobject.Money `json:"price"`
	Context  QuoteContext      `json:"context"`
}

// SelectionToState captures a selected quote for persistence
func SelectionToState(quote *RateQuote) *SelectionState {
	if quote == nil {
		return nil
	}
	return &SelectionState{
		QuoteID:  quote.ID,
		Provider: quote.Provider,
		Service:  quote.Service,
		Price:    quote.Price,
		Context:  quote.Context,
	}
}

// RestoreSelection rebuilds a board holding only the persisted selection,
// provided the given current context still matches. A stale persisted
// selection yields an idle board.
func RestoreSelection(state *SelectionState, current QuoteContext) *RateBoard {
	board := NewRateBoard()
	if state == nil || current.IsZero() || state.Context != current {
		return board
	}
	quote := RateQuote{
		ID:       state.QuoteID,
		Provider: state.Provider,
		Service:  state.Service,
		Price:    state.Price,
		Context:  state.Context,
	}
	board.BeginFetch(current)
	board.SetQuotes(current, []RateQuote{quote})
	if _, err := board.Select(quote.ID); err != nil {
		return NewRateBoard()
	}
	return board
}
