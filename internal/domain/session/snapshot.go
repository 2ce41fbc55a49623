// Package session defines the durable per-session snapshot: the state that
// must survive a page reload, and the port it is stored through.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shipping"
)

// ReturnedLine marks a historical order line quantity as already returned,
// so a reload cannot resurrect it for selection in a future return.
type ReturnedLine struct {
	LineID   uuid.UUID `json:"lineId"`
	Quantity int64     `json:"quantity"`
}

// Snapshot is everything the session persists across reloads: the cart,
// the address book, the selected rate (with its quote context), the
// checkout position, and the returned-line markers per order.
type Snapshot struct {
	Cart          cart.State                `json:"cart"`
	AddressBook   shipping.BookState        `json:"addressBook"`
	CheckoutStep  int                       `json:"checkoutStep"`
	SelectedRate  *shipping.SelectionState  `json:"selectedRate,omitempty"`
	ReturnedLines map[string][]ReturnedLine `json:"returnedLines,omitempty"`
	SavedAt       time.Time                 `json:"savedAt"`
}

// Store is the persistent snapshot port: a dumb key-value surface keyed per
// session/device, with no cross-device sync guarantee. Invalidation rules
// belong to the callers.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, sessionID string, snapshot *Snapshot) error
	Clear(ctx context.Context, sessionID string) error
}
