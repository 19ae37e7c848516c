package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a cart or cart line does not exist.
var ErrNotFound = errors.New("cart: not found")

// Owner identifies a cart: an authenticated user or an anonymous guest
// token. Exactly one of the two is set.
type Owner struct {
	UserID     uuid.UUID
	GuestToken string
}

// IsGuest reports whether the owner is an anonymous visitor.
func (o Owner) IsGuest() bool {
	return o.UserID == uuid.Nil
}

// Cart is a shopping cart with its priced lines.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	Items     []Line    `json:"items"`
	Subtotal  int64     `json:"subtotal"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Line is one product in a cart, priced at read time from the catalog.
type Line struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	UnitPrice int64     `json:"unitPrice"`
	Qty       int32     `json:"qty"`
	LineTotal int64     `json:"lineTotal"`
	InStock   bool      `json:"inStock"`
}
