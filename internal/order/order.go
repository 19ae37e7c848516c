package order

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an order code or id resolves to nothing.
// Transition attempts on unknown codes surface it as a hard error.
var ErrNotFound = errors.New("order: not found")

// ErrAmountMismatch is returned when a callback's reported amount disagrees
// with the recorded order total. It is distinct from signature failure but
// has the same effect: no state change.
var ErrAmountMismatch = errors.New("order: callback amount does not match order total")

// Order is a customer's full purchase.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	UserID        uuid.UUID       `json:"userId"`
	CustomerEmail string          `json:"-"`
	Status        Status          `json:"status"`
	Channel       PaymentChannel  `json:"paymentChannel,omitempty"`
	TotalAmount   int64           `json:"totalAmount"` // whole VND
	Currency      string          `json:"currency"`
	GatewayTxnID  string          `json:"gatewayTxnId,omitempty"`
	ShippingAddr  json.RawMessage `json:"shippingAddress,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// Item is a single line of an order, priced at checkout time.
type Item struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Qty       int32     `json:"qty"`
	UnitPrice int64     `json:"unitPrice"`
}
