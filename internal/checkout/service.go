package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bazuuyu/internal/cart"
	"github.com/noah-isme/backend-bazuuyu/internal/catalog"
	"github.com/noah-isme/backend-bazuuyu/internal/common"
	"github.com/noah-isme/backend-bazuuyu/internal/events"
	"github.com/noah-isme/backend-bazuuyu/internal/order"
)

// Address is the delivery address captured at checkout.
type Address struct {
	ReceiverName string `json:"receiverName" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Country      string `json:"country"`
	Province     string `json:"province"`
	City         string `json:"city" validate:"required"`
	AddressLine  string `json:"addressLine" validate:"required"`
}

// Input is the checkout request.
type Input struct {
	Channel string  `json:"paymentChannel" validate:"required"`
	Address Address `json:"address" validate:"required"`
	Notes   string  `json:"notes"`
}

// Service turns the authenticated user's cart into an order inside one
// transaction: stock is decremented, the order and its lines are written,
// and the cart is emptied. Nothing survives a failed step.
type Service struct {
	Pool     *pgxpool.Pool
	Carts    *cart.Store
	Products *catalog.Store
	Orders   *order.Store
	OrderSvc *order.Service
	Events   *events.Bus
	Currency string
	Logger   zerolog.Logger
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, email string, in Input) (order.Order, error) {
	channel, err := order.ParseChannel(in.Channel)
	if err != nil {
		return order.Order{}, common.NewAppError("VALIDATION_ERROR", err.Error(), http.StatusBadRequest, err)
	}
	addr, err := NormalizeAddress(in.Address)
	if err != nil {
		return order.Order{}, err
	}

	c, err := s.Carts.Get(ctx, cart.Owner{UserID: userID})
	if err != nil {
		return order.Order{}, err
	}
	if len(c.Items) == 0 {
		return order.Order{}, common.NewAppError("CART_EMPTY", "cart has no items", http.StatusBadRequest, nil)
	}
	for _, line := range c.Items {
		if !line.InStock {
			return order.Order{}, common.NewAppError("OUT_OF_STOCK",
				fmt.Sprintf("%s is no longer available in the requested quantity", line.Name), http.StatusConflict, nil)
		}
	}

	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return order.Order{}, err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return order.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	items := make([]order.Item, 0, len(c.Items))
	for _, line := range c.Items {
		if err := s.Products.DecrementStock(ctx, tx, line.ProductID, line.Qty); err != nil {
			return order.Order{}, common.NewAppError("OUT_OF_STOCK",
				fmt.Sprintf("%s sold out while checking out", line.Name), http.StatusConflict, err)
		}
		items = append(items, order.Item{
			ProductID: line.ProductID,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
		})
	}

	o := order.Order{
		Code:         NewOrderCode(),
		UserID:       userID,
		Status:       order.StatusCreated,
		Channel:      channel,
		TotalAmount:  c.Subtotal,
		Currency:     s.Currency,
		ShippingAddr: addrJSON,
	}
	created, err := s.Orders.Create(ctx, tx, o, items)
	if err != nil {
		return order.Order{}, err
	}
	if err := s.Carts.ClearTx(ctx, tx, userID); err != nil {
		return order.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return order.Order{}, err
	}
	created.CustomerEmail = email

	s.emitCreated(ctx, created)

	// COD orders skip the gateway entirely.
	if channel == order.ChannelCOD {
		placed, err := s.OrderSvc.MarkCodPending(ctx, created.Code)
		if err != nil {
			s.Logger.Error().Err(err).Str("order_code", created.Code).Msg("mark cod pending failed")
			return created, nil
		}
		return placed, nil
	}
	return created, nil
}

func (s *Service) emitCreated(ctx context.Context, o order.Order) {
	if s.Events == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"orderId":       o.ID,
		"code":          o.Code,
		"customerEmail": o.CustomerEmail,
		"totalAmount":   o.TotalAmount,
		"currency":      o.Currency,
		"status":        o.Status,
	})
	if err != nil {
		s.Logger.Error().Err(err).Msg("marshal order created payload")
		return
	}
	if err := s.Events.Emit(ctx, events.TopicOrderCreated, o.ID, payload); err != nil {
		s.Logger.Error().Err(err).Str("order_code", o.Code).Msg("emit order created")
	}
}

// NewOrderCode derives a short human-referencable code: the first ten hex
// characters of a fresh UUID, uppercased. Collisions bounce off the unique
// index and surface as an error the customer can retry.
func NewOrderCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:10])
}

// NormalizeAddress validates the address and applies local conventions:
// country defaults to VN and +84 numbers are rewritten to leading-zero form.
func NormalizeAddress(a Address) (Address, error) {
	a.ReceiverName = strings.TrimSpace(a.ReceiverName)
	a.City = strings.TrimSpace(a.City)
	a.AddressLine = strings.TrimSpace(a.AddressLine)
	a.Province = strings.TrimSpace(a.Province)
	if a.ReceiverName == "" || a.City == "" || a.AddressLine == "" {
		return Address{}, common.NewAppError("VALIDATION_ERROR",
			"receiverName, city and addressLine are required", http.StatusBadRequest, nil)
	}
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "VN"
	}
	phone, err := NormalizePhone(a.Phone)
	if err != nil {
		return Address{}, err
	}
	a.Phone = phone
	return a, nil
}

// NormalizePhone strips formatting and rewrites the +84 country prefix to a
// leading zero. Anything that is not 9-11 digits afterwards is rejected.
func NormalizePhone(phone string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
	if strings.HasPrefix(cleaned, "+84") {
		cleaned = "0" + cleaned[3:]
	}
	if len(cleaned) < 9 || len(cleaned) > 11 {
		return "", common.NewAppError("VALIDATION_ERROR", "phone number looks invalid", http.StatusBadRequest, nil)
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", common.NewAppError("VALIDATION_ERROR", "phone number looks invalid", http.StatusBadRequest, nil)
		}
	}
	return cleaned, nil
}
