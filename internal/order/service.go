package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bazuuyu/internal/events"
	"github.com/noah-isme/backend-bazuuyu/internal/obs"
)

// Repository is the persistence surface the service needs. *Store satisfies
// it; tests swap in an in-memory stub.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Order, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error)
	ListAll(ctx context.Context, status *Status, limit, offset int32) ([]Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]Item, error)
	Transition(ctx context.Context, code string, fn func(*Order) (bool, error)) (Order, error)
}

// Service owns order payment state. All status changes funnel through
// Decide, so a rejected transition can never reach the database.
type Service struct {
	Repo   Repository
	Events *events.Bus
	Logger zerolog.Logger

	// Now is swappable in tests.
	Now func() time.Time
}

func NewService(repo Repository, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{Repo: repo, Events: bus, Logger: logger, Now: time.Now}
}

func (s *Service) GetByCode(ctx context.Context, code string) (Order, error) {
	return s.Repo.GetByCode(ctx, code)
}

func (s *Service) GetForUser(ctx context.Context, id, userID uuid.UUID) (Order, []Item, error) {
	o, err := s.Repo.GetForUser(ctx, id, userID)
	if err != nil {
		return Order{}, nil, err
	}
	items, err := s.Repo.ListItems(ctx, o.ID)
	if err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, status *Status, limit, offset int32) ([]Order, error) {
	return s.Repo.ListAll(ctx, status, limit, offset)
}

// MarkAwaitingPayment records that the customer was redirected to the
// gateway. Repeat calls on an order already past CREATED are no-ops, so
// refreshing the payment page never corrupts state.
func (s *Service) MarkAwaitingPayment(ctx context.Context, code string, channel PaymentChannel) (Order, error) {
	return s.transition(ctx, code, EventGatewayRedirect, func(o *Order) error {
		o.Channel = channel
		return nil
	})
}

// MarkCodPending pins the order to cash-on-delivery.
func (s *Service) MarkCodPending(ctx context.Context, code string) (Order, error) {
	return s.transition(ctx, code, EventCodSelected, func(o *Order) error {
		o.Channel = ChannelCOD
		return nil
	})
}

// MarkPaidByGateway settles the order from a verified gateway callback.
// The transaction id is recorded exactly once: a second callback for an
// already-PAID order is answered as success but changes nothing, and the
// captured event fires only on the first application. amount is in whole
// currency units and must match the order total.
func (s *Service) MarkPaidByGateway(ctx context.Context, code, gatewayTxnID string, amount int64) (Order, error) {
	paid := false
	o, err := s.transitionTracked(ctx, code, EventGatewayPaid, func(o *Order) error {
		now := s.Now().UTC()
		o.GatewayTxnID = gatewayTxnID
		o.PaidAt = &now
		return nil
	}, &paid, func(o *Order) error {
		if amount != o.TotalAmount {
			return ErrAmountMismatch
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	if paid {
		s.emit(ctx, events.TopicOrderPaid, o)
	}
	return o, nil
}

// MarkCodCollected settles a cash-on-delivery order. Only valid from
// COD_PENDING; PAID is an idempotent no-op, anything else is rejected.
func (s *Service) MarkCodCollected(ctx context.Context, code string) (Order, error) {
	paid := false
	o, err := s.transitionTracked(ctx, code, EventCodCollected, func(o *Order) error {
		now := s.Now().UTC()
		o.PaidAt = &now
		return nil
	}, &paid)
	if err != nil {
		return Order{}, err
	}
	if paid {
		s.emit(ctx, events.TopicOrderPaid, o)
	}
	return o, nil
}

func (s *Service) transition(ctx context.Context, code string, ev Event, mutate func(*Order) error) (Order, error) {
	return s.transitionTracked(ctx, code, ev, mutate, nil)
}

// transitionTracked runs guards, then Decide, then the mutation, all inside
// the repository's row lock. ErrNoTransition collapses to a silent no-op.
func (s *Service) transitionTracked(ctx context.Context, code string, ev Event, mutate func(*Order) error, applied *bool, guards ...func(*Order) error) (Order, error) {
	return s.Repo.Transition(ctx, code, func(o *Order) (bool, error) {
		for _, guard := range guards {
			if err := guard(o); err != nil {
				return false, err
			}
		}
		from := o.Status
		next, err := Decide(o.Status, ev)
		if errors.Is(err, ErrNoTransition) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		o.Status = next
		if mutate != nil {
			if err := mutate(o); err != nil {
				return false, err
			}
		}
		obs.OrderTransitionTotal.WithLabelValues(string(from), string(next)).Inc()
		if applied != nil {
			*applied = true
		}
		return true, nil
	})
}

func (s *Service) emit(ctx context.Context, topic string, o Order) {
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
		"gatewayTxnId":  o.GatewayTxnID,
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Msg("marshal event payload")
		return
	}
	if err := s.Events.Emit(ctx, topic, o.ID, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Str("order_code", o.Code).Msg("emit event")
	}
}
