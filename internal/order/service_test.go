package order

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-bazuuyu/internal/events"
)

// memRepo keeps orders in a map. Transition mirrors the row-locked store:
// load, apply, write back on change.
type memRepo struct {
	orders map[string]Order
}

func newMemRepo(orders ...Order) *memRepo {
	r := &memRepo{orders: make(map[string]Order)}
	for _, o := range orders {
		r.orders[o.Code] = o
	}
	return r
}

func (r *memRepo) GetByCode(_ context.Context, code string) (Order, error) {
	o, ok := r.orders[code]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *memRepo) GetForUser(_ context.Context, id, userID uuid.UUID) (Order, error) {
	for _, o := range r.orders {
		if o.ID == id && o.UserID == userID {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *memRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int32) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memRepo) ListAll(_ context.Context, status *Status, _, _ int32) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if status == nil || o.Status == *status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memRepo) ListItems(_ context.Context, _ uuid.UUID) ([]Item, error) {
	return nil, nil
}

func (r *memRepo) Transition(_ context.Context, code string, fn func(*Order) (bool, error)) (Order, error) {
	o, ok := r.orders[code]
	if !ok {
		return Order{}, ErrNotFound
	}
	changed, err := fn(&o)
	if err != nil {
		return Order{}, err
	}
	if changed {
		r.orders[code] = o
	}
	return o, nil
}

type countingStore struct {
	byTopic map[string]int
}

func (c *countingStore) InsertDomainEvent(_ context.Context, ev events.DomainEvent) error {
	if c.byTopic == nil {
		c.byTopic = make(map[string]int)
	}
	c.byTopic[ev.Topic]++
	return nil
}

func newTestService(repo Repository, store events.Store) *Service {
	bus := events.NewBus(store, zerolog.Nop())
	svc := NewService(repo, bus, zerolog.Nop())
	svc.Now = func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }
	return svc
}

func created(code string, total int64) Order {
	return Order{
		ID:          uuid.New(),
		Code:        code,
		UserID:      uuid.New(),
		Status:      StatusCreated,
		TotalAmount: total,
		Currency:    "VND",
	}
}

func TestGatewayLifecycleIdempotent(t *testing.T) {
	repo := newMemRepo(created("X", 150000))
	store := &countingStore{}
	svc := newTestService(repo, store)
	ctx := context.Background()

	o, err := svc.MarkAwaitingPayment(ctx, "X", ChannelVNPayDomestic)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingPayment, o.Status)
	require.Equal(t, ChannelVNPayDomestic, o.Channel)

	o, err = svc.MarkPaidByGateway(ctx, "X", "TXN1", 150000)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, o.Status)
	require.Equal(t, "TXN1", o.GatewayTxnID)
	require.NotNil(t, o.PaidAt)

	// Re-delivered callback: success, but nothing changes and the captured
	// event is not emitted again.
	o, err = svc.MarkPaidByGateway(ctx, "X", "TXN2", 150000)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, o.Status)
	require.Equal(t, "TXN1", o.GatewayTxnID)
	require.Equal(t, 1, store.byTopic[events.TopicOrderPaid])
}

func TestMarkAwaitingPaymentRepeatIsNoop(t *testing.T) {
	repo := newMemRepo(created("Y", 50000))
	svc := newTestService(repo, &countingStore{})
	ctx := context.Background()

	_, err := svc.MarkAwaitingPayment(ctx, "Y", ChannelVNPayQR)
	require.NoError(t, err)

	o, err := svc.MarkAwaitingPayment(ctx, "Y", ChannelVNPayIntl)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingPayment, o.Status)
	require.Equal(t, ChannelVNPayQR, o.Channel, "repeat redirect must not rewrite the channel")
}

func TestMarkPaidByGatewayAmountMismatch(t *testing.T) {
	repo := newMemRepo(created("Z", 99000))
	store := &countingStore{}
	svc := newTestService(repo, store)

	_, err := svc.MarkPaidByGateway(context.Background(), "Z", "TXN9", 1000)
	require.ErrorIs(t, err, ErrAmountMismatch)

	o, err := svc.GetByCode(context.Background(), "Z")
	require.NoError(t, err)
	require.Equal(t, StatusCreated, o.Status)
	require.Zero(t, store.byTopic[events.TopicOrderPaid])
}

func TestMarkPaidByGatewayUnknownCode(t *testing.T) {
	svc := newTestService(newMemRepo(), &countingStore{})

	_, err := svc.MarkPaidByGateway(context.Background(), "MISSING", "TXN1", 1000)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCodLifecycle(t *testing.T) {
	repo := newMemRepo(created("C", 80000))
	store := &countingStore{}
	svc := newTestService(repo, store)
	ctx := context.Background()

	o, err := svc.MarkCodPending(ctx, "C")
	require.NoError(t, err)
	require.Equal(t, StatusCodPending, o.Status)
	require.Equal(t, ChannelCOD, o.Channel)

	o, err = svc.MarkCodCollected(ctx, "C")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, o.Status)
	require.NotNil(t, o.PaidAt)
	require.Equal(t, 1, store.byTopic[events.TopicOrderPaid])

	// Second confirmation is an accepted no-op.
	o, err = svc.MarkCodCollected(ctx, "C")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, o.Status)
	require.Equal(t, 1, store.byTopic[events.TopicOrderPaid])
}

func TestMarkCodCollectedRequiresCodPending(t *testing.T) {
	repo := newMemRepo(created("D", 80000))
	svc := newTestService(repo, &countingStore{})

	_, err := svc.MarkCodCollected(context.Background(), "D")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StatusCreated, invalid.From)
}

func TestEmitPayloadShape(t *testing.T) {
	repo := newMemRepo(Order{
		ID: uuid.New(), Code: "P", UserID: uuid.New(), CustomerEmail: "buyer@example.com",
		Status: StatusAwaitingPayment, TotalAmount: 120000, Currency: "VND",
	})

	var captured json.RawMessage
	store := captureStore{fn: func(ev events.DomainEvent) { captured = ev.Payload }}
	svc := newTestService(repo, store)

	_, err := svc.MarkPaidByGateway(context.Background(), "P", "TXN5", 120000)
	require.NoError(t, err)
	require.NotNil(t, captured)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	require.Equal(t, "P", body["code"])
	require.Equal(t, "buyer@example.com", body["customerEmail"])
	require.Equal(t, "TXN5", body["gatewayTxnId"])
}

type captureStore struct {
	fn func(events.DomainEvent)
}

func (c captureStore) InsertDomainEvent(_ context.Context, ev events.DomainEvent) error {
	c.fn(ev)
	return nil
}
