package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists orders in PostgreSQL.
type Store struct {
	Pool *pgxpool.Pool
}

const orderColumns = `o.id, o.code, o.user_id, u.email, o.status, COALESCE(o.payment_channel, ''),
	o.total_amount, o.currency, COALESCE(o.gateway_txn_id, ''), o.shipping_address, o.created_at, o.paid_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var channel, status string
	err := row.Scan(&o.ID, &o.Code, &o.UserID, &o.CustomerEmail, &status, &channel,
		&o.TotalAmount, &o.Currency, &o.GatewayTxnID, &o.ShippingAddr, &o.CreatedAt, &o.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.Status = Status(status)
	o.Channel = PaymentChannel(channel)
	return o, nil
}

// GetByCode fetches one order by its unique merchant code.
func (s *Store) GetByCode(ctx context.Context, code string) (Order, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id WHERE o.code = $1`, code)
	return scanOrder(row)
}

// GetForUser fetches an order by id scoped to its owner.
func (s *Store) GetForUser(ctx context.Context, id, userID uuid.UUID) (Order, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id WHERE o.id = $1 AND o.user_id = $2`, id, userID)
	return scanOrder(row)
}

// ListByUser returns a page of the user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1 ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListAll returns a page of every order, newest first, optionally filtered by status.
func (s *Store) ListAll(ctx context.Context, status *Status, limit, offset int32) ([]Order, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE ($1::text IS NULL OR o.status = $1)
		ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`, statusArg(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func statusArg(status *Status) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListItems returns the order's line items.
func (s *Store) ListItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := s.Pool.Query(ctx, `SELECT i.id, i.product_id, p.name, i.qty, i.unit_price
		FROM order_items i JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1 ORDER BY p.name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Name, &it.Qty, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Create inserts the order and its items inside the caller's transaction.
func (s *Store) Create(ctx context.Context, tx pgx.Tx, o Order, items []Item) (Order, error) {
	row := tx.QueryRow(ctx, `INSERT INTO orders
		(code, user_id, status, payment_channel, total_amount, currency, shipping_address)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING id, created_at`,
		o.Code, o.UserID, string(o.Status), string(o.Channel), o.TotalAmount, o.Currency, o.ShippingAddr)
	if err := row.Scan(&o.ID, &o.CreatedAt); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	for _, it := range items {
		if _, err := tx.Exec(ctx, `INSERT INTO order_items (order_id, product_id, qty, unit_price)
			VALUES ($1, $2, $3, $4)`, o.ID, it.ProductID, it.Qty, it.UnitPrice); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	return o, nil
}

// Transition loads the order by code under a row lock, applies fn, and
// persists the mutation when fn reports a change. Racing callbacks for the
// same code serialize here; only the first applies side-effecting work.
func (s *Store) Transition(ctx context.Context, code string, fn func(*Order) (bool, error)) (Order, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.code = $1 FOR UPDATE OF o`, code)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	changed, err := fn(&o)
	if err != nil {
		return Order{}, err
	}
	if changed {
		if _, err := tx.Exec(ctx, `UPDATE orders
			SET status = $2, payment_channel = NULLIF($3, ''), gateway_txn_id = NULLIF($4, ''),
			    paid_at = $5, updated_at = now()
			WHERE id = $1`,
			o.ID, string(o.Status), string(o.Channel), o.GatewayTxnID, o.PaidAt); err != nil {
			return Order{}, fmt.Errorf("update order %s: %w", code, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// SetStatus force-sets a status by order id. Admin escape hatch; the payment
// flow itself always goes through Transition.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
