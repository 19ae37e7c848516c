package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists carts in PostgreSQL. A cart row belongs to either a user
// or a guest token; the schema enforces exactly one.
type Store struct {
	Pool *pgxpool.Pool
}

func (s *Store) getOrCreate(ctx context.Context, owner Owner) (uuid.UUID, error) {
	var id uuid.UUID
	var err error
	if owner.IsGuest() {
		err = s.Pool.QueryRow(ctx, `INSERT INTO carts (guest_token) VALUES ($1)
			ON CONFLICT (guest_token) DO UPDATE SET updated_at = now()
			RETURNING id`, owner.GuestToken).Scan(&id)
	} else {
		err = s.Pool.QueryRow(ctx, `INSERT INTO carts (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
			RETURNING id`, owner.UserID).Scan(&id)
	}
	return id, err
}

func (s *Store) find(ctx context.Context, owner Owner) (uuid.UUID, time.Time, error) {
	var id uuid.UUID
	var updatedAt time.Time
	var err error
	if owner.IsGuest() {
		err = s.Pool.QueryRow(ctx, `SELECT id, updated_at FROM carts WHERE guest_token = $1`,
			owner.GuestToken).Scan(&id, &updatedAt)
	} else {
		err = s.Pool.QueryRow(ctx, `SELECT id, updated_at FROM carts WHERE user_id = $1`,
			owner.UserID).Scan(&id, &updatedAt)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, ErrNotFound
	}
	return id, updatedAt, err
}

// AddItem upserts a cart line, accumulating quantity on repeat adds.
func (s *Store) AddItem(ctx context.Context, owner Owner, productID uuid.UUID, qty int32) error {
	cartID, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `INSERT INTO cart_items (cart_id, product_id, qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty`,
		cartID, productID, qty)
	return err
}

// SetItemQty replaces a line's quantity; zero removes the line.
func (s *Store) SetItemQty(ctx context.Context, owner Owner, productID uuid.UUID, qty int32) error {
	cartID, _, err := s.find(ctx, owner)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return s.removeLine(ctx, cartID, productID)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE cart_items SET qty = $3
		WHERE cart_id = $1 AND product_id = $2`, cartID, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) error {
	cartID, _, err := s.find(ctx, owner)
	if err != nil {
		return err
	}
	return s.removeLine(ctx, cartID, productID)
}

func (s *Store) removeLine(ctx context.Context, cartID, productID uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads the cart with lines priced from the live catalog. A missing cart
// reads as empty.
func (s *Store) Get(ctx context.Context, owner Owner) (Cart, error) {
	cartID, updatedAt, err := s.find(ctx, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{Items: []Line{}}, nil
		}
		return Cart{}, err
	}

	rows, err := s.Pool.Query(ctx, `SELECT i.product_id, p.name, p.slug, p.price, i.qty,
			p.published AND p.stock >= i.qty
		FROM cart_items i JOIN products p ON p.id = i.product_id
		WHERE i.cart_id = $1 ORDER BY p.name`, cartID)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()

	c := Cart{ID: cartID, Items: []Line{}, UpdatedAt: updatedAt}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Slug, &l.UnitPrice, &l.Qty, &l.InStock); err != nil {
			return Cart{}, err
		}
		l.LineTotal = l.UnitPrice * int64(l.Qty)
		c.Subtotal += l.LineTotal
		c.Items = append(c.Items, l)
	}
	return c, rows.Err()
}

// Clear drops every line, keeping the cart row.
func (s *Store) Clear(ctx context.Context, owner Owner) error {
	cartID, _, err := s.find(ctx, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = s.Pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

// ClearTx clears the user's cart inside the caller's transaction. Checkout
// uses it so the cart empties atomically with order creation.
func (s *Store) ClearTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`, userID)
	return err
}

// MergeGuest folds a guest cart into the user's cart, summing quantities on
// shared products, and deletes the guest cart.
func (s *Store) MergeGuest(ctx context.Context, guestToken string, userID uuid.UUID) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var guestCartID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE guest_token = $1`, guestToken).Scan(&guestCartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil // nothing to merge
	}
	if err != nil {
		return err
	}

	var userCartID uuid.UUID
	if err := tx.QueryRow(ctx, `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id`, userID).Scan(&userCartID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO cart_items (cart_id, product_id, qty)
		SELECT $1, product_id, qty FROM cart_items WHERE cart_id = $2
		ON CONFLICT (cart_id, product_id) DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty`,
		userCartID, guestCartID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guestCartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
