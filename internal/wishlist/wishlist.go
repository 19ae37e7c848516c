package wishlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a wishlist entry does not exist.
var ErrNotFound = errors.New("wishlist: not found")

// Entry is one saved product.
type Entry struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Price     int64     `json:"price"`
	InStock   bool      `json:"inStock"`
	AddedAt   time.Time `json:"addedAt"`
}

// Store persists wishlists in PostgreSQL, one row per (user, product).
type Store struct {
	Pool *pgxpool.Pool
}

// Add saves a product; repeat saves are silent no-ops.
func (s *Store) Add(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, productID)
	return err
}

func (s *Store) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM wishlist_items
		WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's saved products, most recent first.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	rows, err := s.Pool.Query(ctx, `SELECT w.product_id, p.name, p.slug, p.price,
			p.published AND p.stock > 0, w.created_at
		FROM wishlist_items w JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1 ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ProductID, &e.Name, &e.Slug, &e.Price, &e.InStock, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Contains reports whether the product is on the user's wishlist.
func (s *Store) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wishlist_items
		WHERE user_id = $1 AND product_id = $2)`, userID, productID).Scan(&exists)
	return exists, err
}
