package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists products in PostgreSQL. Search is a case-insensitive
// substring match over name and description; good enough for a catalog of
// this size, and it needs no extra infrastructure.
type Store struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, name, slug, COALESCE(description, ''), COALESCE(category, ''),
	price, stock, images, published, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category,
		&p.Price, &p.Stock, &p.Images, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1 AND published`, slug)
	return scanProduct(row)
}

// List returns a page of published products matching the filters, newest
// first, together with the total match count.
func (s *Store) List(ctx context.Context, p ListParams) ([]Product, int64, error) {
	pattern := likePattern(p.Query)
	category := strings.TrimSpace(p.Category)

	var total int64
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM products
		WHERE published
		  AND ($1 = '' OR name ILIKE $1 OR description ILIKE $1)
		  AND ($2 = '' OR category = $2)`, pattern, category).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE published
		  AND ($1 = '' OR name ILIKE $1 OR description ILIKE $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, pattern, category, p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, prod)
	}
	return items, total, rows.Err()
}

// ListAll is the admin view: every product, drafts included.
func (s *Store) ListAll(ctx context.Context, limit, offset int32) ([]Product, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *Store) Create(ctx context.Context, p Product) (Product, error) {
	row := s.Pool.QueryRow(ctx, `INSERT INTO products
		(name, slug, description, category, price, stock, images, published)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING `+productColumns,
		p.Name, p.Slug, p.Description, p.Category, p.Price, p.Stock, p.Images, p.Published)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, translateSlugConflict(err)
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, p Product) (Product, error) {
	row := s.Pool.QueryRow(ctx, `UPDATE products
		SET name = $2, slug = $3, description = NULLIF($4, ''), category = NULLIF($5, ''),
		    price = $6, stock = $7, images = $8, published = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Slug, p.Description, p.Category, p.Price, p.Stock, p.Images, p.Published)
	updated, err := scanProduct(row)
	if err != nil {
		return Product{}, translateSlugConflict(err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock reduces stock inside the caller's transaction and fails
// when the remaining quantity is insufficient.
func (s *Store) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int32) error {
	tag, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("catalog: insufficient stock")
	}
	return nil
}

func translateSlugConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlugTaken
	}
	return err
}

func likePattern(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(q) + "%"
}
