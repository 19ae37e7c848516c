package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a profile or address lookup misses.
var ErrNotFound = errors.New("user: not found")

// Profile is the account view a customer manages themselves.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Address is a saved delivery address.
type Address struct {
	ID           uuid.UUID `json:"id"`
	ReceiverName string    `json:"receiverName"`
	Phone        string    `json:"phone"`
	Country      string    `json:"country"`
	Province     string    `json:"province,omitempty"`
	City         string    `json:"city"`
	AddressLine  string    `json:"addressLine"`
	IsDefault    bool      `json:"isDefault"`
}

// Store persists profiles and addresses in PostgreSQL.
type Store struct {
	Pool *pgxpool.Pool
}

func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	var p Profile
	err := s.Pool.QueryRow(ctx, `SELECT id, name, email, COALESCE(phone, ''), created_at
		FROM users WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (Profile, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET name = $2, phone = NULLIF($3, ''), updated_at = now()
		WHERE id = $1`, id, name, phone)
	if err != nil {
		return Profile{}, err
	}
	if tag.RowsAffected() == 0 {
		return Profile{}, ErrNotFound
	}
	return s.GetProfile(ctx, id)
}

// EmailByID feeds the checkout confirmation event.
func (s *Store) EmailByID(ctx context.Context, id uuid.UUID) (string, error) {
	var email string
	err := s.Pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, id).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return email, nil
}

func (s *Store) ListAddresses(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, receiver_name, phone, country, COALESCE(province, ''),
			city, address_line, is_default
		FROM user_addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	addrs := []Address{}
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.ReceiverName, &a.Phone, &a.Country, &a.Province,
			&a.City, &a.AddressLine, &a.IsDefault); err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

// CreateAddress saves a new address; marking it default clears the previous
// default in the same transaction.
func (s *Store) CreateAddress(ctx context.Context, userID uuid.UUID, a Address) (Address, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Address{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if a.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE user_addresses SET is_default = false
			WHERE user_id = $1 AND is_default`, userID); err != nil {
			return Address{}, err
		}
	}
	err = tx.QueryRow(ctx, `INSERT INTO user_addresses
		(user_id, receiver_name, phone, country, province, city, address_line, is_default)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING id`,
		userID, a.ReceiverName, a.Phone, a.Country, a.Province, a.City, a.AddressLine, a.IsDefault).
		Scan(&a.ID)
	if err != nil {
		return Address{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Address{}, err
	}
	return a, nil
}

func (s *Store) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM user_addresses WHERE id = $1 AND user_id = $2`,
		addressID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
