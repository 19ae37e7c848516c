package newsletter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Subscription states.
const (
	StatusPending      = "PENDING"
	StatusConfirmed    = "CONFIRMED"
	StatusUnsubscribed = "UNSUBSCRIBED"
)

// ErrNotFound is returned when a token or email resolves to nothing.
var ErrNotFound = errors.New("newsletter: not found")

// Subscriber is one mailing-list entry. Token doubles as the confirm and
// unsubscribe secret.
type Subscriber struct {
	ID          uuid.UUID
	Email       string
	Status      string
	Token       string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// Store persists subscribers in PostgreSQL.
type Store struct {
	Pool *pgxpool.Pool
}

// Upsert creates a pending subscription or refreshes the token of an
// existing non-confirmed one. Re-subscribing a confirmed address is a no-op
// that still returns the row.
func (s *Store) Upsert(ctx context.Context, email, token string) (Subscriber, error) {
	row := s.Pool.QueryRow(ctx, `INSERT INTO newsletter_subscribers (email, status, token)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			token = CASE WHEN newsletter_subscribers.status = $4 THEN newsletter_subscribers.token ELSE EXCLUDED.token END,
			status = CASE WHEN newsletter_subscribers.status = $4 THEN $4 ELSE $2 END
		RETURNING id, email, status, token, created_at, confirmed_at`,
		email, StatusPending, token, StatusConfirmed)
	return scanSubscriber(row)
}

func (s *Store) GetByToken(ctx context.Context, token string) (Subscriber, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, email, status, token, created_at, confirmed_at
		FROM newsletter_subscribers WHERE token = $1`, token)
	return scanSubscriber(row)
}

func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	var confirmedAt any
	if status == StatusConfirmed {
		confirmedAt = time.Now().UTC()
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE newsletter_subscribers
		SET status = $2, confirmed_at = COALESCE($3, confirmed_at) WHERE id = $1`,
		id, status, confirmedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConfirmedEmails feeds broadcast campaigns.
func (s *Store) ListConfirmedEmails(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT email FROM newsletter_subscribers
		WHERE status = $1 ORDER BY email`, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func scanSubscriber(row pgx.Row) (Subscriber, error) {
	var sub Subscriber
	err := row.Scan(&sub.ID, &sub.Email, &sub.Status, &sub.Token, &sub.CreatedAt, &sub.ConfirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscriber{}, ErrNotFound
		}
		return Subscriber{}, err
	}
	return sub, nil
}
