package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound covers every lookup miss in this package. Callers translate it
// into a deliberately vague credential error.
var ErrNotFound = errors.New("auth: not found")

// ErrEmailTaken is returned when registration hits the unique email index.
var ErrEmailTaken = errors.New("auth: email is already registered")

// Credential is a user row as the auth flows see it, password hash included.
type Credential struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is one refresh-token session. TokenHash is the SHA-256 of the
// opaque token; the raw value never touches the database.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	UserAgent string
	IP        string
	ExpiresAt time.Time
}

// PasswordReset is a single-use reset token.
type PasswordReset struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Store is the persistence surface the auth service needs.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (Credential, error)
	GetUserByEmail(ctx context.Context, email string) (Credential, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (Credential, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	CreateSession(ctx context.Context, s Session) error
	GetSessionByToken(ctx context.Context, tokenHash string) (Session, error)
	RotateSession(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	DeleteSessionByToken(ctx context.Context, tokenHash string) error
	DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error

	CreatePasswordReset(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetPasswordResetByToken(ctx context.Context, token string) (PasswordReset, error)
	ConsumePasswordReset(ctx context.Context, token string) error
	DeletePasswordResetsByUser(ctx context.Context, userID uuid.UUID) error
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) CreateUser(ctx context.Context, name, email, passwordHash string) (Credential, error) {
	row := s.Pool.QueryRow(ctx, `INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, password_hash, roles, created_at, updated_at`,
		name, email, passwordHash)
	c, err := scanCredential(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Credential{}, ErrEmailTaken
		}
		return Credential{}, err
	}
	return c, nil
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (Credential, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, name, email, password_hash, roles, created_at, updated_at
		FROM users WHERE email = $1`, email)
	return scanCredential(row)
}

func (s *PGStore) GetUserByID(ctx context.Context, id uuid.UUID) (Credential, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, name, email, password_hash, roles, created_at, updated_at
		FROM users WHERE id = $1`, id)
	return scanCredential(row)
}

func (s *PGStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO sessions (user_id, refresh_token, user_agent, ip, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)`,
		sess.UserID, sess.TokenHash, sess.UserAgent, sess.IP, sess.ExpiresAt)
	return err
}

func (s *PGStore) GetSessionByToken(ctx context.Context, tokenHash string) (Session, error) {
	var sess Session
	var userAgent, ip *string
	err := s.Pool.QueryRow(ctx, `SELECT id, user_id, refresh_token, user_agent, ip, expires_at
		FROM sessions WHERE refresh_token = $1`, tokenHash).
		Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &userAgent, &ip, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if userAgent != nil {
		sess.UserAgent = *userAgent
	}
	if ip != nil {
		sess.IP = *ip
	}
	return sess, nil
}

func (s *PGStore) RotateSession(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE sessions SET refresh_token = $2, expires_at = $3 WHERE id = $1`,
		id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteSessionByToken(ctx context.Context, tokenHash string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, tokenHash)
	return err
}

func (s *PGStore) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *PGStore) CreatePasswordReset(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO password_resets (user_id, token, expires_at)
		VALUES ($1, $2, $3)`, userID, token, expiresAt)
	return err
}

func (s *PGStore) GetPasswordResetByToken(ctx context.Context, token string) (PasswordReset, error) {
	var pr PasswordReset
	err := s.Pool.QueryRow(ctx, `SELECT id, user_id, token, expires_at, used_at
		FROM password_resets WHERE token = $1`, token).
		Scan(&pr.ID, &pr.UserID, &pr.Token, &pr.ExpiresAt, &pr.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PasswordReset{}, ErrNotFound
		}
		return PasswordReset{}, err
	}
	return pr, nil
}

func (s *PGStore) ConsumePasswordReset(ctx context.Context, token string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE password_resets SET used_at = now() WHERE token = $1`, token)
	return err
}

func (s *PGStore) DeletePasswordResetsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID)
	return err
}

func scanCredential(row pgx.Row) (Credential, error) {
	var c Credential
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Roles, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, err
	}
	return c, nil
}
