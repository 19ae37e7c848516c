package newsletter

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
	"github.com/noah-isme/backend-bazuuyu/internal/notify"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Upsert(ctx context.Context, email, token string) (Subscriber, error)
	GetByToken(ctx context.Context, token string) (Subscriber, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	ListConfirmedEmails(ctx context.Context) ([]string, error)
}

// Service implements double-opt-in subscriptions and admin broadcasts.
type Service struct {
	Repo    Repository
	Queue   notify.EmailQueue
	BaseURL string
	Logger  zerolog.Logger
}

// Subscribe records a pending subscription and queues the confirmation
// email. Confirmed addresses are left untouched.
func (s *Service) Subscribe(ctx context.Context, email string) error {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(normalized); err != nil {
		return common.NewAppError("VALIDATION_ERROR", "email looks invalid", http.StatusBadRequest, err)
	}

	token, err := newToken()
	if err != nil {
		return err
	}
	sub, err := s.Repo.Upsert(ctx, normalized, token)
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	if sub.Status == StatusConfirmed {
		return nil
	}

	link := s.link("confirm", sub.Token)
	if err := s.Queue.EnqueueEmail(ctx, notify.EmailPayload{
		To:      sub.Email,
		Subject: "Confirm your newsletter subscription",
		HTML:    `<p>Click to confirm your subscription: <a href="` + link + `">` + link + `</a></p>`,
	}); err != nil {
		s.Logger.Error().Err(err).Str("email", sub.Email).Msg("queue confirmation email")
	}
	return nil
}

// Confirm flips a pending subscription to confirmed.
func (s *Service) Confirm(ctx context.Context, token string) error {
	sub, err := s.Repo.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return common.NewAppError("INVALID_TOKEN", "invalid or expired token", http.StatusBadRequest, err)
	}
	if sub.Status == StatusConfirmed {
		return nil
	}
	return s.Repo.SetStatus(ctx, sub.ID, StatusConfirmed)
}

// Unsubscribe deactivates the subscription behind the token.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	sub, err := s.Repo.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return common.NewAppError("INVALID_TOKEN", "invalid or expired token", http.StatusBadRequest, err)
	}
	if sub.Status == StatusUnsubscribed {
		return nil
	}
	return s.Repo.SetStatus(ctx, sub.ID, StatusUnsubscribed)
}

func (s *Service) link(action, token string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/newsletter/" + action + "?token=" + token
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
