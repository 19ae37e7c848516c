package newsletter

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-bazuuyu/internal/notify"
)

type memRepo struct {
	byEmail map[string]*Subscriber
}

func newMemRepo() *memRepo {
	return &memRepo{byEmail: make(map[string]*Subscriber)}
}

func (m *memRepo) Upsert(_ context.Context, email, token string) (Subscriber, error) {
	if sub, ok := m.byEmail[email]; ok {
		if sub.Status != StatusConfirmed {
			sub.Token = token
			sub.Status = StatusPending
		}
		return *sub, nil
	}
	sub := &Subscriber{ID: uuid.New(), Email: email, Status: StatusPending, Token: token, CreatedAt: time.Now()}
	m.byEmail[email] = sub
	return *sub, nil
}

func (m *memRepo) GetByToken(_ context.Context, token string) (Subscriber, error) {
	for _, sub := range m.byEmail {
		if sub.Token == token {
			return *sub, nil
		}
	}
	return Subscriber{}, ErrNotFound
}

func (m *memRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	for _, sub := range m.byEmail {
		if sub.ID == id {
			sub.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRepo) ListConfirmedEmails(_ context.Context) ([]string, error) {
	var out []string
	for _, sub := range m.byEmail {
		if sub.Status == StatusConfirmed {
			out = append(out, sub.Email)
		}
	}
	return out, nil
}

type memQueue struct {
	sent []notify.EmailPayload
}

func (m *memQueue) EnqueueEmail(_ context.Context, p notify.EmailPayload) error {
	m.sent = append(m.sent, p)
	return nil
}

func newTestService() (*Service, *memRepo, *memQueue) {
	repo := newMemRepo()
	q := &memQueue{}
	return &Service{Repo: repo, Queue: q, BaseURL: "https://shop.example.com", Logger: zerolog.Nop()}, repo, q
}

func TestSubscribeConfirmFlow(t *testing.T) {
	svc, repo, q := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, " Buyer@Example.com "))
	require.Len(t, q.sent, 1)
	require.Equal(t, "buyer@example.com", q.sent[0].To)
	require.Contains(t, q.sent[0].HTML, "/newsletter/confirm?token=")

	token := repo.byEmail["buyer@example.com"].Token
	require.NoError(t, svc.Confirm(ctx, token))
	require.Equal(t, StatusConfirmed, repo.byEmail["buyer@example.com"].Status)

	// Confirming twice is harmless.
	require.NoError(t, svc.Confirm(ctx, token))

	emails, err := repo.ListConfirmedEmails(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"buyer@example.com"}, emails)
}

func TestSubscribeConfirmedAddressSendsNothing(t *testing.T) {
	svc, repo, q := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "buyer@example.com"))
	require.NoError(t, svc.Confirm(ctx, repo.byEmail["buyer@example.com"].Token))
	require.Len(t, q.sent, 1)

	require.NoError(t, svc.Subscribe(ctx, "buyer@example.com"))
	require.Len(t, q.sent, 1, "confirmed subscriber gets no second confirmation email")
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	svc, _, _ := newTestService()
	require.Error(t, svc.Subscribe(context.Background(), "not-an-email"))
	require.Error(t, svc.Subscribe(context.Background(), ""))
}

func TestUnsubscribe(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "buyer@example.com"))
	token := repo.byEmail["buyer@example.com"].Token
	require.NoError(t, svc.Confirm(ctx, token))

	require.NoError(t, svc.Unsubscribe(ctx, token))
	require.Equal(t, StatusUnsubscribed, repo.byEmail["buyer@example.com"].Status)

	emails, err := repo.ListConfirmedEmails(ctx)
	require.NoError(t, err)
	require.Empty(t, emails)

	require.Error(t, svc.Unsubscribe(ctx, "bogus"))
}
