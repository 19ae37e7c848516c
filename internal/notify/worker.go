package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// SubscriberSource lists confirmed newsletter recipients.
type SubscriberSource interface {
	ListConfirmedEmails(ctx context.Context) ([]string, error)
}

// Worker executes queued notification tasks.
type Worker struct {
	Sender      common.EmailSender
	Subscribers SubscriberSource
	Logger      zerolog.Logger
}

// Register attaches the worker's handlers to an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEmailDelivery, w.HandleEmailDelivery)
	mux.HandleFunc(TypeNewsletterBroadcast, w.HandleNewsletterBroadcast)
}

func (w *Worker) HandleEmailDelivery(ctx context.Context, t *asynq.Task) error {
	var p EmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.Sender.Send(p.To, p.Subject, p.HTML); err != nil {
		return fmt.Errorf("send to %s: %w", p.To, err)
	}
	w.Logger.Info().Str("to", p.To).Str("subject", p.Subject).Msg("email delivered")
	return nil
}

// HandleNewsletterBroadcast delivers a campaign one recipient at a time. A
// failed recipient aborts the run and asynq retries the whole task; SMTP
// duplicate sends are acceptable for campaign mail.
func (w *Worker) HandleNewsletterBroadcast(ctx context.Context, t *asynq.Task) error {
	var p BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode broadcast task: %v: %w", err, asynq.SkipRetry)
	}
	emails, err := w.Subscribers.ListConfirmedEmails(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	for _, to := range emails {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Sender.Send(to, p.Subject, p.HTML); err != nil {
			return fmt.Errorf("send to %s: %w", to, err)
		}
	}
	w.Logger.Info().Int("recipients", len(emails)).Str("subject", p.Subject).Msg("broadcast delivered")
	return nil
}
