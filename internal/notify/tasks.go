package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeEmailDelivery is the asynq task type for outbound mail.
	TypeEmailDelivery = "email:deliver"
	// TypeNewsletterBroadcast fans a campaign out to confirmed subscribers.
	TypeNewsletterBroadcast = "newsletter:broadcast"
)

// EmailPayload is one message to deliver.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// BroadcastPayload is an admin-triggered campaign.
type BroadcastPayload struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Enqueuer pushes notification tasks onto the queue.
type Enqueuer struct {
	Client *asynq.Client
}

func (e *Enqueuer) EnqueueEmail(ctx context.Context, p EmailPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}
	task := asynq.NewTask(TypeEmailDelivery, body)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Queue("default"),
	)
	return err
}

func (e *Enqueuer) EnqueueBroadcast(ctx context.Context, p BroadcastPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal broadcast payload: %w", err)
	}
	task := asynq.NewTask(TypeNewsletterBroadcast, body)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("low"),
	)
	return err
}
