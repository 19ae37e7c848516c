package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bazuuyu/internal/events"
)

// EmailQueue is the slice of Enqueuer the notifier needs.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, p EmailPayload) error
}

// EmailNotifier turns domain events into queued email deliveries. It is the
// only notifier wired to the bus in production; everything it does is
// asynchronous, so a slow SMTP server never delays a payment callback.
type EmailNotifier struct {
	Enqueuer     EmailQueue
	Logger       zerolog.Logger
	OrdersInbox  string
	FinanceInbox string
}

func NewEmailNotifier(enq EmailQueue, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		Enqueuer:     enq,
		Logger:       logger,
		OrdersInbox:  "orders@yourbrand.com",
		FinanceInbox: "finance@yourbrand.com",
	}
}

type orderEventBody struct {
	Code          string `json:"code"`
	CustomerEmail string `json:"customerEmail"`
	TotalAmount   int64  `json:"totalAmount"`
	Currency      string `json:"currency"`
	GatewayTxnID  string `json:"gatewayTxnId"`
}

func (n *EmailNotifier) Notify(ctx context.Context, ev events.DomainEvent) error {
	var body orderEventBody
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &body); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Topic, err)
		}
	}
	switch ev.Topic {
	case events.TopicOrderCreated:
		return n.Enqueuer.EnqueueEmail(ctx, EmailPayload{
			To:      n.OrdersInbox,
			Subject: "New order " + body.Code,
			HTML: fmt.Sprintf("<p>Order <strong>%s</strong> was placed for %d %s.</p>",
				body.Code, body.TotalAmount, body.Currency),
		})
	case events.TopicOrderPaid:
		return n.Enqueuer.EnqueueEmail(ctx, EmailPayload{
			To:      n.FinanceInbox,
			Subject: "Payment captured for order " + body.Code,
			HTML: fmt.Sprintf("<p>Order <strong>%s</strong> settled for %d %s (txn %s).</p>",
				body.Code, body.TotalAmount, body.Currency, body.GatewayTxnID),
		})
	default:
		n.Logger.Debug().Str("topic", ev.Topic).Msg("no email rule for topic")
		return nil
	}
}
