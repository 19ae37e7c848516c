package order

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the payment status of an order.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusCodPending      Status = "COD_PENDING"
	StatusPaid            Status = "PAID"
	StatusCanceled        Status = "CANCELED"
	StatusExpired         Status = "EXPIRED"
)

// PaymentChannel identifies how an order is paid.
type PaymentChannel string

const (
	ChannelCOD           PaymentChannel = "COD"
	ChannelVNPayQR       PaymentChannel = "VNPAY_QR"
	ChannelVNPayDomestic PaymentChannel = "VNPAY_DOMESTIC"
	ChannelVNPayIntl     PaymentChannel = "VNPAY_INTL"
)

// Event is something that may move an order's payment status.
type Event int

const (
	// EventGatewayRedirect fires when a signed payment URL is issued.
	EventGatewayRedirect Event = iota
	// EventCodSelected fires when cash-on-delivery is chosen at checkout.
	EventCodSelected
	// EventGatewayPaid fires on a verified success callback or IPN.
	EventGatewayPaid
	// EventCodCollected fires when delivery collection is confirmed.
	EventCodCollected
)

func (e Event) String() string {
	switch e {
	case EventGatewayRedirect:
		return "gateway-redirect"
	case EventCodSelected:
		return "cod-selected"
	case EventGatewayPaid:
		return "gateway-paid"
	case EventCodCollected:
		return "cod-collected"
	default:
		return "unknown"
	}
}

// ErrNoTransition marks an event that is legal but changes nothing, such as
// the re-delivery of a success callback for an order that is already PAID.
// Callers treat it as an idempotent no-op, never as a failure.
var ErrNoTransition = errors.New("order: event does not change state")

// InvalidTransitionError is a genuine rejection of an event from the current
// status.
type InvalidTransitionError struct {
	From  Status
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order: event %s is not valid from status %s", e.Event, e.From)
}

// Decide is the single authority on legal payment-status transitions. It
// returns the next status, ErrNoTransition for idempotent re-deliveries, or
// an InvalidTransitionError. Reaching PAID is a one-way gate.
func Decide(current Status, event Event) (Status, error) {
	switch event {
	case EventGatewayRedirect:
		if current == StatusCreated {
			return StatusAwaitingPayment, nil
		}
		return current, ErrNoTransition
	case EventCodSelected:
		if current == StatusCodPending {
			return current, ErrNoTransition
		}
		return StatusCodPending, nil
	case EventGatewayPaid:
		if current == StatusPaid {
			return current, ErrNoTransition
		}
		return StatusPaid, nil
	case EventCodCollected:
		switch current {
		case StatusCodPending:
			return StatusPaid, nil
		case StatusPaid:
			return current, ErrNoTransition
		default:
			return current, &InvalidTransitionError{From: current, Event: event}
		}
	default:
		return current, &InvalidTransitionError{From: current, Event: event}
	}
}

// ParseStatus converts a case-insensitive status name.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusCreated, StatusAwaitingPayment, StatusCodPending, StatusPaid, StatusCanceled, StatusExpired:
		return Status(strings.ToUpper(strings.TrimSpace(s))), nil
	default:
		return "", fmt.Errorf("order: invalid status %q", s)
	}
}

// ParseChannel converts a case-insensitive payment channel name.
func ParseChannel(s string) (PaymentChannel, error) {
	switch PaymentChannel(strings.ToUpper(strings.TrimSpace(s))) {
	case ChannelCOD, ChannelVNPayQR, ChannelVNPayDomestic, ChannelVNPayIntl:
		return PaymentChannel(strings.ToUpper(strings.TrimSpace(s))), nil
	default:
		return "", fmt.Errorf("order: invalid payment channel %q", s)
	}
}
