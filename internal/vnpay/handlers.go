package vnpay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
	"github.com/noah-isme/backend-bazuuyu/internal/obs"
	"github.com/noah-isme/backend-bazuuyu/internal/order"
)

// OrderService is the slice of the order service the payment flow needs.
type OrderService interface {
	GetByCode(ctx context.Context, code string) (order.Order, error)
	MarkAwaitingPayment(ctx context.Context, code string, channel order.PaymentChannel) (order.Order, error)
	MarkPaidByGateway(ctx context.Context, code, gatewayTxnID string, amount int64) (order.Order, error)
}

// Handler exposes the gateway payment endpoints: URL creation for the
// authenticated customer, plus the browser return and server-to-server IPN
// callbacks, which are unauthenticated and trust nothing but the signature.
type Handler struct {
	Client    *Client
	Orders    OrderService
	Redis     *redis.Client
	Logger    zerolog.Logger
	ReplayTTL time.Duration
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/return", h.handleReturn)
	r.Get("/ipn", h.handleIPN)
	r.Post("/ipn", h.handleIPN)
}

type createPaymentRequest struct {
	OrderCode string `json:"orderCode" validate:"required"`
	Channel   string `json:"channel"`
}

// CreatePayment issues a signed redirect URL for an order the caller owns.
// The amount always comes from the stored order, never from the request.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req createPaymentRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	channel := order.ChannelVNPayDomestic
	if req.Channel != "" {
		parsed, err := order.ParseChannel(req.Channel)
		if err != nil || parsed == order.ChannelCOD {
			common.JSONError(w, http.StatusBadRequest, "INVALID_CHANNEL", "channel must be a gateway payment channel", nil)
			return
		}
		channel = parsed
	}

	o, err := h.Orders.GetByCode(r.Context(), req.OrderCode)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	if o.UserID != userID {
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		return
	}
	if o.Status != order.StatusCreated && o.Status != order.StatusAwaitingPayment {
		obs.PaymentURLTotal.WithLabelValues("rejected").Inc()
		common.JSONError(w, http.StatusConflict, "ORDER_NOT_PAYABLE",
			fmt.Sprintf("order in status %s cannot start a gateway payment", o.Status), nil)
		return
	}

	payURL, err := h.Client.PaymentURL(PaymentRequest{
		Amount:    o.TotalAmount,
		OrderCode: o.Code,
		OrderInfo: "Thanh toan don hang " + o.Code,
		ClientIP:  common.ClientIP(r),
	})
	if err != nil {
		obs.PaymentURLTotal.WithLabelValues("error").Inc()
		common.RenderError(w, err)
		return
	}
	if _, err := h.Orders.MarkAwaitingPayment(r.Context(), o.Code, channel); err != nil {
		common.RenderError(w, err)
		return
	}

	obs.PaymentURLTotal.WithLabelValues("ok").Inc()
	common.JSON(w, http.StatusOK, map[string]string{"paymentUrl": payURL})
}

// handleReturn terminates the customer's browser redirect from the gateway.
// It reports the outcome to the shopper; settlement truth comes from the
// same verified transition the IPN uses, so whichever callback lands first
// wins and the other is a no-op.
func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	res := h.Client.VerifyCallback(r.URL.Query())
	if !res.SignatureValid {
		obs.PaymentCallbackTotal.WithLabelValues("return", "invalid_signature").Inc()
		common.JSONError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "callback signature verification failed", nil)
		return
	}

	if res.Code != ResponseCodeSuccess {
		obs.PaymentCallbackTotal.WithLabelValues("return", "gateway_failed").Inc()
		common.JSON(w, http.StatusOK, map[string]string{
			"status":    "failed",
			"orderCode": res.TxnRef,
			"code":      res.Code,
		})
		return
	}

	o, err := h.Orders.MarkPaidByGateway(r.Context(), res.TxnRef, res.TransactionNo, res.Amount)
	if err != nil {
		h.renderCallbackError(w, "return", res.TxnRef, err)
		return
	}
	obs.PaymentCallbackTotal.WithLabelValues("return", "ok").Inc()
	common.JSON(w, http.StatusOK, map[string]string{
		"status":    "paid",
		"orderCode": o.Code,
	})
}

// handleIPN answers the gateway's server-to-server notification with the
// plain-text body it expects. Exact duplicates are deduplicated up front and
// answered as success; the state machine remains the authority for anything
// that slips past the cache.
func (h *Handler) handleIPN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.plainText(w, "INVALID_REQUEST")
		return
	}
	values := r.Form

	res := h.Client.VerifyCallback(values)
	if !res.SignatureValid {
		obs.PaymentCallbackTotal.WithLabelValues("ipn", "invalid_signature").Inc()
		h.plainText(w, "INVALID_SIGNATURE")
		return
	}

	if h.Redis != nil {
		key := "vnpay:ipn:" + common.Sha256Hex(values.Encode())
		fresh, err := h.Redis.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			h.Logger.Error().Err(err).Msg("ipn replay check failed")
		} else if !fresh {
			obs.PaymentCallbackTotal.WithLabelValues("ipn", "replay").Inc()
			h.plainText(w, "OK")
			return
		}
	}

	if res.Code != ResponseCodeSuccess {
		obs.PaymentCallbackTotal.WithLabelValues("ipn", "gateway_failed").Inc()
		h.plainText(w, "IGNORED")
		return
	}

	if _, err := h.Orders.MarkPaidByGateway(r.Context(), res.TxnRef, res.TransactionNo, res.Amount); err != nil {
		obs.PaymentCallbackTotal.WithLabelValues("ipn", "rejected").Inc()
		h.Logger.Error().Err(err).Str("txn_ref", res.TxnRef).Msg("ipn settlement rejected")
		h.plainText(w, "IGNORED")
		return
	}
	obs.PaymentCallbackTotal.WithLabelValues("ipn", "ok").Inc()
	h.plainText(w, "OK")
}

func (h *Handler) renderCallbackError(w http.ResponseWriter, kind, txnRef string, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		obs.PaymentCallbackTotal.WithLabelValues(kind, "unknown_order").Inc()
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "callback references an unknown order", nil)
	case errors.Is(err, order.ErrAmountMismatch):
		obs.PaymentCallbackTotal.WithLabelValues(kind, "amount_mismatch").Inc()
		h.Logger.Warn().Str("txn_ref", txnRef).Msg("callback amount disagrees with order total")
		common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "callback amount does not match the order total", nil)
	default:
		obs.PaymentCallbackTotal.WithLabelValues(kind, "error").Inc()
		common.RenderError(w, err)
	}
}

func (h *Handler) plainText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
