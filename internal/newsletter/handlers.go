package newsletter

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
	"github.com/noah-isme/backend-bazuuyu/internal/notify"
)

// Handler exposes the public newsletter endpoints.
type Handler struct {
	Svc *Service
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/subscribe", h.subscribe)
	r.Get("/confirm", h.confirm)
	r.Get("/unsubscribe", h.unsubscribe)
}

type subscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := h.Svc.Subscribe(r.Context(), req.Email); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "pending", "message": "check your inbox to confirm"})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Confirm(r.Context(), r.URL.Query().Get("token")); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Unsubscribe(r.Context(), r.URL.Query().Get("token")); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// Broadcaster queues campaign tasks.
type Broadcaster interface {
	EnqueueBroadcast(ctx context.Context, p notify.BroadcastPayload) error
}

// AdminHandler lets the back office send a campaign to every confirmed
// subscriber. Delivery happens on the worker.
type AdminHandler struct {
	Queue Broadcaster
}

type broadcastRequest struct {
	Subject string `json:"subject" validate:"required"`
	HTML    string `json:"html" validate:"required"`
}

func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := h.Queue.EnqueueBroadcast(r.Context(), notify.BroadcastPayload{
		Subject: req.Subject,
		HTML:    req.HTML,
	}); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
