package checkout

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// EmailLookup resolves the customer email for the order confirmation event.
type EmailLookup interface {
	EmailByID(ctx context.Context, id uuid.UUID) (string, error)
}

// Handler exposes the checkout endpoint. Mounted behind RequireAuth and the
// idempotency middleware; a retried POST with the same Idempotency-Key never
// creates a second order.
type Handler struct {
	Svc   *Service
	Users EmailLookup
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	email := ""
	if h.Users != nil {
		if found, err := h.Users.EmailByID(r.Context(), userID); err == nil {
			email = found
		}
	}
	o, err := h.Svc.Create(r.Context(), userID, email, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"order": o})
}
