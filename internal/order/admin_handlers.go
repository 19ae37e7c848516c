package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// StatusSetter forces an order into a status without running the payment
// state machine. *Store satisfies it.
type StatusSetter interface {
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// AdminHandler serves the back-office order endpoints. Routes are expected
// to be mounted behind the admin role middleware.
type AdminHandler struct {
	Svc      *Service
	Statuses StatusSetter
}

func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{code}", h.getByCode)
	r.Patch("/{code}/status", h.patchStatus)
	r.Post("/{code}/cod-collected", h.codCollected)
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	var filter *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error(), nil)
			return
		}
		filter = &st
	}
	orders, err := h.Svc.ListAll(r.Context(), filter, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"orders": orders, "page": page, "perPage": perPage})
}

func (h *AdminHandler) getByCode(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	items, err := h.Svc.Repo.ListItems(r.Context(), o.ID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"order": o, "items": items})
}

// patchStatus overrides an order's status outside the payment flow, for
// back-office corrections such as canceling an abandoned order. PAID stays
// terminal and can only be entered through a verified payment, so both
// directions involving it are refused here.
func (h *AdminHandler) patchStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	st, err := ParseStatus(req.Status)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error(), nil)
		return
	}
	o, err := h.Svc.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	if o.Status == st {
		common.JSON(w, http.StatusOK, map[string]any{"order": o})
		return
	}
	if o.Status == StatusPaid || st == StatusPaid {
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION",
			"paid orders cannot be restated manually", nil)
		return
	}
	if err := h.Statuses.SetStatus(r.Context(), o.ID, st); err != nil {
		common.RenderError(w, err)
		return
	}
	o.Status = st
	common.JSON(w, http.StatusOK, map[string]any{"order": o})
}

// codCollected confirms cash receipt for a COD order. Calling it twice is
// harmless; calling it on an order that never chose COD is a 409.
func (h *AdminHandler) codCollected(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	o, err := h.Svc.MarkCodCollected(r.Context(), code)
	if err != nil {
		var invalid *InvalidTransitionError
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		case errors.As(err, &invalid):
			common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", invalid.Error(), nil)
		default:
			common.RenderError(w, err)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"order": o})
}
