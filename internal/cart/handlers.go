package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// GuestTokenHeader carries the anonymous cart identity. The storefront
// generates a UUID once and replays it on every request until login.
const GuestTokenHeader = "X-Cart-Token"

// Handler exposes the cart endpoints. They work for both authenticated
// users and guests carrying a cart token.
type Handler struct {
	Svc *Service
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Post("/items", h.add)
	r.Put("/items/{productId}", h.setQty)
	r.Delete("/items/{productId}", h.remove)
	r.Delete("/", h.clear)
	r.Post("/merge", h.merge)
}

func (h *Handler) owner(r *http.Request) (Owner, bool) {
	if userID, ok := common.UserID(r.Context()); ok {
		return Owner{UserID: userID}, true
	}
	token := r.Header.Get(GuestTokenHeader)
	if token == "" {
		return Owner{}, false
	}
	if _, err := uuid.Parse(token); err != nil {
		return Owner{}, false
	}
	return Owner{GuestToken: token}, true
}

func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (Owner, bool) {
	owner, ok := h.owner(r)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "CART_IDENTITY_REQUIRED",
			"log in or supply a "+GuestTokenHeader+" header with a UUID", nil)
	}
	return owner, ok
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), owner)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Qty       int32     `json:"qty" validate:"required,gte=1"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	c, err := h.Svc.Add(r.Context(), owner, req.ProductID, req.Qty)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

type setQtyRequest struct {
	Qty int32 `json:"qty" validate:"gte=0"`
}

func (h *Handler) setQty(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "product id must be a UUID", nil)
		return
	}
	var req setQtyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	c, err := h.Svc.SetQty(r.Context(), owner, productID, req.Qty)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "product id must be a UUID", nil)
		return
	}
	c, err := h.Svc.Remove(r.Context(), owner, productID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Clear(r.Context(), owner); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// merge absorbs the guest cart named by the token header into the
// authenticated user's cart. Called by the storefront right after login.
func (h *Handler) merge(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	c, err := h.Svc.Merge(r.Context(), r.Header.Get(GuestTokenHeader), userID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}
