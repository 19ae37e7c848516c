package wishlist

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-bazuuyu/internal/catalog"
	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// Catalog is the product lookup used to validate saves.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// Repository is the persistence surface the handler needs.
type Repository interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}

// Handler exposes the wishlist endpoints. All of them require auth.
type Handler struct {
	Repo    Repository
	Catalog Catalog
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/merge", h.merge)
	r.Post("/{productId}", h.add)
	r.Delete("/{productId}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	entries, err := h.Repo.List(r.Context(), userID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "product id must be a UUID", nil)
		return
	}
	if _, err := h.Catalog.GetByID(r.Context(), productID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	if err := h.Repo.Add(r.Context(), userID, productID); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// merge absorbs a guest wishlist kept on the client into the account's
// saved list after login. Unknown product ids are skipped rather than
// failing the whole batch, since the guest list may outlive the catalog.
func (h *Handler) merge(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req struct {
		ProductIDs []uuid.UUID `json:"productIds"`
	}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if len(req.ProductIDs) > 100 {
		common.JSONError(w, http.StatusBadRequest, "TOO_MANY_ITEMS", "at most 100 products per merge", nil)
		return
	}
	merged, skipped := 0, 0
	for _, productID := range req.ProductIDs {
		if _, err := h.Catalog.GetByID(r.Context(), productID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				skipped++
				continue
			}
			common.RenderError(w, err)
			return
		}
		if err := h.Repo.Add(r.Context(), userID, productID); err != nil {
			common.RenderError(w, err)
			return
		}
		merged++
	}
	common.JSON(w, http.StatusOK, map[string]int{"merged": merged, "skipped": skipped})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "product id must be a UUID", nil)
		return
	}
	if err := h.Repo.Remove(r.Context(), userID, productID); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "WISHLIST_ITEM_NOT_FOUND", "product is not on the wishlist", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
