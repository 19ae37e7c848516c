package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// Handler exposes the public catalog endpoints.
type Handler struct {
	Svc *Service
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{slug}", h.detail)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, defaultPerPage)
	result, err := h.Svc.List(r.Context(), ListParams{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"product": p})
}
