package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// AdminHandler exposes product management, mounted behind the admin role.
type AdminHandler struct {
	Svc *Service
}

func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type productRequest struct {
	Name        string   `json:"name" validate:"required"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price" validate:"gte=0"`
	Stock       int32    `json:"stock" validate:"gte=0"`
	Images      []string `json:"images"`
	Published   bool     `json:"published"`
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	items, err := h.Svc.ListAll(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	if items == nil {
		items = []Product{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": items, "page": page, "perPage": perPage})
}

func (h *AdminHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	created, err := h.Svc.Create(r.Context(), req.toProduct())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"product": created})
}

func (h *AdminHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "product id must be a UUID", nil)
		return
	}
	var req productRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	p := req.toProduct()
	p.ID = id
	updated, err := h.Svc.Update(r.Context(), p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"product": updated})
}

func (h *AdminHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "product id must be a UUID", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (req productRequest) toProduct() Product {
	return Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
		Published:   req.Published,
	}
}
