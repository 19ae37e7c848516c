package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-bazuuyu/internal/checkout"
	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// Repository is the persistence surface the handlers need.
type Repository interface {
	GetProfile(ctx context.Context, id uuid.UUID) (Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (Profile, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]Address, error)
	CreateAddress(ctx context.Context, userID uuid.UUID, a Address) (Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

// Handler exposes the account endpoints, all behind RequireAuth.
type Handler struct {
	Repo Repository
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/profile", h.getProfile)
	r.Put("/profile", h.updateProfile)
	r.Get("/addresses", h.listAddresses)
	r.Post("/addresses", h.createAddress)
	r.Delete("/addresses/{id}", h.deleteAddress)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	p, err := h.Repo.GetProfile(r.Context(), userID)
	if err != nil {
		renderProfileError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"profile": p})
}

func renderProfileError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "USER_NOT_FOUND", "account no longer exists", nil)
		return
	}
	common.RenderError(w, err)
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req updateProfileRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if phone != "" {
		normalized, err := checkout.NormalizePhone(phone)
		if err != nil {
			common.RenderError(w, err)
			return
		}
		phone = normalized
	}
	p, err := h.Repo.UpdateProfile(r.Context(), userID, strings.TrimSpace(req.Name), phone)
	if err != nil {
		renderProfileError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	addrs, err := h.Repo.ListAddresses(r.Context(), userID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"addresses": addrs})
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req checkout.Address
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	normalized, err := checkout.NormalizeAddress(req)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	isDefault := r.URL.Query().Get("default") == "true"
	created, err := h.Repo.CreateAddress(r.Context(), userID, Address{
		ReceiverName: normalized.ReceiverName,
		Phone:        normalized.Phone,
		Country:      normalized.Country,
		Province:     normalized.Province,
		City:         normalized.City,
		AddressLine:  normalized.AddressLine,
		IsDefault:    isDefault,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"address": created})
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "address id must be a UUID", nil)
		return
	}
	if err := h.Repo.DeleteAddress(r.Context(), userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ADDRESS_NOT_FOUND", "address not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
