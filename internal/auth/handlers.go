package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	Svc     *Service
	Sender  common.EmailSender
	BaseURL string
}

// Routes mounts the public auth surface. Guards, typically a rate limiter,
// wrap the credential endpoints; token bookkeeping stays unguarded. The
// caller wraps /me with RequireAuth.
func (h *Handler) Routes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.With(guards...).Post("/register", h.register)
	r.With(guards...).Post("/login", h.login)
	r.With(guards...).Post("/forgot", h.forgot)
	r.With(guards...).Post("/reset", h.reset)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := h.Svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := h.Svc.Login(r.Context(), req.Email, req.Password, r.UserAgent(), common.ClientIP(r))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := h.Svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// Logout tolerates a missing or malformed body.
	_ = common.DecodeJSON(r, &req)
	if err := h.Svc.Logout(r.Context(), req.RefreshToken); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	user, err := h.Svc.Me(r.Context(), userID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"user": user})
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) forgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := h.Svc.Forgot(r.Context(), req.Email, h.BaseURL, h.Sender); err != nil {
		common.RenderError(w, err)
		return
	}
	// Same response whether or not the account exists.
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := h.Svc.Reset(r.Context(), req.Token, req.Password); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
