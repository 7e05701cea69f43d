package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
)

// Handler wires HTTP endpoints for authentication and account flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	protect   *Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, protect *Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		protect:   protect,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		// Credential endpoints get a tighter per-IP budget than the global limit.
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
	})
	r.Post("/verify", h.handleVerifyToken)
	r.Group(func(r chi.Router) {
		r.Use(h.protect.Protect)
		r.Get("/me", h.handleCurrentUser)
		r.Put("/me", h.handleUpdateProfile)
		r.Put("/password", h.handleChangePassword)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	user, token, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logger.Warn("register failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, AuthResponse{User: user, Token: token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyTokenRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	user, err := h.service.VerifyToken(r.Context(), req.Token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	user, err := h.service.CurrentUser(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	var req UpdateProfileRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), actor.ID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	var req ChangePasswordRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeValid decodes the JSON body and runs struct validation, writing the
// error response itself on failure.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return false
	}
	return true
}
