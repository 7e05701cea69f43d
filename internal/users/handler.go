package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
	"github.com/promodesk/promodesk/internal/shared"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacmw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacmw, validator: validator.New()}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	req := ListUsersRequest{Page: 1, Limit: 20}
	query := r.URL.Query()
	if v, err := strconv.Atoi(query.Get("page")); err == nil && v > 0 {
		req.Page = v
	}
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 && v <= 100 {
		req.Limit = v
	}
	if raw := query.Get("role"); raw != "" {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		req.Role = &role
	}
	if raw := query.Get("active"); raw != "" {
		active := raw == "true"
		req.IsActive = &active
	}
	if search := query.Get("search"); search != "" {
		req.Search = &search
	}

	result, total, err := h.service.List(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []User{}
	}
	httpx.JSON(w, http.StatusOK, ListUsersResponse{
		Users:      result,
		Pagination: shared.NewPagination(req.Page, req.Limit, total),
	})
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.UpdateRole(r.Context(), actor, id, role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	user, err := h.service.SetStatus(r.Context(), actor, id, *req.IsActive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.logger.Warn("delete user failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleBulkRoles(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	var req BulkRoleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	modified, err := h.service.BulkUpdateRoles(r.Context(), actor, req.IDs, role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, BulkRoleResponse{ModifiedCount: modified})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	stats, err := h.service.Stats(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) targetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}

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
