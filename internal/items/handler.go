package items

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
	"github.com/promodesk/promodesk/internal/shared"
)

// maxImageMemory bounds in-memory multipart parsing; larger files spill to disk.
const maxImageMemory = 10 << 20

// Handler wires HTTP endpoints for item CRUD.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacmw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacmw, validator: validator.New()}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	req := listRequestFromQuery(r)
	result, total, err := h.service.List(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse(result, req, total))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	req := listRequestFromQuery(r)
	result, total, err := h.service.ListMine(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse(result, req, total))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	item, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item.Response(time.Now()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed multipart form")
		return
	}

	fields := make(map[string]string)
	req := CreateItemRequest{Note: r.PostFormValue("note")}
	if start, err := parseDate(r.PostFormValue("start_date")); err != nil {
		fields["start_date"] = err.Error()
	} else {
		req.StartDate = start
	}
	if end, err := parseDate(r.PostFormValue("end_date")); err != nil {
		fields["end_date"] = err.Error()
	} else {
		req.EndDate = end
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}

	upload, inline, err := imageFromForm(r)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"image": err.Error()})
		return
	}
	req.Image = upload
	req.InlineImage = inline

	if !h.validStruct(w, req) {
		return
	}
	item, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("create item failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item.Response(time.Now()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed multipart form")
		return
	}

	fields := make(map[string]string)
	var req UpdateItemRequest
	if raw := r.PostFormValue("start_date"); raw != "" {
		if start, err := parseDate(raw); err != nil {
			fields["start_date"] = err.Error()
		} else {
			req.StartDate = &start
		}
	}
	if raw := r.PostFormValue("end_date"); raw != "" {
		if end, err := parseDate(raw); err != nil {
			fields["end_date"] = err.Error()
		} else {
			req.EndDate = &end
		}
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	if raw := r.PostFormValue("note"); raw != "" {
		req.Note = &raw
	}

	upload, inline, err := imageFromForm(r)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"image": err.Error()})
		return
	}
	req.Image = upload
	req.InlineImage = inline

	if !h.validStruct(w, req) {
		return
	}
	item, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		h.logger.Warn("update item failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item.Response(time.Now()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validStruct(w http.ResponseWriter, target any) bool {
	if err := h.validator.Struct(target); err != nil {
		fields := make(map[string]string)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return false
	}
	return true
}

func listRequestFromQuery(r *http.Request) ListItemsRequest {
	req := ListItemsRequest{Page: 1, Limit: 20}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		req.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		req.Limit = v
	}
	if search := r.URL.Query().Get("search"); search != "" {
		req.Search = &search
	}
	return req
}

func listResponse(result []Item, req ListItemsRequest, total int) ListItemsResponse {
	now := time.Now()
	responses := make([]ItemResponse, 0, len(result))
	for _, item := range result {
		responses = append(responses, item.Response(now))
	}
	return ListItemsResponse{
		Items:      responses,
		Pagination: shared.NewPagination(req.Page, req.Limit, total),
	}
}

// imageFromForm extracts either an uploaded image file or an inline data URI
// from the multipart form. Both absent is fine; the service decides whether
// an image is required.
func imageFromForm(r *http.Request) (*ImageUpload, *string, error) {
	file, header, err := r.FormFile("image")
	if err == nil {
		return &ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}, nil, nil
	}
	if !errors.Is(err, http.ErrMissingFile) {
		return nil, nil, err
	}
	if inline := r.PostFormValue("image_data"); inline != "" {
		return nil, &inline, nil
	}
	return nil, nil, nil
}

// parseDate accepts plain dates and RFC3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
