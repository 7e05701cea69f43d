package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
)

// Middleware resolves bearer credentials into a request-scoped actor.
type Middleware struct {
	logger  *slog.Logger
	service *Service
}

// NewMiddleware constructs the identity-resolving middleware.
func NewMiddleware(logger *slog.Logger, service *Service) *Middleware {
	return &Middleware{logger: logger, service: service}
}

// Protect rejects requests without a verifiable, active identity and attaches
// the resolved actor to the context for downstream capability checks.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.resolve(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(rbac.ContextWithActor(r.Context(), actor)))
	})
}

// Optional performs the same resolution but lets the request through without
// an actor on any failure, for endpoints that behave differently for
// anonymous callers.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, err := m.resolve(r); err == nil {
			r = r.WithContext(rbac.ContextWithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolve(r *http.Request) (*rbac.Actor, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	}
	user, err := m.service.VerifyToken(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return user.Actor(), nil
}
