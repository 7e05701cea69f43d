package rbac

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

// Middleware wires capability checks into HTTP handler chains.
type Middleware struct {
	Logger *slog.Logger
}

// RequireCapability ensures the request carries an authenticated actor whose
// role grants all listed capabilities.
func (m Middleware) RequireCapability(caps ...Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized))
				return
			}
			if err := Authorize(actor.Role, caps...); err != nil {
				if m.Logger != nil {
					m.Logger.Warn("capability denied",
						slog.Int64("actor_id", actor.ID),
						slog.String("role", string(actor.Role)),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
