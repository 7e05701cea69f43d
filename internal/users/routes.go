package users

import (
	"github.com/go-chi/chi/v5"

	"github.com/promodesk/promodesk/internal/rbac"
)

// MountRoutes registers user administration routes. The identity resolver
// runs upstream; everything here additionally requires manage_users.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(rbac.CapabilityManageUsers))
		r.Get("/", h.handleList)
		r.Get("/stats", h.handleStats)
		r.Put("/bulk-role", h.handleBulkRoles)
		r.Put("/{id:[0-9]+}/role", h.handleUpdateRole)
		r.Put("/{id:[0-9]+}/status", h.handleSetStatus)
		r.Delete("/{id:[0-9]+}", h.handleDelete)
	})
}
