package items

import (
	"github.com/go-chi/chi/v5"

	"github.com/promodesk/promodesk/internal/rbac"
)

// MountRoutes registers item routes. The identity resolver runs upstream;
// these groups add the capability gates.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(rbac.CapabilityRead))
		r.Get("/", h.handleList)
		r.Get("/{id:[0-9]+}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(rbac.CapabilityCreate))
		r.Get("/mine", h.handleListMine)
		r.Post("/", h.handleCreate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(rbac.CapabilityUpdate))
		r.Put("/{id:[0-9]+}", h.handleUpdate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(rbac.CapabilityDelete))
		r.Delete("/{id:[0-9]+}", h.handleDelete)
	})
}
