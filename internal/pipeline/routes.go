package pipeline

import "github.com/go-chi/chi/v5"

// MountRoutes attaches document pipeline routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Ingest)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/files", h.AttachFile)
	r.Post("/{id}/normalize", h.Normalize)
	r.Post("/{id}/proposal", h.BuildProposal)
	r.Post("/{id}/route", h.Route)
	r.Post("/{id}/post", h.Post)
}
