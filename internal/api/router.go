package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/studycards/internal/study"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is told about every successful mutation.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ctrl *study.Controller, authEnabled bool, token string, events Notifier, sseHandler http.Handler) chi.Router {
	h := NewHandler(ctrl, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/sets", h.ListSets)
	r.Delete("/sets/{name}", h.DeleteSet)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Put("/set", h.SelectSet)
		r.Post("/next", h.Next)
		r.Post("/prev", h.Prev)
		r.Post("/flip", h.Flip)
		r.Post("/shuffle", h.Shuffle)
		r.Post("/star", h.ToggleStar)
		r.Post("/cards", h.AddCard)
		r.Delete("/cards/current", h.DeleteCurrentCard)
	})

	r.Post("/import", h.Import)
	r.Get("/export", h.Export)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
