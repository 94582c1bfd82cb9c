package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

func init() {
	Register(registerViews)
	RegisterStream(registerViewEvents)
}

func viewRouter(r chi.Router, d deps.Deps) chi.Router {
	return r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.Session(d.Backend, d.Logger),
		mw.RequireUser(d.Logger),
	)
}

func registerViews(r chi.Router, d deps.Deps) {
	mutationLimit := mw.RateLimit(mw.RateLimitConfig{
		Name:         "mutations",
		Burst:        d.RateLimitBurst,
		RefillPerMin: d.RateLimitPerMin,
		MaxEntries:   10000,
		TrustProxy:   d.TrustProxy,
		Key:          mw.SessionOrIP(d.TrustProxy),
		Logger:       d.Logger,
	})

	views := viewRouter(r, d)
	views.With(mutationLimit).Post("/views/{id}/bookmarks", handlers.AddBookmark(d))
	views.With(mutationLimit).Post("/views/{id}/bookmarks/{bookmarkID}/delete", handlers.DeleteBookmark(d))
	views.Post("/views/{id}/visibility", handlers.Visibility(d))
}

func registerViewEvents(r chi.Router, d deps.Deps) {
	viewRouter(r, d).Get("/views/{id}/events", handlers.Events(d))
}
