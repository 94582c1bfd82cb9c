package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/smartmarks/internal/web"
)

func init() { Register(registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	app := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), mw.Session(d.Backend, d.Logger))

	// Every page load mounts a view with its own subscription.
	mountLimit := mw.RateLimit(mw.RateLimitConfig{
		Name:         "mounts",
		Burst:        d.RateLimitBurst,
		RefillPerMin: d.RateLimitPerMin,
		MaxEntries:   10000,
		TrustProxy:   d.TrustProxy,
		Key:          mw.SessionOrIP(d.TrustProxy),
		Logger:       d.Logger,
	})

	app.With(mw.RequireUser(d.Logger), mountLimit).Get("/", handlers.Home(d))
	app.Get("/login", handlers.Login(d))

	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).
		Handle("/static/*", http.StripPrefix("/static/", web.Static()))
}
