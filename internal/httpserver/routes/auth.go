package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	app := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), mw.Session(d.Backend, d.Logger))

	signinLimit := mw.RateLimit(mw.RateLimitConfig{
		Name:         "signin",
		Burst:        d.RateLimitBurst,
		RefillPerMin: d.RateLimitPerMin,
		MaxEntries:   10000,
		TrustProxy:   d.TrustProxy,
		Logger:       d.Logger,
	})

	app.With(signinLimit).Post("/auth/signin", handlers.SignIn(d))
	app.Get("/auth/callback", handlers.Callback(d))
	app.Post("/auth/signout", handlers.SignOut(d))
}
