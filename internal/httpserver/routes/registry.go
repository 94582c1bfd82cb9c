package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg    Registrar
	mws    []Middleware
	stream bool
}

var registry []entry

// Register a registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterStream registers long-lived routes (event streams). They are
// mounted outside the per-request timeout.
func RegisterStream(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws, stream: true})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps, timeout time.Duration) {
	r.Group(func(r chi.Router) {
		if timeout > 0 {
			r.Use(middleware.Timeout(timeout))
		}
		for _, e := range registry {
			if !e.stream {
				mount(r, d, e)
			}
		}
	})

	for _, e := range registry {
		if e.stream {
			mount(r, d, e)
		}
	}
}

func mount(r chi.Router, d deps.Deps, e entry) {
	if len(e.mws) == 0 {
		e.reg(r, d)
		return
	}
	sub := r.With(e.mws...) // apply per-route middlewares
	e.reg(sub, d)
}
