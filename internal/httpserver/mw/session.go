package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/smartmarks/internal/guard"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
)

// SessionCookie holds the platform session token.
const SessionCookie = "smartmarks_session"

// Session builds the request's session provider from the session cookie,
// resolves it, and closes it when the request (or stream) ends.
func Session(auth session.Auth, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				token = c.Value
			}

			p := session.New(auth, token, log)
			defer p.Close()
			p.Initialize(r.Context())

			next.ServeHTTP(w, r.WithContext(session.WithProvider(r.Context(), p)))
		})
	}
}

// RequireUser applies the redirect guard. Page loads are redirected to the
// login view; other requests (fetches, event streams) get 401.
func RequireUser(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var state session.State
			if p := session.FromContext(r.Context()); p != nil {
				state = p.State()
			}

			path, redirect := guard.Check(state)
			if !redirect {
				next.ServeHTTP(w, r)
				return
			}

			if isPageLoad(r) {
				log.Debugf("RequireUser: no session, redirecting %s to %s", r.URL.Path, path)
				http.Redirect(w, r, path, http.StatusFound)
				return
			}
			log.Debugf("RequireUser: no session for %s %s", r.Method, r.URL.Path)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}

func isPageLoad(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return !strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
