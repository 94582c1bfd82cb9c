package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/guard"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
)

// SignIn starts the OAuth handshake. On failure the visitor lands back on
// the login page; the error is only logged.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := session.FromContext(r.Context())

		start, err := p.SignIn(r.Context(), origin(d, r))
		if err != nil {
			http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
			return
		}

		setCookie(w, r, d, FlowCookie, start.Flow, flowPath, d.Backend.FlowTTL())
		http.Redirect(w, r, start.URL, http.StatusSeeOther)
	}
}

// Callback exchanges the provider's authorization code for a session when
// one is present, then always redirects home. Exchange failures are silent
// to the browser.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if code := q.Get("code"); code != "" {
			flow := ""
			if c, err := r.Cookie(FlowCookie); err == nil {
				flow = c.Value
			}

			s, err := d.Backend.ExchangeCodeForSession(r.Context(), code, q.Get("state"), flow)
			if err != nil {
				d.Logger.Debug("code exchange failed", logger.Error(err))
			} else {
				setSessionCookie(w, r, d, s.Token)
			}
			clearCookie(w, r, d, FlowCookie, flowPath)
		}

		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
	}
}

// SignOut ends the session. The guard then decides where the browser goes:
// the login page once signed out, home when sign-out failed. A signed-out
// user's views are closed with their subscriptions.
func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := session.FromContext(r.Context())
		user := p.User()
		p.SignOut(r.Context())

		target := "/"
		if path, ok := guard.Check(p.State()); ok {
			clearSessionCookie(w, r, d)
			if user != nil {
				closeViewsOf(d, user.ID)
			}
			target = path
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

// closeViewsOf closes every view mounted by userID in this process.
func closeViewsOf(d deps.Deps, userID string) {
	n := d.Views.RemoveFunc(func(v *bookmarks.View) bool { return v.UserID() == userID })
	if n > 0 {
		d.Logger.Debug("views closed after sign-out",
			logger.String("user_id", userID),
			logger.Int("views", n))
	}
}
