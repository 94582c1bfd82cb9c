package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/web"
)

// Home mounts a new bookmark view for this tab and renders it with the
// initial list. Runs behind RequireUser.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := session.FromContext(r.Context()).User()

		view := bookmarks.NewView(user.ID, d.Backend, d.Backend, d.Logger)
		view.Load(r.Context())
		if err := view.Mount(r.Context()); err != nil {
			// The tab still works; it resyncs on visibility changes.
			d.Logger.Warn("view mounted without realtime", logger.String("view_id", view.ID()))
		}
		d.Views.Add(view)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		err := d.Renderer.Page(w, web.PageData{
			User:   user,
			ViewID: view.ID(),
			List:   web.ListData{ViewID: view.ID(), Items: view.Items()},
		})
		if err != nil {
			d.Logger.Error("failed to render page", logger.Error(err))
			d.Views.Remove(view.ID())
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// Login shows the sign-in page; signed-in users go home.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p := session.FromContext(r.Context()); p != nil && p.User() != nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := d.Renderer.Login(w); err != nil {
			d.Logger.Error("failed to render login", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}
