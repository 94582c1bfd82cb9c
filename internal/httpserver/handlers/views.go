package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/web"
)

// viewFor resolves the {id} view and checks it belongs to the signed-in
// user. Someone else's view answers 404, same as a missing one.
func viewFor(d deps.Deps, w http.ResponseWriter, r *http.Request) (*bookmarks.View, bool) {
	user := session.FromContext(r.Context()).User()
	v, ok := d.Views.Get(chi.URLParam(r, "id"))
	if !ok || user == nil || v.UserID() != user.ID {
		http.NotFound(w, r)
		return nil, false
	}
	v.Touch()
	return v, true
}

func writeList(d deps.Deps, w http.ResponseWriter, v *bookmarks.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := d.Renderer.List(w, web.ListData{ViewID: v.ID(), Items: v.Items()}); err != nil {
		d.Logger.Error("failed to render list", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// mutationFailed answers a failed add or delete with the text the browser
// shows in its alert.
func mutationFailed(w http.ResponseWriter, prefix string, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte(prefix + err.Error()))
}

// AddBookmark answers 200 with the new list, 204 when title or url is
// blank (nothing happened), 502 with the error text otherwise.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewFor(d, w, r)
		if !ok {
			return
		}

		draft := domain.Draft{
			Title: r.PostFormValue("title"),
			URL:   r.PostFormValue("url"),
		}
		_, err := v.Add(r.Context(), draft)
		switch {
		case errors.Is(err, bookmarks.ErrIncomplete):
			w.WriteHeader(http.StatusNoContent)
		case err != nil:
			mutationFailed(w, "Error adding bookmark: ", err)
		default:
			writeList(d, w, v)
		}
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewFor(d, w, r)
		if !ok {
			return
		}

		if err := v.Delete(r.Context(), chi.URLParam(r, "bookmarkID")); err != nil {
			mutationFailed(w, "Error deleting bookmark: ", err)
			return
		}
		writeList(d, w, v)
	}
}

// Visibility receives the tab's visibility changes. Becoming visible
// refetches the list; the event stream carries the result.
func Visibility(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewFor(d, w, r)
		if !ok {
			return
		}

		state := bookmarks.Visibility(r.PostFormValue("state"))
		if state != bookmarks.Visible && state != bookmarks.Hidden {
			http.Error(w, "state must be visible or hidden", http.StatusBadRequest)
			return
		}

		v.OnVisibilityChange(r.Context(), state)
		w.WriteHeader(http.StatusNoContent)
	}
}
