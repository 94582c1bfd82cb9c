// Package web renders the HTML views and serves the browser assets.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

const AppName = "Smart Bookmarks"

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*.css static/*.js
var staticFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type PageData struct {
	AppName string
	User    *domain.User
	ViewID  string
	List    ListData
}

// ListData feeds the list fragment pushed on every change.
type ListData struct {
	ViewID string
	Items  []domain.Bookmark
}

type LoginData struct {
	AppName string
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{tmpl: templates}
}

// Page renders the signed-in main view.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	if data.AppName == "" {
		data.AppName = AppName
	}
	return r.render(w, "page", data)
}

func (r *Renderer) Login(w io.Writer) error {
	return r.render(w, "login", LoginData{AppName: AppName})
}

// List renders the list fragment (heading with count, then items or the
// empty state).
func (r *Renderer) List(w io.Writer, data ListData) error {
	return r.render(w, "list", data)
}

// ListString is List into a string, for event streams.
func (r *Renderer) ListString(data ListData) (string, error) {
	var buf bytes.Buffer
	if err := r.List(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// render executes into a buffer first so a template error never leaves a
// half-written response.
func (r *Renderer) render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
