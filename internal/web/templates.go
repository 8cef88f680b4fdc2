package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	webembed "github.com/erazemk/zaloga/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
	fragments *template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"imageURL": imageURL,
		"plural": func(k model.Kind) string {
			return k.Label() + "s"
		},
		"today": func() string {
			return time.Now().Format("Monday, January 2, 2006")
		},
	}
}

// imageURL returns the item's picture, or a generated placeholder tile.
func imageURL(item model.Item) string {
	if item.ImageURL != "" {
		return item.ImageURL
	}
	return "/placeholder/" + item.Kind.Segment() + ".png?label=" + url.QueryEscape(item.Name)
}

// LoadTemplates parses all page templates with the layout and shared partials.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}
	partialBytes, err := fs.ReadFile(tfs, "partials.html")
	if err != nil {
		return nil, fmt.Errorf("reading partials template: %w", err)
	}

	pages := []string{
		"login.html",
		"admin_dashboard.html",
		"staff_dashboard.html",
		"editor.html",
		"confirm_delete.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		for _, src := range []string{string(layoutBytes), string(partialBytes), string(pageBytes)} {
			if tmpl, err = tmpl.Parse(src); err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", page, err)
			}
		}

		ts.templates[page] = tmpl
	}

	ts.fragments, err = template.New("partials.html").Funcs(FuncMap()).Parse(string(partialBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing partials: %w", err)
	}

	return ts, nil
}

// Render renders a page template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// RenderFragment renders a named partial without the layout.
func (ts *Templates) RenderFragment(w io.Writer, name string, data any) error {
	return ts.fragments.ExecuteTemplate(w, name, data)
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *model.User
	Error   string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	Sessions      *auth.Manager
	Service       *inventory.Service
	Metrics       *metrics.Metrics
	Templates     *Templates
	Flash         *Flash
	SecureCookies bool

	tiles *lru.Cache[string, []byte]
}
