package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	webembed "github.com/erazemk/zaloga/web"
)

// Deps are the collaborators of the web router.
type Deps struct {
	Sessions       *auth.Manager
	Service        *inventory.Service
	Metrics        *metrics.Metrics
	FlashKey       []byte
	SecureCookies  bool
	LoginRateLimit int // attempts per IP per minute; 0 means 10
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(d Deps) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	tiles, err := lru.New[string, []byte](tileCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating tile cache: %w", err)
	}

	s := &Server{
		Sessions:      d.Sessions,
		Service:       d.Service,
		Metrics:       d.Metrics,
		Templates:     templates,
		Flash:         NewFlash(d.FlashKey, d.SecureCookies),
		SecureCookies: d.SecureCookies,
		tiles:         tiles,
	}

	limit := d.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	loginLimiter := httprate.LimitByIP(limit, time.Minute)

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(d.Sessions)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.Handle("POST /login", loginLimiter(http.HandlerFunc(s.LoginSubmit)))
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Dashboard)))

	// Catalog routes use literal segments per kind; a leading wildcard
	// would overlap /static/ and /events/.
	for _, kind := range model.Kinds {
		seg := "/" + kind.Segment()

		mux.Handle("GET /events"+seg, cookieAuth(s.Events(kind)))
		mux.Handle("GET /placeholder"+seg+".png", cookieAuth(s.Placeholder(kind)))

		mux.Handle("GET "+seg+"/new", cookieAuth(s.ItemNewPage(kind)))
		mux.Handle("POST "+seg, cookieAuth(s.ItemCreateSubmit(kind)))
		mux.Handle("GET "+seg+"/{id}/edit", cookieAuth(s.ItemEditPage(kind)))
		mux.Handle("POST "+seg+"/{id}", cookieAuth(s.ItemUpdateSubmit(kind)))
		mux.Handle("GET "+seg+"/{id}/delete", cookieAuth(s.ItemDeletePage(kind)))
		mux.Handle("POST "+seg+"/{id}/delete", cookieAuth(s.ItemDeleteSubmit(kind)))
	}

	return mux, nil
}
