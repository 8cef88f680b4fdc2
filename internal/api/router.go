package api

import (
	"net/http"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(sessions *auth.Manager, svc *inventory.Service, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Sessions: sessions}
	itemsHandler := &ItemsHandler{Service: svc, Metrics: m}

	authMW := AuthMiddleware(sessions)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))

	// Catalog: read (all roles), write (admin).
	mux.Handle("GET /api/{kind}", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/{kind}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/{kind}/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/{kind}/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/{kind}/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Delete))))

	return mux
}
