package web

import (
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
)

type dashboardData struct {
	PageData
	Tab   model.Kind
	Kinds []model.Kind
	List  inventory.Snapshot
}

// Dashboard handles GET /. Admins and staff get separate dashboards over
// the same list view.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	tab := model.KindPart
	if k, err := model.ParseKind(r.URL.Query().Get("tab")); err == nil {
		tab = k
	}

	view := inventory.NewView(s.Service, tab, user.IsAdmin())
	view.Refresh(r.Context())

	page := "staff_dashboard.html"
	if user.IsAdmin() {
		page = "admin_dashboard.html"
	}

	errMsg, success := s.Flash.Pop(w, r)
	s.Templates.Render(w, page, &dashboardData{
		PageData: PageData{Title: "Dashboard", User: user, Error: errMsg, Success: success},
		Tab:      tab,
		Kinds:    model.Kinds,
		List:     view.Snapshot(),
	})
}
