package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

const (
	msgSaveFailed   = "Error saving item. Please try again."
	msgDeleteFailed = "Error deleting item. Please try again."
	msgRequired     = "Please fill in all required fields."
)

type editorData struct {
	PageData
	Editor *inventory.Editor
	Action string
}

type confirmData struct {
	PageData
	Item *model.Item
}

func tabURL(kind model.Kind) string {
	return "/?tab=" + kind.Segment()
}

func formFromRequest(r *http.Request) inventory.Form {
	return inventory.Form{
		ImageURL:     r.FormValue("image_url"),
		Name:         r.FormValue("name"),
		SerialNumber: r.FormValue("serial_number"),
		Quantity:     r.FormValue("quantity"),
	}
}

func (s *Server) renderEditor(w http.ResponseWriter, r *http.Request, e *inventory.Editor, errMsg string) {
	action := "/" + e.Kind.Segment()
	title := "Add New " + e.Kind.Label()
	if !e.Creating() {
		action += "/" + e.Target.ID
		title = "Edit " + e.Kind.Label()
	}

	s.Templates.Render(w, "editor.html", &editorData{
		PageData: PageData{Title: title, User: model.UserFromContext(r.Context()), Error: errMsg},
		Editor:   e,
		Action:   action,
	})
}

// loadItem fetches the item named by the {id} path value, writing 404 or
// 500 on failure.
func (s *Server) loadItem(w http.ResponseWriter, r *http.Request, kind model.Kind) (*model.Item, bool) {
	item, err := s.Service.Get(r.Context(), kind, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "item not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return item, true
}

// ItemNewPage handles GET /{kind}/new.
func (s *Server) ItemNewPage(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}
		s.renderEditor(w, r, inventory.NewEditor(kind, nil), "")
	}
}

// ItemEditPage handles GET /{kind}/{id}/edit.
func (s *Server) ItemEditPage(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}
		item, ok := s.loadItem(w, r, kind)
		if !ok {
			return
		}
		s.renderEditor(w, r, inventory.NewEditor(kind, item), "")
	}
}

// ItemCreateSubmit handles POST /{kind}.
func (s *Server) ItemCreateSubmit(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}
		s.submitEditor(w, r, inventory.NewEditor(kind, nil), "create")
	}
}

// ItemUpdateSubmit handles POST /{kind}/{id}.
func (s *Server) ItemUpdateSubmit(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}
		item, ok := s.loadItem(w, r, kind)
		if !ok {
			return
		}
		s.submitEditor(w, r, inventory.NewEditor(kind, item), "update")
	}
}

// submitEditor saves the posted form. Failures re-render the editor with
// the submitted values so nothing typed is lost.
func (s *Server) submitEditor(w http.ResponseWriter, r *http.Request, e *inventory.Editor, op string) {
	saved, err := e.Submit(r.Context(), s.Service, formFromRequest(r))

	switch {
	case err == nil:
		s.Metrics.Write(string(e.Kind), op, nil)
		s.Flash.Set(w, r, flashSuccess, e.Kind.Label()+" "+saved.Name+" saved.")
		http.Redirect(w, r, tabURL(e.Kind), http.StatusSeeOther)
	case errors.Is(err, inventory.ErrValidation):
		s.renderEditor(w, r, e, msgRequired)
	case errors.Is(err, inventory.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "item not found", http.StatusNotFound)
	default:
		s.Metrics.Write(string(e.Kind), op, err)
		slog.Error("failed to save item", "kind", e.Kind, "op", op, "error", err)
		s.renderEditor(w, r, e, msgSaveFailed)
	}
}

// ItemDeletePage handles GET /{kind}/{id}/delete, the confirmation step.
func (s *Server) ItemDeletePage(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}
		item, ok := s.loadItem(w, r, kind)
		if !ok {
			return
		}
		s.Templates.Render(w, "confirm_delete.html", &confirmData{
			PageData: PageData{Title: "Delete " + kind.Label(), User: model.UserFromContext(r.Context())},
			Item:     item,
		})
	}
}

// ItemDeleteSubmit handles POST /{kind}/{id}/delete. Only confirm=yes
// deletes; anything else returns to the list untouched.
func (s *Server) ItemDeleteSubmit(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		confirmed := r.FormValue("confirm") == "yes"
		err := s.Service.Delete(r.Context(), kind, r.PathValue("id"), confirmed)

		switch {
		case err == nil:
			s.Metrics.Write(string(kind), "delete", nil)
			s.Flash.Set(w, r, flashSuccess, kind.Label()+" deleted.")
		case errors.Is(err, inventory.ErrNotConfirmed):
		case errors.Is(err, inventory.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		default:
			s.Metrics.Write(string(kind), "delete", err)
			s.Flash.Set(w, r, flashError, msgDeleteFailed)
		}

		http.Redirect(w, r, tabURL(kind), http.StatusSeeOther)
	}
}
