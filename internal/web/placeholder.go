package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/model"
)

// tileCacheSize bounds the number of cached placeholder tiles.
const tileCacheSize = 512

// Placeholder handles GET /placeholder/{kind}.png?label=..., serving a
// generated tile for items without a picture.
func (s *Server) Placeholder(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		label := r.URL.Query().Get("label")
		key := string(kind) + ":" + imaging.Initials(label)

		data, ok := s.tiles.Get(key)
		if !ok {
			var err error
			data, err = imaging.Placeholder(kind, label)
			if err != nil {
				slog.Error("failed to render placeholder", "kind", kind, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			s.tiles.Add(key, data)
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if _, err := w.Write(data); err != nil {
			slog.Error("failed to write placeholder response", "error", err)
		}
	}
}
