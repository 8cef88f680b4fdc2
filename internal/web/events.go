package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
)

// heartbeatInterval keeps idle streams open through proxies.
const heartbeatInterval = 25 * time.Second

// Events handles GET /events/{kind}. Each stream mounts its own list view
// and pushes the re-rendered list as an "items" event after every refresh.
func (s *Server) Events(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := model.UserFromContext(r.Context())
		rc := http.NewResponseController(w)

		// Streams outlive the server write timeout.
		if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			slog.Warn("failed to clear write deadline", "error", err)
		}

		// Only the newest snapshot matters; older pending ones are dropped.
		updates := make(chan inventory.Snapshot, 1)
		var mu sync.Mutex
		view := inventory.NewView(s.Service, kind, user.IsAdmin())
		view.OnRefresh(func(snap inventory.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			select {
			case <-updates:
			default:
			}
			updates <- snap
		})

		if err := view.Mount(r.Context()); err != nil {
			slog.Error("failed to open live list", "kind", kind, "error", err)
			http.Error(w, "live updates unavailable", http.StatusInternalServerError)
			return
		}
		defer view.Unmount()
		defer s.Metrics.StreamOpened(string(kind))()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			slog.Error("event stream not supported", "error", err)
			return
		}

		slog.Debug("live list opened", "kind", kind, "user", user.Username)

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			var event sse.Event
			select {
			case <-r.Context().Done():
				slog.Debug("live list closed", "kind", kind, "user", user.Username)
				return
			case snap := <-updates:
				var buf bytes.Buffer
				if err := s.Templates.RenderFragment(&buf, "item_list", snap); err != nil {
					slog.Error("failed to render live list", "kind", kind, "error", err)
					continue
				}
				event = sse.Event{Event: "items", Data: buf.String()}
			case <-heartbeat.C:
				event = sse.Event{Event: "ping", Data: "ok"}
			}

			if err := sse.Encode(w, event); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
