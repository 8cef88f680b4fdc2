package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMiddlewareRecordsPattern(t *testing.T) {
	m := New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	m.Middleware(mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/items/42", nil))

	out := scrape(t, m)
	if !strings.Contains(out, `http_requests_total{method="GET",path="GET /items/{id}",status="418"} 1`) {
		t.Errorf("expected request counter with route pattern, got:\n%s", out)
	}
	if !strings.Contains(out, "http_request_duration_seconds_bucket") {
		t.Error("expected latency histogram")
	}
}

func TestStreamsAndWrites(t *testing.T) {
	m := New()

	done := m.StreamOpened("part")
	if out := scrape(t, m); !strings.Contains(out, `zaloga_live_streams{kind="part"} 1`) {
		t.Errorf("expected one open stream, got:\n%s", out)
	}
	done()
	if out := scrape(t, m); !strings.Contains(out, `zaloga_live_streams{kind="part"} 0`) {
		t.Errorf("expected stream closed, got:\n%s", out)
	}

	m.Write("machine", "create", nil)
	m.Write("machine", "create", errors.New("boom"))
	out := scrape(t, m)
	if !strings.Contains(out, `zaloga_item_writes_total{kind="machine",op="create",result="ok"} 1`) ||
		!strings.Contains(out, `zaloga_item_writes_total{kind="machine",op="create",result="error"} 1`) {
		t.Errorf("expected write counters, got:\n%s", out)
	}
}
