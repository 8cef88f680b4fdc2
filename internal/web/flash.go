package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const flashCookie = "zaloga_flash"

const (
	flashError   = "error"
	flashSuccess = "success"
)

// Flash stores one-shot messages across a redirect in a signed cookie.
type Flash struct {
	store *sessions.CookieStore
}

// NewFlash creates a flash store authenticated with key. A nil key uses a
// random key, so messages do not survive a restart.
func NewFlash(key []byte, secure bool) *Flash {
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Flash{store: store}
}

// Set queues a message of the given level for the next page render.
func (f *Flash) Set(w http.ResponseWriter, r *http.Request, level, message string) {
	// A cookie that fails to decode yields a fresh session.
	session, _ := f.store.Get(r, flashCookie)
	session.AddFlash(message, level)
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to save flash", "error", err)
	}
}

// Pop returns and clears pending error and success messages. It must be
// called before the response body is written.
func (f *Flash) Pop(w http.ResponseWriter, r *http.Request) (errMsg, success string) {
	session, err := f.store.Get(r, flashCookie)
	if err != nil {
		return "", ""
	}

	errs := session.Flashes(flashError)
	oks := session.Flashes(flashSuccess)
	if len(errs) == 0 && len(oks) == 0 {
		return "", ""
	}
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to clear flash", "error", err)
	}

	return last(errs), last(oks)
}

func last(flashes []any) string {
	if len(flashes) == 0 {
		return ""
	}
	s, _ := flashes[len(flashes)-1].(string)
	return s
}
