package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/zaloga/internal/auth"
)

const (
	msgMissingCredentials = "Please enter both username and password."
	msgInvalidCredentials = "Invalid username or password."
)

type loginData struct {
	PageData
	Username string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(authCookie); err == nil {
		if _, ok := s.Sessions.Restore(cookie.Value); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.Templates.Render(w, "login.html", &loginData{PageData: PageData{Title: "Login"}})
}

// LoginSubmit handles POST /login. The password is never echoed back.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.Render(w, "login.html", &loginData{
			PageData: PageData{Title: "Login", Error: msgMissingCredentials},
			Username: username,
		})
		return
	}

	user, token, err := s.Sessions.Login(r.Context(), strings.ToUpper(username), password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("login failed", "username", strings.ToUpper(username), "remote", r.RemoteAddr)
		}
		s.Templates.Render(w, "login.html", &loginData{
			PageData: PageData{Title: "Login", Error: msgInvalidCredentials},
			Username: username,
		})
		return
	}

	setAuthCookie(w, token, s.SecureCookies)
	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(authCookie); err == nil {
		s.Sessions.Logout(cookie.Value)
	}
	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
