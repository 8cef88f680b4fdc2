// Package auth verifies credentials and issues, restores, and revokes
// session tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// ErrInvalidCredentials is returned for any failed login. It deliberately
// does not distinguish unknown users, wrong passwords, and lookup errors.
var ErrInvalidCredentials = errors.New("invalid username or password")

// maxRevoked bounds the logout denylist.
const maxRevoked = 10000

// Manager owns the session lifecycle. It is the only component that creates
// or revokes session tokens.
type Manager struct {
	db      *db.DB
	secret  string
	revoked *expirable.LRU[string, struct{}]
}

// NewManager creates a session manager signing tokens with secret.
func NewManager(database *db.DB, secret string) *Manager {
	return &Manager{
		db:      database,
		secret:  secret,
		revoked: expirable.NewLRU[string, struct{}](maxRevoked, nil, TokenExpiry),
	}
}

// Login verifies username and password and returns the user together with a
// signed session token. Callers normalise the username before calling.
func (m *Manager) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := store.GetUserByUsername(ctx, m.db, username)
	if err != nil {
		slog.Error("login lookup failed", "username", username, "error", err)
		return nil, "", ErrInvalidCredentials
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateToken(m.secret, user.ID, user.Username, user.Role)
	if err != nil {
		slog.Error("failed to generate token", "username", username, "error", err)
		return nil, "", ErrInvalidCredentials
	}

	return &model.User{ID: user.ID, Username: user.Username, Role: user.Role}, token, nil
}

// Restore decodes a persisted session token without contacting the store.
// Any malformed, expired, or revoked token yields no session.
func (m *Manager) Restore(token string) (*model.User, bool) {
	if token == "" {
		return nil, false
	}
	claims, err := ValidateToken(m.secret, token)
	if err != nil {
		return nil, false
	}
	if m.revoked.Contains(claims.ID) {
		return nil, false
	}
	return claims.User(), true
}

// Logout revokes token for the remainder of its lifetime. It always
// succeeds and is idempotent; unparseable tokens are ignored.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	claims, err := ValidateToken(m.secret, token)
	if err != nil || claims.ID == "" {
		return
	}
	m.revoked.Add(claims.ID, struct{}{})
	if claims.ExpiresAt != nil {
		slog.Debug("session revoked", "user", claims.Username, "expires_in", time.Until(claims.ExpiresAt.Time).Round(time.Second))
	}
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
