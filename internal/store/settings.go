package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/zaloga/internal/db"
)

// Settings keys.
const (
	SettingJWTSecret = "jwt_secret"
	SettingFlashKey  = "flash_key"
)

// GetSecret retrieves a hex-encoded random secret stored under key.
// If no secret exists, it generates one of size bytes, stores it, and returns it.
// Uses insert-if-absent + re-select to avoid a TOCTOU race on concurrent startup.
func GetSecret(ctx context.Context, database *db.DB, key string, size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", key, err)
	}
	candidate := hex.EncodeToString(buf)

	query, args, err := database.Builder().
		Insert("settings").
		Columns("key", "value").
		Values(key, candidate).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building insert: %w", err)
	}
	if _, err := database.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}

	// Always read back (either our insert or the existing value).
	query, args, err = database.Builder().Select("value").From("settings").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", fmt.Errorf("building select: %w", err)
	}
	var secret string
	if err := database.QueryRowContext(ctx, query, args...).Scan(&secret); err != nil {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}

	return secret, nil
}
