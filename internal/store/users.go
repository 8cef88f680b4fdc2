package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

var userColumns = []string{"id", "username", "password_hash", "role", "created_at"}

// CreateUser creates a new user.
func CreateUser(ctx context.Context, database *db.DB, username, passwordHash, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	query, args, err := database.Builder().
		Insert("users").
		Columns("username", "password_hash", "role").
		Values(username, passwordHash, role).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}

	var id int64
	if err := database.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, database, id)
}

// GetUser returns a user by ID, or nil if none exists.
func GetUser(ctx context.Context, database *db.DB, id int64) (*model.User, error) {
	return getUserWhere(ctx, database, sq.Eq{"id": id})
}

// GetUserByUsername returns a user by exact username, or nil if none exists.
func GetUserByUsername(ctx context.Context, database *db.DB, username string) (*model.User, error) {
	return getUserWhere(ctx, database, sq.Eq{"username": username})
}

func getUserWhere(ctx context.Context, database *db.DB, where sq.Eq) (*model.User, error) {
	query, args, err := database.Builder().Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	u := &model.User{}
	err = database.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}
