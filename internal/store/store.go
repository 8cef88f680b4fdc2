// Package store implements persistence for users, catalog items, and settings.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// now returns the timestamp assigned to created_at/updated_at.
var now = func() time.Time {
	return time.Now().UTC()
}
