// Package inventory implements the catalog operations shared by the web
// dashboards and the JSON API: listing, live-change subscriptions, and
// admin-only writes for spare parts and machines.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
)

var (
	// ErrForbidden is returned when a non-admin session attempts a write.
	ErrForbidden = errors.New("admin role required")
	// ErrNotConfirmed is returned by Delete when the caller has not confirmed.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// Service reads and writes catalog items and announces changes on the
// broker after each successful write.
type Service struct {
	db     *db.DB
	broker notify.Broker
}

// NewService creates a service backed by database and broker.
func NewService(database *db.DB, broker notify.Broker) *Service {
	return &Service{db: database, broker: broker}
}

// List returns every item of kind, newest first.
func (s *Service) List(ctx context.Context, kind model.Kind) ([]model.Item, error) {
	items, err := store.ListItems(ctx, s.db, kind)
	if err != nil {
		slog.Error("failed to list items", "kind", kind, "error", err)
		return nil, err
	}
	return items, nil
}

// Get returns one item of kind, or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, kind model.Kind, id string) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, kind, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to get item", "kind", kind, "id", id, "error", err)
	}
	return item, err
}

// Subscribe calls onChange after any insert, update, or delete on kind's
// table. The returned release function is idempotent; once it returns no
// further callbacks fire. It must not be called from within onChange.
func (s *Service) Subscribe(ctx context.Context, kind model.Kind, onChange func()) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	sub, err := s.broker.Subscribe(ctx, kind.Table())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribing to %s: %w", kind.Table(), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C():
				if !ok {
					return
				}
				if ctx.Err() != nil {
					return
				}
				onChange()
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			if err := sub.Close(); err != nil {
				slog.Warn("failed to close subscription", "table", kind.Table(), "error", err)
			}
			<-done
		})
	}
	return release, nil
}

// Create inserts a new item. Only admins may create items.
func (s *Service) Create(ctx context.Context, item model.Item) (*model.Item, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	created, err := store.CreateItem(ctx, s.db, item)
	if err != nil {
		slog.Error("failed to create item", "kind", item.Kind, "error", err)
		return nil, err
	}

	s.publish(ctx, item.Kind)
	slog.Info("item created", "kind", created.Kind, "id", created.ID, "by", actor(ctx))
	return created, nil
}

// Update overwrites the mutable fields of the item with id.
func (s *Service) Update(ctx context.Context, id string, item model.Item) (*model.Item, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	updated, err := store.UpdateItem(ctx, s.db, id, item)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("failed to update item", "kind", item.Kind, "id", id, "error", err)
		}
		return nil, err
	}

	s.publish(ctx, item.Kind)
	slog.Info("item updated", "kind", updated.Kind, "id", id, "by", actor(ctx))
	return updated, nil
}

// Delete removes the item with id. Nothing is deleted unless confirmed.
func (s *Service) Delete(ctx context.Context, kind model.Kind, id string, confirmed bool) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := store.DeleteItem(ctx, s.db, kind, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("failed to delete item", "kind", kind, "id", id, "error", err)
		}
		return err
	}

	s.publish(ctx, kind)
	slog.Info("item deleted", "kind", kind, "id", id, "by", actor(ctx))
	return nil
}

// LowStock returns the items below the restock threshold.
func (s *Service) LowStock(items []model.Item) []model.Item {
	return model.LowStock(items)
}

// publish announces a change. A failed publish does not fail the write;
// subscribers catch up on their next refresh.
func (s *Service) publish(ctx context.Context, kind model.Kind) {
	if err := s.broker.Publish(ctx, kind.Table()); err != nil {
		slog.Warn("failed to publish change", "table", kind.Table(), "error", err)
	}
}

func requireAdmin(ctx context.Context) error {
	if !model.UserFromContext(ctx).IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func actor(ctx context.Context) string {
	if u := model.UserFromContext(ctx); u != nil {
		return u.Username
	}
	return ""
}
