package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

// itemRow is the wire shape of a spare_parts or machines row. The
// kind-specific name column is aliased to "name" when selected.
type itemRow struct {
	ID           string    `db:"id"`
	ImageURL     string    `db:"image_url"`
	Name         string    `db:"name"`
	SerialNumber string    `db:"serial_number"`
	Quantity     int       `db:"quantity"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r itemRow) toModel(kind model.Kind) model.Item {
	return model.Item{
		ID:           r.ID,
		Kind:         kind,
		Name:         r.Name,
		ImageURL:     r.ImageURL,
		SerialNumber: r.SerialNumber,
		Quantity:     r.Quantity,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func selectItems(database *db.DB, kind model.Kind) sq.SelectBuilder {
	return database.Builder().
		Select("id", "image_url", kind.NameColumn()+" AS name", "serial_number", "quantity", "created_at", "updated_at").
		From(kind.Table())
}

// CreateItem inserts a new item of the given kind and returns it with its
// assigned id and timestamps.
func CreateItem(ctx context.Context, database *db.DB, item model.Item) (*model.Item, error) {
	id := uuid.NewString()
	ts := now()

	query, args, err := database.Builder().
		Insert(item.Kind.Table()).
		Columns("id", "image_url", item.Kind.NameColumn(), "serial_number", "quantity", "created_at", "updated_at").
		Values(id, item.ImageURL, item.Name, item.SerialNumber, item.Quantity, ts, ts).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}

	if _, err := database.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("creating %s: %w", item.Kind, err)
	}

	return GetItem(ctx, database, item.Kind, id)
}

// GetItem returns an item by ID, or ErrNotFound.
func GetItem(ctx context.Context, database *db.DB, kind model.Kind, id string) (*model.Item, error) {
	query, args, err := selectItems(database, kind).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	var rows []itemRow
	if err := sqlscan.Select(ctx, database, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("getting %s: %w", kind, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	item := rows[0].toModel(kind)
	return &item, nil
}

// ListItems returns all items of a kind, most recently created first.
func ListItems(ctx context.Context, database *db.DB, kind model.Kind) ([]model.Item, error) {
	query, args, err := selectItems(database, kind).OrderBy("created_at DESC", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	var rows []itemRow
	if err := sqlscan.Select(ctx, database, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind.Table(), err)
	}

	items := make([]model.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toModel(kind))
	}
	return items, nil
}

// UpdateItem overwrites every mutable field of an item and bumps updated_at.
func UpdateItem(ctx context.Context, database *db.DB, id string, item model.Item) (*model.Item, error) {
	query, args, err := database.Builder().
		Update(item.Kind.Table()).
		Set("image_url", item.ImageURL).
		Set(item.Kind.NameColumn(), item.Name).
		Set("serial_number", item.SerialNumber).
		Set("quantity", item.Quantity).
		Set("updated_at", now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update: %w", err)
	}

	result, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", item.Kind, err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}

	return GetItem(ctx, database, item.Kind, id)
}

// DeleteItem permanently removes an item.
func DeleteItem(ctx context.Context, database *db.DB, kind model.Kind, id string) error {
	query, args, err := database.Builder().
		Delete(kind.Table()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	result, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	return requireRow(result)
}

// requireRow maps zero affected rows to ErrNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
