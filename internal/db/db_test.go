package db

import (
	"context"
	"testing"
)

func TestMigrateCreatesTables(t *testing.T) {
	database := NewTestDB(t)

	for _, table := range []string{"users", "spare_parts", "machines"} {
		var name string
		err := database.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := Migrate(context.Background(), database); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestQuantityCheckConstraint(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(
		`INSERT INTO spare_parts (id, part_name, serial_number, quantity, created_at, updated_at)
		 VALUES ('x', 'Bolt', 'SN', -1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
	)
	if err == nil {
		t.Error("expected negative quantity to be rejected")
	}
}

func TestBuilderPlaceholders(t *testing.T) {
	sqlite := &DB{Dialect: SQLite}
	query, _, err := sqlite.Builder().Select("id").From("machines").Where("id = ?", "a").ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if query != "SELECT id FROM machines WHERE id = ?" {
		t.Errorf("unexpected sqlite query: %s", query)
	}

	pg := &DB{Dialect: Postgres}
	query, _, err = pg.Builder().Select("id").From("machines").Where("id = ?", "a").ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if query != "SELECT id FROM machines WHERE id = $1" {
		t.Errorf("unexpected postgres query: %s", query)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
