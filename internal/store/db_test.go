package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db := testDB(t)

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
	if db.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want %q", db.Driver, DriverSQLite)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "charmlink.db")

	db, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Reopening must not re-run migrations
	db.Close()
	db2, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	v, err := db2.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(migrations))
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestOpenPostgresEmptyDSN(t *testing.T) {
	if _, err := Open(DriverPostgres, ""); err == nil {
		t.Error("expected error for empty postgres dsn")
	}
}

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 4 {
		t.Errorf("SchemaVersion = %d, want 4", v)
	}
}

func TestTablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"schema_versions", "charms", "habits", "habit_logs"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestCharmConstraints(t *testing.T) {
	db := testDB(t)

	_, err := db.Exec(`
		INSERT INTO charms (id, owner_id, product_type, label, created_at)
		VALUES ('c1', 'u1', 'habit', 'ring', 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO charms (id, owner_id, product_type, label, created_at)
		VALUES ('c2', 'u1', 'bracelet', 'x', 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid product_type, got nil")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	charm, err := db.CreateCharm(ctx, "u1", ProductHabit, "ring")
	if err != nil {
		t.Fatalf("CreateCharm: %v", err)
	}
	h := seedHabit(t, db, charm.ID)

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.CreateLog(ctx, h.ID, "2024-03-15"); err != nil {
			return err
		}
		if err := tx.UpdateCounters(ctx, h.ID, "2024-03-15", 1, 1, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	days, err := db.LogDays(ctx, h.ID)
	if err != nil {
		t.Fatalf("LogDays: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("days after rollback = %v, want none", days)
	}

	got, err := db.GetHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetHabit: %v", err)
	}
	if got.TotalCompletions != 0 || got.CurrentStreak != 0 {
		t.Errorf("counters after rollback = %+v, want zero", got)
	}
}
