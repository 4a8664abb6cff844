package store

import (
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// Statements stay within the subset shared by SQLite and PostgreSQL.
var migrations = []migration{
	{
		Version:     1,
		Description: "charms: NFC charms bound to a product type",
		SQL: `
CREATE TABLE charms (
    id            TEXT PRIMARY KEY,
    owner_id      TEXT NOT NULL,
    product_type  TEXT NOT NULL CHECK (product_type IN ('memory', 'life', 'habit')),
    label         TEXT NOT NULL DEFAULT '',
    created_at    BIGINT NOT NULL
);

CREATE INDEX idx_charms_owner ON charms(owner_id);
`,
	},
	{
		Version:     2,
		Description: "habits: tracked habits with cached streak counters",
		SQL: `
CREATE TABLE habits (
    id                 TEXT PRIMARY KEY,
    charm_id           TEXT NOT NULL,
    owner_id           TEXT NOT NULL,
    title              TEXT NOT NULL,
    focus_area         TEXT NOT NULL CHECK (focus_area IN ('mindfulness', 'fitness', 'nutrition', 'learning', 'productivity', 'connection', 'creativity')),
    target_days        INTEGER NOT NULL DEFAULT 21,

    -- Cached counters, recomputed from habit_logs on every mutation
    current_streak     INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    longest_streak     INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
    total_completions  INTEGER NOT NULL DEFAULT 0 CHECK (total_completions >= 0),

    created_at         BIGINT NOT NULL,

    FOREIGN KEY (charm_id) REFERENCES charms(id) ON DELETE CASCADE
);

CREATE INDEX idx_habits_charm ON habits(charm_id);
CREATE INDEX idx_habits_owner ON habits(owner_id);
`,
	},
	{
		Version:     3,
		Description: "habit_logs: one row per habit per calendar day",
		SQL: `
CREATE TABLE habit_logs (
    id          TEXT PRIMARY KEY,
    habit_id    TEXT NOT NULL,
    day         TEXT NOT NULL CHECK (length(day) = 10),
    created_at  BIGINT NOT NULL,

    UNIQUE (habit_id, day),
    FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
);
`,
	},
	{
		Version:     4,
		Description: "habits: day the cached counters were computed for",
		SQL: `
ALTER TABLE habits ADD COLUMN counted_on TEXT NOT NULL DEFAULT '';
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow(db.Rebind("SELECT COUNT(*) FROM schema_versions WHERE version = ?"), m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			db.Rebind("INSERT INTO schema_versions (version, description, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Description, time.Now().UnixMilli(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
