package db

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
-- Business objects; non case log attributes are stored as rows of object_attributes
CREATE TABLE objects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    class TEXT NOT NULL,
    name TEXT NOT NULL,
    is_deleted INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE object_attributes (
    object_id INTEGER NOT NULL REFERENCES objects(id),
    att_code TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (object_id, att_code)
);

-- Case log messages, append only
CREATE TABLE caselog_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    object_id INTEGER NOT NULL REFERENCES objects(id),
    att_code TEXT NOT NULL,
    message TEXT NOT NULL,
    user_login TEXT NOT NULL,
    user_name TEXT,
    created_at TEXT NOT NULL
);

-- One row per logical update
CREATE TABLE changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,
    user_login TEXT NOT NULL,
    user_name TEXT,
    origin TEXT NOT NULL DEFAULT 'interactive'
);

-- One row per mutation of one object within a change
CREATE TABLE change_ops (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    change_id INTEGER NOT NULL REFERENCES changes(id),
    op_type TEXT NOT NULL,
    obj_class TEXT NOT NULL,
    obj_key INTEGER NOT NULL,
    att_code TEXT,
    old_value TEXT,
    new_value TEXT
);

CREATE INDEX idx_objects_class ON objects(class);
CREATE INDEX idx_caselog_object ON caselog_entries(object_id, att_code);
CREATE INDEX idx_change_ops_object ON change_ops(obj_class, obj_key, id);
`,
	},
	{
		version: 2,
		sql: `
-- Hash of the tracked state, compared before diffing an update
ALTER TABLE objects ADD COLUMN state_hash TEXT NOT NULL DEFAULT '';
`,
	},
}

// RunMigrations applies all pending database migrations
func (db *DB) RunMigrations() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if _, err := tx.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}

// ResetTables lists the data tables in foreign key safe deletion order
var ResetTables = []string{
	"change_ops",
	"changes",
	"caselog_entries",
	"object_attributes",
	"objects",
}

// HistoryTables holds the change history only
var HistoryTables = []string{
	"change_ops",
	"changes",
}

// ClearTables deletes every row of tables in one transaction
func (db *DB) ClearTables(ctx context.Context, tables ...string) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
