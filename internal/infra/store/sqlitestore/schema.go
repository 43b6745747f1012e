package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations are applied in order starting from version 0. Existing entries
// must never change.
var migrations = []func(context.Context, *sql.Tx) error{
	migrateV0,
}

func migrateV0(ctx context.Context, tx *sql.Tx) error {
	const schema = `
CREATE TABLE IF NOT EXISTS usage_logs (
    id TEXT PRIMARY KEY,
    record_id TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT '',
    success INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL DEFAULT 0,
    query TEXT NOT NULL DEFAULT '',
    occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_logs_occurred ON usage_logs(occurred_at);
CREATE INDEX IF NOT EXISTS idx_usage_logs_record ON usage_logs(record_id);

CREATE TABLE IF NOT EXISTS usage_counters (
    record_id TEXT PRIMARY KEY,
    usage_count INTEGER NOT NULL DEFAULT 0,
    success_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS daily_stats (
    record_id TEXT NOT NULL,
    day TEXT NOT NULL,
    usage_count INTEGER NOT NULL,
    success_count INTEGER NOT NULL,
    avg_duration_ms REAL NOT NULL,
    PRIMARY KEY (record_id, day)
);
CREATE INDEX IF NOT EXISTS idx_daily_stats_day ON daily_stats(day);

CREATE TABLE IF NOT EXISTS weekly_stats (
    record_id TEXT NOT NULL,
    week_start TEXT NOT NULL,
    usage_count INTEGER NOT NULL,
    success_count INTEGER NOT NULL,
    avg_duration_ms REAL NOT NULL,
    PRIMARY KEY (record_id, week_start)
);
CREATE INDEX IF NOT EXISTS idx_weekly_stats_week ON weekly_stats(week_start);
`
	_, err := tx.ExecContext(ctx, schema)
	return err
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), -1) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	if current >= len(migrations) {
		return fmt.Errorf("unsupported usage schema version %d", current)
	}

	for version := current + 1; version < len(migrations); version++ {
		if err := runMigration(ctx, db, version); err != nil {
			return fmt.Errorf("run migration %d: %w", version, err)
		}
	}
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := migrations[version](ctx, tx); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	appliedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", version, appliedAt); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
