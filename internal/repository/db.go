package repository

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

func init() {
	// Queries are written with ? placeholders and rebound per driver.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the database and applies driver-specific pool settings.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
		db, err := sqlx.ConnectContext(ctx, driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		return db, nil

	case DriverSQLite:
		db, err := sqlx.ConnectContext(ctx, driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect sqlite: %w", err)
		}
		// One connection serialises writers, which is what SQLite does anyway.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		pragmas := []string{
			"PRAGMA journal_mode=WAL;",
			"PRAGMA foreign_keys=ON;",
			"PRAGMA busy_timeout=5000;",
		}
		for _, p := range pragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlite %s: %w", p, err)
			}
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Migrate creates the schema if it does not exist. The statements are valid on both Postgres
// and SQLite.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id     BIGINT PRIMARY KEY,
		level  INTEGER NOT NULL DEFAULT 1,
		pos_x  DOUBLE PRECISION NOT NULL DEFAULT 0,
		pos_y  DOUBLE PRECISION NOT NULL DEFAULT 0,
		home_x DOUBLE PRECISION NOT NULL DEFAULT 0,
		home_y DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS professions (
		player_id  BIGINT NOT NULL,
		profession TEXT NOT NULL,
		level      INTEGER NOT NULL DEFAULT 1,
		experience INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (player_id, profession)
	)`,
	`CREATE TABLE IF NOT EXISTS player_buildings (
		player_id   BIGINT NOT NULL,
		building_id TEXT NOT NULL,
		level       INTEGER NOT NULL,
		PRIMARY KEY (player_id, building_id)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		player_id BIGINT NOT NULL,
		item_id   TEXT NOT NULL,
		quantity  INTEGER NOT NULL CHECK (quantity >= 0),
		PRIMARY KEY (player_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS crafted_items (
		job_id     TEXT PRIMARY KEY,
		player_id  BIGINT NOT NULL,
		item_id    TEXT NOT NULL,
		quality    TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crafted_items_player ON crafted_items (player_id)`,
	`CREATE TABLE IF NOT EXISTS resource_nodes (
		id              BIGINT PRIMARY KEY,
		type_id         TEXT NOT NULL,
		x               DOUBLE PRECISION NOT NULL,
		y               DOUBLE PRECISION NOT NULL,
		current_amount  INTEGER NOT NULL,
		max_amount      INTEGER NOT NULL,
		is_depleted     BOOLEAN NOT NULL DEFAULT FALSE,
		depleted_at     BIGINT,
		respawn_minutes INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id                TEXT PRIMARY KEY,
		owner_id          BIGINT NOT NULL,
		kind              TEXT NOT NULL,
		status            TEXT NOT NULL,
		node_id           BIGINT NOT NULL DEFAULT 0,
		tool_id           TEXT NOT NULL DEFAULT '',
		building_id       TEXT NOT NULL DEFAULT '',
		target_level      INTEGER NOT NULL DEFAULT 0,
		recipe_id         TEXT NOT NULL DEFAULT '',
		quality           TEXT NOT NULL DEFAULT '',
		consumed_inputs   TEXT NOT NULL DEFAULT '[]',
		started_at        BIGINT NOT NULL,
		finish_at         BIGINT NOT NULL,
		paused_at         BIGINT,
		remaining_seconds BIGINT,
		completed_at      BIGINT,
		reward            TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs (owner_id, started_at)`,
	// One row per owner: the single-active-job mutex across all job kinds.
	`CREATE TABLE IF NOT EXISTS active_jobs (
		owner_id   BIGINT PRIMARY KEY,
		job_id     TEXT NOT NULL UNIQUE,
		kind       TEXT NOT NULL,
		claimed_at BIGINT NOT NULL
	)`,
}
