// Package store is the durable state store: Job, Scene and (legacy)
// Segment records backed by Postgres — raw SQL, one file per entity,
// lib/pq as the driver, explicit Scan over named columns.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the raw SQL handle; *sql.DB methods are promoted.
type DB struct {
	*sql.DB
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Schema is the DDL for the three tables this package drives. It is applied
// by operators out of band (migration tooling lives outside the core); kept
// here as the authoritative reference for column names used by the raw SQL
// below.
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id                      UUID PRIMARY KEY,
	version                 INTEGER NOT NULL DEFAULT 1,
	status                  TEXT NOT NULL,
	preset_id               TEXT,
	brand_safe              BOOLEAN NOT NULL DEFAULT false,
	target_duration_seconds INTEGER NOT NULL,
	progress_pct            INTEGER NOT NULL DEFAULT 0,
	output_uri              TEXT,
	thumbnail_uri           TEXT,
	fallback_used           BOOLEAN NOT NULL DEFAULT false,
	fallback_reason         TEXT,
	error_message           TEXT,
	scene_graph_json        JSONB,
	timeline_json           JSONB,
	render_spec_json        JSONB,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scenes (
	scene_id            INTEGER NOT NULL,
	job_id              UUID NOT NULL REFERENCES jobs(id),
	index               INTEGER NOT NULL,
	description         TEXT NOT NULL,
	duration_ms         INTEGER NOT NULL,
	media_type          TEXT NOT NULL,
	engine_used         TEXT,
	status              TEXT NOT NULL,
	asset_path          TEXT,
	fallback_used       BOOLEAN NOT NULL DEFAULT false,
	render_duration_ms  INTEGER,
	error_message       TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (job_id, scene_id)
);

CREATE TABLE IF NOT EXISTS segments (
	segment_id          INTEGER NOT NULL,
	job_id              UUID NOT NULL REFERENCES jobs(id),
	index               INTEGER NOT NULL,
	description         TEXT NOT NULL,
	duration_ms         INTEGER NOT NULL,
	media_type          TEXT NOT NULL,
	engine_used         TEXT,
	status              TEXT NOT NULL,
	asset_path          TEXT,
	fallback_used       BOOLEAN NOT NULL DEFAULT false,
	render_duration_ms  INTEGER,
	error_message       TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (job_id, segment_id)
);
`
