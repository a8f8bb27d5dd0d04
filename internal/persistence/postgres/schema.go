package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema creates the archive tables. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS resonance_snapshots (
		id               BIGSERIAL PRIMARY KEY,
		ts               TIMESTAMPTZ NOT NULL,
		resonance        DOUBLE PRECISION NOT NULL CHECK (resonance >= 0 AND resonance <= 1),
		alerts_triggered INTEGER NOT NULL DEFAULT 0 CHECK (alerts_triggered >= 0),
		solar_source     TEXT NOT NULL,
		social_source    TEXT NOT NULL,
		solar            JSONB NOT NULL,
		social           JSONB NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS resonance_snapshots_ts_idx ON resonance_snapshots (ts)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id              TEXT PRIMARY KEY,
		kind            TEXT NOT NULL,
		level           TEXT NOT NULL,
		category        TEXT NOT NULL,
		title           TEXT NOT NULL,
		message         TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		active_seconds  BIGINT NOT NULL,
		payload         JSONB,
		acknowledged    BOOLEAN NOT NULL DEFAULT false,
		acknowledged_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS alerts_created_at_idx ON alerts (created_at)`,
	`CREATE INDEX IF NOT EXISTS alerts_kind_idx ON alerts (kind, created_at)`,
}

// Migrate applies Schema in one transaction
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range Schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
