package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/persistence"
)

// checkViolation is the Postgres SQLSTATE for a failed CHECK constraint
const checkViolation = "23514"

// snapshotRepo implements persistence.SnapshotRepo for PostgreSQL
type snapshotRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotRepo creates a PostgreSQL snapshot repository
func NewSnapshotRepo(db *sqlx.DB, timeout time.Duration) persistence.SnapshotRepo {
	return &snapshotRepo{db: db, timeout: timeout}
}

type snapshotRow struct {
	Timestamp       time.Time `db:"ts"`
	Resonance       float64   `db:"resonance"`
	AlertsTriggered int       `db:"alerts_triggered"`
	Solar           []byte    `db:"solar"`
	Social          []byte    `db:"social"`
}

// Insert stores one snapshot with the metric records as JSONB
func (r *snapshotRepo) Insert(ctx context.Context, snap history.ResonanceSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	solarJSON, err := json.Marshal(snap.Solar)
	if err != nil {
		return fmt.Errorf("failed to marshal solar metrics: %w", err)
	}
	socialJSON, err := json.Marshal(snap.Social)
	if err != nil {
		return fmt.Errorf("failed to marshal social metrics: %w", err)
	}

	query := `
		INSERT INTO resonance_snapshots (ts, resonance, alerts_triggered, solar_source, social_source, solar, social)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		snap.Timestamp, snap.Resonance, snap.AlertsTriggered,
		string(snap.Solar.DataSource), string(snap.Social.DataSource),
		solarJSON, socialJSON)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == checkViolation {
			return fmt.Errorf("snapshot rejected by constraint %s: %w", pqErr.Constraint, err)
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// ListRange returns snapshots in the window, oldest first
func (r *snapshotRepo) ListRange(ctx context.Context, tr persistence.TimeRange, limit int) ([]history.ResonanceSnapshot, error) {
	if !tr.Valid() {
		return nil, fmt.Errorf("invalid time range: %s after %s", tr.From, tr.To)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ts, resonance, alerts_triggered, solar, social
		FROM resonance_snapshots
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts ASC
		LIMIT $3`

	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, query, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}

	out := make([]history.ResonanceSnapshot, 0, len(rows))
	for _, row := range rows {
		snap := history.ResonanceSnapshot{
			Timestamp:       row.Timestamp,
			Resonance:       row.Resonance,
			AlertsTriggered: row.AlertsTriggered,
		}
		if err := json.Unmarshal(row.Solar, &snap.Solar); err != nil {
			return nil, fmt.Errorf("failed to unmarshal solar metrics: %w", err)
		}
		if err := json.Unmarshal(row.Social, &snap.Social); err != nil {
			return nil, fmt.Errorf("failed to unmarshal social metrics: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Count returns the number of snapshots in the window
func (r *snapshotRepo) Count(ctx context.Context, tr persistence.TimeRange) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	err := r.db.QueryRowxContext(ctx, `
		SELECT COUNT(*)
		FROM resonance_snapshots
		WHERE ts >= $1 AND ts <= $2`, tr.From, tr.To).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}
