package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/persistence"
)

// alertRepo implements persistence.AlertRepo for PostgreSQL
type alertRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAlertRepo creates a PostgreSQL alert repository
func NewAlertRepo(db *sqlx.DB, timeout time.Duration) persistence.AlertRepo {
	return &alertRepo{db: db, timeout: timeout}
}

type alertRow struct {
	ID            string    `db:"id"`
	Kind          string    `db:"kind"`
	Level         string    `db:"level"`
	Category      string    `db:"category"`
	Title         string    `db:"title"`
	Message       string    `db:"message"`
	CreatedAt     time.Time `db:"created_at"`
	ActiveSeconds int64     `db:"active_seconds"`
	Payload       []byte    `db:"payload"`
	Acknowledged  bool      `db:"acknowledged"`
}

// Insert stores an alert; duplicates by ID are ignored
func (r *alertRepo) Insert(ctx context.Context, a alerts.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var payload []byte
	if len(a.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(a.Payload); err != nil {
			return fmt.Errorf("failed to marshal alert payload: %w", err)
		}
	}

	query := `
		INSERT INTO alerts (id, kind, level, category, title, message, created_at, active_seconds, payload, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, string(a.Kind), string(a.Level), string(a.Category),
		a.Title, a.Message, a.CreatedAt, int64(a.ActiveDuration/time.Second),
		payload, a.Acknowledged)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Acknowledge marks an archived alert acknowledged
func (r *alertRepo) Acknowledge(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts
		SET acknowledged = true, acknowledged_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

// ListRange returns alerts created in the window, newest first
func (r *alertRepo) ListRange(ctx context.Context, tr persistence.TimeRange, limit int) ([]alerts.Alert, error) {
	if !tr.Valid() {
		return nil, fmt.Errorf("invalid time range: %s after %s", tr.From, tr.To)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, kind, level, category, title, message, created_at, active_seconds, payload, acknowledged
		FROM alerts
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3`

	var rows []alertRow
	if err := r.db.SelectContext(ctx, &rows, query, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	out := make([]alerts.Alert, 0, len(rows))
	for _, row := range rows {
		a := alerts.Alert{
			ID:             row.ID,
			Kind:           alerts.Kind(row.Kind),
			Level:          alerts.Level(row.Level),
			Category:       alerts.Category(row.Category),
			Title:          row.Title,
			Message:        row.Message,
			CreatedAt:      row.CreatedAt,
			ActiveDuration: time.Duration(row.ActiveSeconds) * time.Second,
			Acknowledged:   row.Acknowledged,
		}
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &a.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal alert payload: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// CountByKind groups alerts created in the window by kind
func (r *alertRepo) CountByKind(ctx context.Context, tr persistence.TimeRange) (map[alerts.Kind]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT kind, COUNT(*)
		FROM alerts
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY kind
		ORDER BY kind`, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[alerts.Kind]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		counts[alerts.Kind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return counts, nil
}
