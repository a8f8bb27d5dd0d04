package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/history"
)

// ErrNotFound is returned when a keyed row does not exist
var ErrNotFound = errors.New("record not found")

// TimeRange is a closed time window for archive queries
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Valid reports whether From is not after To
func (tr TimeRange) Valid() bool {
	return !tr.From.After(tr.To)
}

// LastHours returns the window ending at now
func LastHours(now time.Time, hours int) TimeRange {
	return TimeRange{From: now.Add(-time.Duration(hours) * time.Hour), To: now}
}

// SnapshotRepo archives poll-cycle snapshots
type SnapshotRepo interface {
	// Insert stores one snapshot
	Insert(ctx context.Context, snap history.ResonanceSnapshot) error

	// ListRange returns snapshots in the window, oldest first
	ListRange(ctx context.Context, tr TimeRange, limit int) ([]history.ResonanceSnapshot, error)

	// Count returns the number of snapshots in the window
	Count(ctx context.Context, tr TimeRange) (int64, error)
}

// AlertRepo archives fired alerts and their acknowledgement
type AlertRepo interface {
	// Insert stores an alert; re-inserting the same ID is a no-op
	Insert(ctx context.Context, alert alerts.Alert) error

	// Acknowledge marks an archived alert acknowledged at the given instant
	Acknowledge(ctx context.Context, id string, at time.Time) error

	// ListRange returns alerts created in the window, newest first
	ListRange(ctx context.Context, tr TimeRange, limit int) ([]alerts.Alert, error)

	// CountByKind groups alerts created in the window by kind
	CountByKind(ctx context.Context, tr TimeRange) (map[alerts.Kind]int64, error)
}

// Repository aggregates the archive repositories
type Repository struct {
	Snapshots SnapshotRepo
	Alerts    AlertRepo
}

// HealthCheck reports archive reachability and write activity
type HealthCheck struct {
	Enabled           bool      `json:"enabled"`
	Healthy           bool      `json:"healthy"`
	Error             string    `json:"error,omitempty"`
	Pool              PoolStats `json:"pool"`
	SnapshotsLastHour int64     `json:"snapshots_last_hour"`
	CheckedAt         time.Time `json:"checked_at"`
	LatencyMS         int64     `json:"latency_ms"`
}

// PoolStats is a subset of sql.DBStats
type PoolStats struct {
	MaxOpen   int   `json:"max_open"`
	Open      int   `json:"open"`
	InUse     int   `json:"in_use"`
	Idle      int   `json:"idle"`
	WaitCount int64 `json:"wait_count"`
}

// RepositoryHealth reports on the archive for /api/health
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}
