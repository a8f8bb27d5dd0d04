package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/persistence"
	"github.com/sawpanic/heliobio/internal/persistence/postgres"
)

const connectTimeout = 10 * time.Second

// Manager manages the archive connection and repository instances
type Manager struct {
	db     *sqlx.DB
	config Config
	repos  *persistence.Repository
	health *healthChecker
}

// NewManager opens and pings the database. A disabled config yields a
// manager with no repository.
func NewManager(ctx context.Context, config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{config: config, health: &healthChecker{}}, nil
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("archive unreachable: %w", err)
	}

	log.Info().
		Str("component", "db").
		Int("max_open_conns", config.MaxOpenConns).
		Msg("Archive database connected")

	return NewManagerWithDB(conn, config), nil
}

// NewManagerWithDB wraps an existing connection
func NewManagerWithDB(db *sqlx.DB, config Config) *Manager {
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultConfig().QueryTimeout
	}
	repos := &persistence.Repository{
		Snapshots: postgres.NewSnapshotRepo(db, config.QueryTimeout),
		Alerts:    postgres.NewAlertRepo(db, config.QueryTimeout),
	}
	return &Manager{
		db:     db,
		config: config,
		repos:  repos,
		health: &healthChecker{
			enabled:   true,
			db:        db,
			snapshots: repos.Snapshots,
			timeout:   config.QueryTimeout,
		},
	}
}

// Repository returns the repository collection, or nil if the database is disabled
func (m *Manager) Repository() *persistence.Repository {
	return m.repos
}

// Health returns the health checker interface
func (m *Manager) Health() persistence.RepositoryHealth {
	return m.health
}

// DB returns the underlying connection
func (m *Manager) DB() *sqlx.DB {
	return m.db
}

// IsEnabled returns whether the archive is active
func (m *Manager) IsEnabled() bool {
	return m.db != nil
}

// Migrate creates the archive tables
func (m *Manager) Migrate(ctx context.Context) error {
	if !m.IsEnabled() {
		return fmt.Errorf("database persistence is disabled")
	}
	if err := postgres.Migrate(ctx, m.db); err != nil {
		return err
	}
	log.Info().Str("component", "db").Int("statements", len(postgres.Schema)).Msg("Archive schema applied")
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// healthChecker pings the archive and counts snapshots written in the last
// hour. A zero count is reported but does not mark the archive unhealthy.
type healthChecker struct {
	enabled   bool
	db        *sqlx.DB
	snapshots persistence.SnapshotRepo
	timeout   time.Duration
}

func (h *healthChecker) Health(ctx context.Context) persistence.HealthCheck {
	now := time.Now()
	if !h.enabled {
		return persistence.HealthCheck{Healthy: true, CheckedAt: now}
	}

	check := persistence.HealthCheck{Enabled: true, CheckedAt: now}
	if err := h.Ping(ctx); err != nil {
		check.Error = fmt.Sprintf("ping failed: %v", err)
	} else if n, err := h.snapshots.Count(ctx, persistence.LastHours(now, 1)); err != nil {
		check.Error = err.Error()
	} else {
		check.Healthy = true
		check.SnapshotsLastHour = n
	}
	check.LatencyMS = time.Since(now).Milliseconds()

	stats := h.db.Stats()
	check.Pool = persistence.PoolStats{
		MaxOpen:   stats.MaxOpenConnections,
		Open:      stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
		WaitCount: stats.WaitCount,
	}
	return check
}

func (h *healthChecker) Ping(ctx context.Context) error {
	if !h.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.db.PingContext(ctx)
}
