package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, config.ConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, config.ConnMaxIdleTime)
	assert.Equal(t, 30*time.Second, config.QueryTimeout)
	assert.False(t, config.Enabled)
	assert.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"enabled without dsn", func(c *Config) { c.Enabled = true }, "DSN is required"},
		{"zero open conns", func(c *Config) { c.MaxOpenConns = 0 }, "max_open_conns"},
		{"negative idle", func(c *Config) { c.MaxIdleConns = -1 }, "cannot be negative"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 20 }, "cannot exceed"},
		{"zero timeout", func(c *Config) { c.QueryTimeout = 0 }, "query_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewManager_Disabled(t *testing.T) {
	manager, err := NewManager(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.Nil(t, manager.DB())
	assert.NoError(t, manager.Close())
	assert.Error(t, manager.Migrate(context.Background()))

	health := manager.Health()
	check := health.Health(context.Background())
	assert.True(t, check.Healthy)
	assert.False(t, check.Enabled)
	assert.NoError(t, health.Ping(context.Background()))
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := NewManager(context.Background(), Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func newMockManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	cfg := DefaultConfig()
	cfg.Enabled = true
	return NewManagerWithDB(sqlx.NewDb(mockDB, "postgres"), cfg), mock
}

func TestManager_WithDB(t *testing.T) {
	manager, mock := newMockManager(t)

	assert.True(t, manager.IsEnabled())
	require.NotNil(t, manager.Repository())
	assert.NotNil(t, manager.Repository().Snapshots)
	assert.NotNil(t, manager.Repository().Alerts)

	mock.ExpectPing()
	mock.ExpectQuery("FROM resonance_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	check := manager.Health().Health(context.Background())
	assert.True(t, check.Enabled)
	assert.True(t, check.Healthy)
	assert.Empty(t, check.Error)
	assert.Equal(t, int64(42), check.SnapshotsLastHour)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_PingFailure(t *testing.T) {
	manager, mock := newMockManager(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	check := manager.Health().Health(context.Background())
	assert.False(t, check.Healthy)
	assert.Contains(t, check.Error, "connection refused")
}

func TestManager_CountFailureIsUnhealthy(t *testing.T) {
	manager, mock := newMockManager(t)

	mock.ExpectPing()
	mock.ExpectQuery("FROM resonance_snapshots").WillReturnError(errors.New("relation does not exist"))
	check := manager.Health().Health(context.Background())
	assert.False(t, check.Healthy)
	assert.Contains(t, check.Error, "relation does not exist")
}

func TestManager_Migrate(t *testing.T) {
	manager, mock := newMockManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS resonance_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS resonance_snapshots_ts_idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS alerts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS alerts_created_at_idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS alerts_kind_idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, manager.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
