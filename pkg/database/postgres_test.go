package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/pkg/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(cfg)
	require.NoError(t, err)
	return db
}

func TestNew(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, db.Ping(ctx))
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx, "pg_class", "no_such_table_xyz")
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.True(t, status.Tables["pg_class"])
	assert.False(t, status.Tables["no_such_table_xyz"])
	assert.Greater(t, status.Stats.MaxConns, int32(0))
}

func TestPoolConfigFor(t *testing.T) {
	tests := []struct {
		name    string
		dc      config.DatabaseConfig
		wantErr string
		wantMax int32
		wantMin int32
	}{
		{
			name:    "empty url",
			dc:      config.DatabaseConfig{},
			wantErr: "DB_DRIVER=sqlite",
		},
		{
			name:    "bad url",
			dc:      config.DatabaseConfig{URL: "invalid://url"},
			wantErr: "parse DATABASE_URL",
		},
		{
			name:    "limits applied",
			dc:      config.DatabaseConfig{URL: "postgres://u:p@localhost:5432/mse", MaxConns: 10, MinConns: 2},
			wantMax: 10,
			wantMin: 2,
		},
		{
			name:    "min above max ignored",
			dc:      config.DatabaseConfig{URL: "postgres://u:p@localhost:5432/mse", MaxConns: 4, MinConns: 8},
			wantMax: 4,
			wantMin: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := poolConfigFor(tt.dc)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMax, pc.MaxConns)
			assert.Equal(t, tt.wantMin, pc.MinConns)
		})
	}
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	db := newTestDB(t)

	assert.NotPanics(t, func() {
		db.Close()
		db.Close()
	})
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mse.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file should be created")
}

func TestOpenSQLite_PragmasOnEveryConnection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "mse.db"))
	require.NoError(t, err)
	defer db.Close()

	// no idle connections: every query below runs on a fresh one
	db.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var foreignKeys, busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, 1, foreignKeys)
		assert.Equal(t, 5000, busyTimeout)
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := sqliteDSN("/data/mse.db")
	assert.Equal(t,
		"/data/mse.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		dsn)
}
