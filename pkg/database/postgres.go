package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/msesync/pkg/config"
)

// DB holds the Postgres pool shared by the price store and the signal sink
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New connects to DATABASE_URL and verifies the connection with a ping
// ⭐ SSOT: 유일하게 pgxpool.NewWithConfig()를 호출하는 함수
func New(cfg *config.Config) (*DB, error) {
	poolConfig, err := poolConfigFor(cfg.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func poolConfigFor(dc config.DatabaseConfig) (*pgxpool.Config, error) {
	if dc.URL == "" {
		return nil, errors.New("DATABASE_URL is empty (set DB_DRIVER=sqlite for a local file)")
	}
	pc, err := pgxpool.ParseConfig(dc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if dc.MaxConns > 0 {
		pc.MaxConns = int32(dc.MaxConns)
	}
	if dc.MinConns > 0 && dc.MinConns <= dc.MaxConns {
		pc.MinConns = int32(dc.MinConns)
	}
	pc.MaxConnLifetime = dc.MaxConnLifetime
	pc.MaxConnIdleTime = dc.MaxConnIdleTime
	return pc, nil
}

// Close releases the pool. Safe to call twice.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// HealthCheck pings the server and reports which of the given tables exist.
// A missing table leaves Healthy true; the pipeline creates its schema on first use.
func (db *DB) HealthCheck(ctx context.Context, tables ...string) (*HealthStatus, error) {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Tables:    make(map[string]bool, len(tables)),
	}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	for _, table := range tables {
		var exists bool
		if err := db.Pool.QueryRow(ctx, "SELECT to_regclass($1::text) IS NOT NULL", table).Scan(&exists); err != nil {
			status.Error = err.Error()
			return status, fmt.Errorf("check table %s: %w", table, err)
		}
		status.Tables[table] = exists
	}

	status.Stats = db.Stats()
	status.Healthy = true
	return status, nil
}

// HealthStatus is the result of HealthCheck
type HealthStatus struct {
	Healthy      bool            `json:"healthy"`
	Timestamp    time.Time       `json:"timestamp"`
	ResponseTime time.Duration   `json:"response_time"`
	Tables       map[string]bool `json:"tables,omitempty"`
	Error        string          `json:"error,omitempty"`
	Stats        PoolStats       `json:"stats"`
}

// PoolStats is a snapshot of pgxpool counters
type PoolStats struct {
	AcquireCount      int64         `json:"acquire_count"`
	AcquireDuration   time.Duration `json:"acquire_duration"`
	AcquiredConns     int32         `json:"acquired_conns"`
	IdleConns         int32         `json:"idle_conns"`
	MaxConns          int32         `json:"max_conns"`
	TotalConns        int32         `json:"total_conns"`
	EmptyAcquireCount int64         `json:"empty_acquire_count"`
}

// Stats returns the current pool counters
func (db *DB) Stats() PoolStats {
	s := db.Pool.Stat()
	return PoolStats{
		AcquireCount:      s.AcquireCount(),
		AcquireDuration:   s.AcquireDuration(),
		AcquiredConns:     s.AcquiredConns(),
		IdleConns:         s.IdleConns(),
		MaxConns:          s.MaxConns(),
		TotalConns:        s.TotalConns(),
		EmptyAcquireCount: s.EmptyAcquireCount(),
	}
}
