package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/logger"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS issuers (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS historical_data (
		id             BIGSERIAL PRIMARY KEY,
		issuer_code    TEXT NOT NULL REFERENCES issuers(code),
		date           TEXT NOT NULL,
		last_price     TEXT,
		max_price      TEXT,
		min_price      TEXT,
		avg_price      TEXT,
		percent_change TEXT,
		quantity       TEXT,
		turnover_best  TEXT,
		total_turnover TEXT,
		UNIQUE (issuer_code, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_issuer_code_date ON historical_data (issuer_code, date DESC)`,
}

const pgInsertHistory = `
	INSERT INTO historical_data (
		issuer_code, date, last_price, max_price, min_price, avg_price,
		percent_change, quantity, turnover_best, total_turnover
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (issuer_code, date) DO NOTHING
`

var _ contracts.PriceStore = (*PostgresStore)(nil)

// PostgresStore implements contracts.PriceStore on a pgx pool
// ⭐ SSOT: Postgres 가격 저장소는 여기서만
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresStore creates a new Postgres-backed store
func NewPostgresStore(pool *pgxpool.Pool, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: log.Module("store"),
	}
}

// EnsureSchema creates the tables and covering index if missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LastKnownDate returns the newest stored date of an issuer
func (s *PostgresStore) LastKnownDate(ctx context.Context, code string) (time.Time, bool, error) {
	var last *string
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(date) FROM historical_data WHERE issuer_code = $1`, code,
	).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last known date %s: %w", code, err)
	}
	return parseStoredDate(last)
}

// Merge inserts records that are not stored yet, in one transaction
func (s *PostgresStore) Merge(ctx context.Context, records []contracts.PriceRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// issuers referenced by the batch must exist for the foreign key
	codes := distinctCodes(records)
	issuerBatch := &pgx.Batch{}
	for _, code := range codes {
		issuerBatch.Queue(`INSERT INTO issuers (code, name) VALUES ($1, $1) ON CONFLICT (code) DO NOTHING`, code)
	}
	if err := sendBatch(ctx, tx, issuerBatch, nil); err != nil {
		return 0, fmt.Errorf("ensure issuers: %w", err)
	}

	var inserted int64
	for lo := 0; lo < len(records); lo += mergeBatchSize {
		hi := lo + mergeBatchSize
		if hi > len(records) {
			hi = len(records)
		}

		batch := &pgx.Batch{}
		for i := lo; i < hi; i++ {
			batch.Queue(pgInsertHistory, rowValues(&records[i], nullText)...)
		}
		if err := sendBatch(ctx, tx, batch, &inserted); err != nil {
			return 0, fmt.Errorf("merge batch %d-%d: %w", lo, hi, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit merge: %w", err)
	}

	logMerge(s.logger, "postgres", len(records), inserted, start)
	return inserted, nil
}

// sendBatch executes a queued batch and adds affected rows to counter
func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, counter *int64) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return err
		}
		if counter != nil {
			*counter += tag.RowsAffected()
		}
	}
	return br.Close()
}

// Reformat rewrites every stored price into the canonical display form and
// rebuilds the covering index. Read, staging fill and swap run in one
// transaction so readers never observe an empty table.
//
// SHARE ROW EXCLUSIVE blocks concurrent merges from the read until commit;
// readers are not blocked.
func (s *PostgresStore) Reformat(ctx context.Context) (int64, error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE `+historyTable+` IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("lock %s: %w", historyTable, err)
	}

	records, err := loadAllPostgres(ctx, tx)
	if err != nil {
		return 0, err
	}

	stmts := []string{
		`DROP TABLE IF EXISTS ` + stagingTable,
		`CREATE TABLE ` + stagingTable + ` (LIKE ` + historyTable + ` INCLUDING DEFAULTS)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("prepare staging: %w", err)
		}
	}

	insertStaging := `INSERT INTO ` + stagingTable + ` (
		issuer_code, date, last_price, max_price, min_price, avg_price,
		percent_change, quantity, turnover_best, total_turnover
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for lo := 0; lo < len(records); lo += mergeBatchSize {
		hi := lo + mergeBatchSize
		if hi > len(records) {
			hi = len(records)
		}
		batch := &pgx.Batch{}
		for i := lo; i < hi; i++ {
			batch.Queue(insertStaging, rowValues(&records[i], priceText)...)
		}
		if err := sendBatch(ctx, tx, batch, nil); err != nil {
			return 0, fmt.Errorf("fill staging: %w", err)
		}
	}

	swap := []string{
		`DELETE FROM ` + historyTable,
		`INSERT INTO ` + historyTable + ` (
			issuer_code, date, last_price, max_price, min_price, avg_price,
			percent_change, quantity, turnover_best, total_turnover
		)
		SELECT issuer_code, date, last_price, max_price, min_price, avg_price,
			percent_change, quantity, turnover_best, total_turnover
		FROM ` + stagingTable + `
		ORDER BY issuer_code, date DESC`,
		`DROP TABLE ` + stagingTable,
		`CREATE INDEX IF NOT EXISTS ` + historyIndex + ` ON ` + historyTable + ` (issuer_code, date DESC)`,
	}
	for _, stmt := range swap {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("swap staging: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit reformat: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"rows":     len(records),
		"duration": time.Since(start),
	}).Info("Re-formatted price table")

	return int64(len(records)), nil
}

// loadAllPostgres reads every stored record inside tx, grouped by issuer and newest first
func loadAllPostgres(ctx context.Context, tx pgx.Tx) ([]contracts.PriceRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT issuer_code, date, last_price, max_price, min_price, avg_price,
			percent_change, quantity, turnover_best, total_turnover
		FROM historical_data
		ORDER BY issuer_code, date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	var records []contracts.PriceRecord
	for rows.Next() {
		var r contracts.PriceRecord
		if err := rows.Scan(
			&r.IssuerCode, &r.Date, &r.LastPrice, &r.MaxPrice, &r.MinPrice, &r.AvgPrice,
			&r.PercentChange, &r.Quantity, &r.TurnoverBest, &r.TotalTurnover,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveIssuers inserts issuers that are not stored yet.
// Existing rows keep their name (issuers are immutable after discovery).
func (s *PostgresStore) SaveIssuers(ctx context.Context, issuers []contracts.Issuer) (int64, error) {
	if len(issuers) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, is := range issuers {
		batch.Queue(`INSERT INTO issuers (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`, is.Code, is.Name)
	}

	var inserted int64
	if err := sendBatch(ctx, tx, batch, &inserted); err != nil {
		return 0, fmt.Errorf("save issuers: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit issuers: %w", err)
	}
	return inserted, nil
}

// ListIssuers returns every issuer ordered by code
func (s *PostgresStore) ListIssuers(ctx context.Context) ([]contracts.Issuer, error) {
	rows, err := s.pool.Query(ctx, `SELECT code, name FROM issuers ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list issuers: %w", err)
	}
	defer rows.Close()

	var issuers []contracts.Issuer
	for rows.Next() {
		var is contracts.Issuer
		if err := rows.Scan(&is.Code, &is.Name); err != nil {
			return nil, fmt.Errorf("scan issuer: %w", err)
		}
		issuers = append(issuers, is)
	}
	return issuers, rows.Err()
}

// LoadSeries returns an issuer's stored history as ascending bars
func (s *PostgresStore) LoadSeries(ctx context.Context, code string) ([]contracts.Bar, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, last_price, max_price, min_price, avg_price, quantity
		FROM historical_data
		WHERE issuer_code = $1
		ORDER BY date ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", code, err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var (
			date                      string
			last, hi, lo, avg, volume decimal.NullDecimal
		)
		if err := rows.Scan(&date, &last, &hi, &lo, &avg, &volume); err != nil {
			return nil, fmt.Errorf("scan series %s: %w", code, err)
		}
		if bar, ok := toBar(date, last, hi, lo, avg, volume); ok {
			bars = append(bars, bar)
		}
	}
	return bars, rows.Err()
}

// Freshness returns the newest stored date per issuer; issuers without rows map to the zero time
func (s *PostgresStore) Freshness(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.code, MAX(h.date)
		FROM issuers i
		LEFT JOIN historical_data h ON h.issuer_code = i.code
		GROUP BY i.code
	`)
	if err != nil {
		return nil, fmt.Errorf("freshness: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			code string
			last *string
		)
		if err := rows.Scan(&code, &last); err != nil {
			return nil, fmt.Errorf("scan freshness: %w", err)
		}
		t, _, err := parseStoredDate(last)
		if err != nil {
			return nil, err
		}
		out[code] = t
	}
	return out, rows.Err()
}
