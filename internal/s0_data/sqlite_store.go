package s0_data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/logger"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS issuers (
		code TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS historical_data (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		issuer_code    TEXT NOT NULL,
		date           TEXT NOT NULL,
		last_price     TEXT,
		max_price      TEXT,
		min_price      TEXT,
		avg_price      TEXT,
		percent_change TEXT,
		quantity       TEXT,
		turnover_best  TEXT,
		total_turnover TEXT,
		UNIQUE (issuer_code, date),
		FOREIGN KEY (issuer_code) REFERENCES issuers(code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_issuer_code_date ON historical_data (issuer_code, date DESC)`,
}

const historyColumns = `issuer_code, date, last_price, max_price, min_price, avg_price,
	percent_change, quantity, turnover_best, total_turnover`

var _ contracts.PriceStore = (*SQLiteStore)(nil)

// SQLiteStore implements contracts.PriceStore on an embedded SQLite file
// ⭐ SSOT: SQLite 가격 저장소는 여기서만
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore creates a store on an opened database (see database.OpenSQLite)
func NewSQLiteStore(db *sql.DB, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: log.Module("store"),
	}
}

// EnsureSchema creates the tables and covering index if missing
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LastKnownDate returns the newest stored date of an issuer
func (s *SQLiteStore) LastKnownDate(ctx context.Context, code string) (time.Time, bool, error) {
	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM historical_data WHERE issuer_code = ?`, code,
	).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last known date %s: %w", code, err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return parseStoredDate(&last.String)
}

// Merge inserts records that are not stored yet, in one transaction
func (s *SQLiteStore) Merge(ctx context.Context, records []contracts.PriceRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, code := range distinctCodes(records) {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO issuers (code, name) VALUES (?, ?)`, code, code); err != nil {
			return 0, fmt.Errorf("ensure issuer %s: %w", code, err)
		}
	}

	inserted, err := insertRecords(ctx, tx,
		`INSERT INTO historical_data (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (issuer_code, date) DO NOTHING`,
		records, nullText)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit merge: %w", err)
	}

	logMerge(s.logger, "sqlite", len(records), inserted, start)
	return inserted, nil
}

// insertRecords runs one prepared insert per record and sums affected rows
func insertRecords(ctx context.Context, tx *sql.Tx, query string, records []contracts.PriceRecord, format func(decimal.NullDecimal) interface{}) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var affected int64
	for i := range records {
		res, err := stmt.ExecContext(ctx, rowValues(&records[i], format)...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", records[i].Key(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		affected += n
	}
	return affected, nil
}

// Reformat rewrites every stored price into the canonical display form and
// rebuilds the covering index. Read, staging fill and swap share one
// transaction, so a failure anywhere leaves the live table as it was.
//
// The staging DDL runs before the read and takes the database write lock, so
// no merge can commit between the read and the swap.
func (s *SQLiteStore) Reformat(ctx context.Context) (int64, error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	prepare := []string{
		`DROP TABLE IF EXISTS ` + stagingTable,
		`CREATE TABLE ` + stagingTable + ` (
			issuer_code TEXT NOT NULL, date TEXT NOT NULL,
			last_price TEXT, max_price TEXT, min_price TEXT, avg_price TEXT,
			percent_change TEXT, quantity TEXT, turnover_best TEXT, total_turnover TEXT
		)`,
	}
	for _, stmt := range prepare {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("prepare staging: %w", err)
		}
	}

	records, err := loadAllSQLite(ctx, tx)
	if err != nil {
		return 0, err
	}

	if _, err := insertRecords(ctx, tx,
		`INSERT INTO `+stagingTable+` (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		records, priceText); err != nil {
		return 0, fmt.Errorf("fill staging: %w", err)
	}

	swap := []string{
		`DELETE FROM ` + historyTable,
		`INSERT INTO ` + historyTable + ` (` + historyColumns + `)
		SELECT ` + historyColumns + ` FROM ` + stagingTable + `
		ORDER BY issuer_code, date DESC`,
		`DROP TABLE ` + stagingTable,
		`CREATE INDEX IF NOT EXISTS ` + historyIndex + ` ON ` + historyTable + ` (issuer_code, date DESC)`,
	}
	for _, stmt := range swap {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("swap staging: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reformat: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"rows":     len(records),
		"duration": time.Since(start),
	}).Info("Re-formatted price table")

	return int64(len(records)), nil
}

// loadAllSQLite reads every stored record into memory inside tx. Rows are fully
// consumed before the caller writes on the same connection.
func loadAllSQLite(ctx context.Context, tx *sql.Tx) ([]contracts.PriceRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+historyColumns+` FROM historical_data ORDER BY issuer_code, date DESC`)
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

// SaveIssuers inserts issuers that are not stored yet (INSERT OR IGNORE)
func (s *SQLiteStore) SaveIssuers(ctx context.Context, issuers []contracts.Issuer) (int64, error) {
	if len(issuers) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var inserted int64
	for _, is := range issuers {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO issuers (code, name) VALUES (?, ?)`, is.Code, is.Name)
		if err != nil {
			return 0, fmt.Errorf("save issuer %s: %w", is.Code, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit issuers: %w", err)
	}
	return inserted, nil
}

// ListIssuers returns every issuer ordered by code
func (s *SQLiteStore) ListIssuers(ctx context.Context) ([]contracts.Issuer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name FROM issuers ORDER BY code`)
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
func (s *SQLiteStore) LoadSeries(ctx context.Context, code string) ([]contracts.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, last_price, max_price, min_price, avg_price, quantity
		FROM historical_data
		WHERE issuer_code = ?
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
func (s *SQLiteStore) Freshness(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
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
			last sql.NullString
		)
		if err := rows.Scan(&code, &last); err != nil {
			return nil, fmt.Errorf("scan freshness: %w", err)
		}
		var t time.Time
		if last.Valid {
			if t, _, err = parseStoredDate(&last.String); err != nil {
				return nil, err
			}
		}
		out[code] = t
	}
	return out, rows.Err()
}
