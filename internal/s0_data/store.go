package s0_data

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/s0_data/normalize"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/database"
	"github.com/wonny/msesync/pkg/logger"
)

// Table and index names shared by both stores
const (
	historyTable = "historical_data"
	stagingTable = "historical_data_staging"
	historyIndex = "idx_issuer_code_date"
)

// mergeBatchSize bounds the statements queued per batch round-trip
const mergeBatchSize = 1000

// Open opens the store selected by DB_DRIVER.
// ⭐ SSOT: 저장소 구현 선택은 여기서만
//
// The returned close func releases the pool or file handle.
func Open(cfg *config.Config, log *logger.Logger) (contracts.PriceStore, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return NewPostgresStore(db.Pool, log), db.Close, nil

	case "sqlite":
		db, err := database.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteStore(db, log), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}
}

// rowValues returns the insert arguments of a record in column order.
// Prices are rendered by format, other numerics keep their canonical text.
func rowValues(rec *contracts.PriceRecord, format func(decimal.NullDecimal) interface{}) []interface{} {
	return []interface{}{
		rec.IssuerCode,
		rec.Date,
		format(rec.LastPrice),
		format(rec.MaxPrice),
		format(rec.MinPrice),
		format(rec.AvgPrice),
		nullText(rec.PercentChange),
		nullText(rec.Quantity),
		nullText(rec.TurnoverBest),
		nullText(rec.TotalTurnover),
	}
}

// nullText renders a nullable decimal as canonical text or SQL NULL
func nullText(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// priceText renders a nullable price in the re-format display form or SQL NULL
func priceText(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return normalize.FormatPrice(d.Decimal)
}

// parseStoredDate parses a MAX(date) result; a NULL result means no rows
func parseStoredDate(s *string) (time.Time, bool, error) {
	if s == nil || *s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(contracts.DateLayout, *s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stored date %q: %w", *s, err)
	}
	return t, true, nil
}

// toBar converts stored columns into an analysis bar.
// A day without a last price is skipped. Missing max/min fall back to the last
// price and a missing quantity counts as zero volume.
func toBar(date string, last, hi, lo, avg, qty decimal.NullDecimal) (contracts.Bar, bool) {
	if !last.Valid {
		return contracts.Bar{}, false
	}
	t, err := time.Parse(contracts.DateLayout, date)
	if err != nil {
		return contracts.Bar{}, false
	}

	closePrice := last.Decimal.InexactFloat64()
	return contracts.Bar{
		Date:   t,
		Close:  closePrice,
		High:   orDefault(hi, closePrice),
		Low:    orDefault(lo, closePrice),
		Avg:    orDefault(avg, closePrice),
		Volume: orDefault(qty, 0),
	}, true
}

func orDefault(d decimal.NullDecimal, fallback float64) float64 {
	if !d.Valid {
		return fallback
	}
	return d.Decimal.InexactFloat64()
}

// distinctCodes returns the issuer codes referenced by records, first-seen order
func distinctCodes(records []contracts.PriceRecord) []string {
	seen := make(map[string]struct{})
	var codes []string
	for i := range records {
		code := records[i].IssuerCode
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// logMerge reports one merge call
func logMerge(log *logger.Logger, driver string, records int, inserted int64, start time.Time) {
	log.WithFields(map[string]interface{}{
		"driver":   driver,
		"records":  records,
		"inserted": inserted,
		"ignored":  int64(records) - inserted,
		"duration": time.Since(start),
	}).Info("Merged price records")
}
