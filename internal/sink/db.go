package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/logger"
)

const signalsSchema = `
CREATE TABLE IF NOT EXISTS signals (
	id           BIGSERIAL PRIMARY KEY,
	issuer_code  TEXT NOT NULL,
	timeframe    TEXT NOT NULL,
	date         DATE NOT NULL,
	signal       TEXT NOT NULL,
	price        DOUBLE PRECISION NOT NULL,
	ma_trend     TEXT,
	macd_signal  TEXT,
	rsi_signal   TEXT,
	stoch_signal TEXT,
	cci_signal   TEXT,
	volume_trend TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (issuer_code, timeframe, date)
)`

const upsertSignal = `
	INSERT INTO signals (
		issuer_code, timeframe, date, signal, price,
		ma_trend, macd_signal, rsi_signal, stoch_signal, cci_signal, volume_trend
	) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''))
	ON CONFLICT (issuer_code, timeframe, date) DO UPDATE SET
		signal = EXCLUDED.signal,
		price = EXCLUDED.price,
		ma_trend = EXCLUDED.ma_trend,
		macd_signal = EXCLUDED.macd_signal,
		rsi_signal = EXCLUDED.rsi_signal,
		stoch_signal = EXCLUDED.stoch_signal,
		cci_signal = EXCLUDED.cci_signal,
		volume_trend = EXCLUDED.volume_trend,
		updated_at = NOW()
`

// DBSink upserts signals into the Postgres signals table
// ⭐ SSOT: Signal 데이터 저장/조회는 여기서만
type DBSink struct {
	pool        *pgxpool.Pool
	includeHold bool
	logger      *logger.Logger
}

// NewDBSink creates a new DB sink
func NewDBSink(pool *pgxpool.Pool, includeHold bool, log *logger.Logger) *DBSink {
	return &DBSink{
		pool:        pool,
		includeHold: includeHold,
		logger:      log.Module("sink.db"),
	}
}

// EnsureSchema creates the signals table if missing
func (s *DBSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, signalsSchema); err != nil {
		return fmt.Errorf("failed to create signals table: %w", err)
	}
	return nil
}

// Write implements contracts.ResultSink.
// Every timeframe of one issuer is written in a single transaction.
func (s *DBSink) Write(ctx context.Context, result *contracts.AnalysisResult) error {
	if result.Failed() {
		return nil
	}

	batch := &pgx.Batch{}
	for _, tf := range contracts.AllTimeframes() {
		res := result.Timeframes[tf]
		if !usable(res) {
			continue
		}
		for _, sig := range exportable(res.Signals, s.includeHold) {
			batch.Queue(upsertSignal,
				sig.IssuerCode, string(sig.Timeframe), sig.Date, string(sig.Action), sig.Price,
				sig.MATrend, sig.MACDSignal, sig.RSISignal, sig.StochSignal, sig.CCISignal, sig.VolumeTrend,
			)
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to save signals for %s: %w", result.IssuerCode, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"issuer_code": result.IssuerCode,
		"count":       batch.Len(),
	}).Debug("Saved signals")
	return nil
}
