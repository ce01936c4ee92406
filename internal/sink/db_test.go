package sink

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/database"
	"github.com/wonny/msesync/pkg/logger"
)

func TestDBSink(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	s := NewDBSink(db.Pool, true, logger.Nop())
	require.NoError(t, s.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx, "DELETE FROM signals WHERE issuer_code = 'ALK'")
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, sampleResult()))

	stored := loadSignals(t, db.Pool, "ALK", contracts.Daily)
	require.Len(t, stored, 2)
	assert.Equal(t, contracts.ActionHold, stored[0].Action)
	assert.Empty(t, stored[0].MATrend, "empty components are stored as NULL")
	assert.Equal(t, contracts.ActionBuy, stored[1].Action)
	assert.Equal(t, 102.5, stored[1].Price)

	// a rerun updates in place
	result := sampleResult()
	result.Timeframes[contracts.Daily].Signals[1].Action = contracts.ActionHold
	require.NoError(t, s.Write(ctx, result))

	stored = loadSignals(t, db.Pool, "ALK", contracts.Daily)
	require.Len(t, stored, 2)
	assert.Equal(t, contracts.ActionHold, stored[1].Action)

	assert.Empty(t, loadSignals(t, db.Pool, "ALK", contracts.Weekly))
}

// loadSignals reads the stored signals of one issuer and timeframe, oldest first
func loadSignals(t *testing.T, pool *pgxpool.Pool, code string, tf contracts.Timeframe) []contracts.Signal {
	t.Helper()

	rows, err := pool.Query(context.Background(), `
		SELECT date, signal, price,
			COALESCE(ma_trend, ''), COALESCE(macd_signal, ''), COALESCE(rsi_signal, ''),
			COALESCE(stoch_signal, ''), COALESCE(cci_signal, ''), COALESCE(volume_trend, '')
		FROM signals
		WHERE issuer_code = $1 AND timeframe = $2
		ORDER BY date
	`, code, string(tf))
	require.NoError(t, err)
	defer rows.Close()

	var signals []contracts.Signal
	for rows.Next() {
		sig := contracts.Signal{IssuerCode: code, Timeframe: tf}
		var date time.Time
		var action string
		require.NoError(t, rows.Scan(
			&date, &action, &sig.Price,
			&sig.MATrend, &sig.MACDSignal, &sig.RSISignal,
			&sig.StochSignal, &sig.CCISignal, &sig.VolumeTrend,
		))
		sig.Date = date
		sig.Action = contracts.Action(action)
		signals = append(signals, sig)
	}
	require.NoError(t, rows.Err())
	return signals
}
