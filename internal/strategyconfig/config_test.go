package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/internal/contracts"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, []contracts.Timeframe{contracts.Daily, contracts.Weekly, contracts.Monthly}, cfg.Timeframes())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	yamlData := []byte(`
meta:
  strategy_id: mse_short
indicators:
  sma_window: 10
signals:
  rsi_overbought: 80
analysis:
  timeframes: [daily, w]
`)
	require.NoError(t, os.WriteFile(path, yamlData, 0o644))

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, yamlData, data)

	assert.Equal(t, "mse_short", cfg.Meta.StrategyID)
	assert.Equal(t, 10, cfg.Indicators.SMAWindow)
	assert.Equal(t, 10, cfg.Indicators.EMASpan, "unset keys keep defaults")
	assert.Equal(t, 80.0, cfg.Signals.RSIOverbought)
	assert.Equal(t, 30.0, cfg.Signals.RSIOversold)
	assert.Equal(t, []contracts.Timeframe{contracts.Daily, contracts.Weekly}, cfg.Timeframes())
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Parse([]byte("indicators:\n  sma_windw: 10\n"))
	assert.Error(t, err, "typos fail instead of being ignored")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"zero sma", func(c *Config) { c.Indicators.SMAWindow = 0 }, "indicators.sma_window"},
		{"tiny hma", func(c *Config) { c.Indicators.HMAWindow = 1 }, "indicators.hma_window"},
		{"macd order", func(c *Config) { c.Indicators.MACDFast = 26 }, "indicators.macd_fast"},
		{"rsi inverted", func(c *Config) { c.Signals.RSIOversold = 75 }, "signals.rsi_oversold"},
		{"rsi out of range", func(c *Config) { c.Signals.RSIOverbought = 120 }, "signals.rsi_overbought"},
		{"stoch inverted", func(c *Config) { c.Signals.StochOverbought = 10 }, "signals.stoch_oversold"},
		{"cci inverted", func(c *Config) { c.Signals.CCIOversold = 100 }, "signals.cci_oversold"},
		{"min bars", func(c *Config) { c.Analysis.MinBars = 0 }, "analysis.min_bars"},
		{"no timeframes", func(c *Config) { c.Analysis.Timeframes = nil }, "analysis.timeframes"},
		{"bad timeframe", func(c *Config) { c.Analysis.Timeframes = []string{"hourly"} }, "analysis.timeframes[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestHash(t *testing.T) {
	hash, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(Default())
	assert.Equal(t, hash, hash2)

	changed := Default()
	changed.Indicators.SMAWindow = 21
	hash3, _ := Hash(changed)
	assert.NotEqual(t, hash, hash3)
}
