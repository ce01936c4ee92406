package strategyconfig

import (
	"fmt"

	"github.com/wonny/msesync/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Indicators ===
	ind := cfg.Indicators
	periods := []struct {
		field string
		value int
	}{
		{"indicators.sma_window", ind.SMAWindow},
		{"indicators.ema_span", ind.EMASpan},
		{"indicators.wma_window", ind.WMAWindow},
		{"indicators.macd_fast", ind.MACDFast},
		{"indicators.macd_slow", ind.MACDSlow},
		{"indicators.rsi_period", ind.RSIPeriod},
		{"indicators.stoch_k_period", ind.StochKPeriod},
		{"indicators.stoch_d_period", ind.StochDPeriod},
		{"indicators.cci_period", ind.CCIPeriod},
		{"indicators.momentum_period", ind.MomentumPeriod},
		{"indicators.williams_period", ind.WilliamsPeriod},
		{"indicators.atr_period", ind.ATRPeriod},
		{"indicators.volume_sma_window", ind.VolumeSMAWindow},
	}
	for _, p := range periods {
		if p.value <= 0 {
			return ValidationError{p.field, "must be > 0"}
		}
	}
	// HMA는 window/2 와 sqrt(window) 모두 1 이상이어야 함
	if ind.HMAWindow < 2 {
		return ValidationError{"indicators.hma_window", "must be >= 2"}
	}
	if ind.MACDFast >= ind.MACDSlow {
		return ValidationError{"indicators.macd_fast", "must be < macd_slow"}
	}

	// === Signals ===
	sig := cfg.Signals
	if err := validateBand("signals.rsi", sig.RSIOversold, sig.RSIOverbought, 0, 100); err != nil {
		return err
	}
	if err := validateBand("signals.stoch", sig.StochOversold, sig.StochOverbought, 0, 100); err != nil {
		return err
	}
	if sig.CCIOversold >= sig.CCIOverbought {
		return ValidationError{"signals.cci_oversold", "must be < cci_overbought"}
	}

	// === Analysis ===
	if cfg.Analysis.MinBars < 1 {
		return ValidationError{"analysis.min_bars", "must be >= 1"}
	}
	if len(cfg.Analysis.Timeframes) == 0 {
		return ValidationError{"analysis.timeframes", "must not be empty"}
	}
	for i, tf := range cfg.Analysis.Timeframes {
		if _, err := contracts.ParseTimeframe(tf); err != nil {
			return ValidationError{fmt.Sprintf("analysis.timeframes[%d]", i), err.Error()}
		}
	}

	return nil
}

// Timeframes returns the configured timeframes; Validate guarantees they parse
func (c *Config) Timeframes() []contracts.Timeframe {
	out := make([]contracts.Timeframe, 0, len(c.Analysis.Timeframes))
	for _, s := range c.Analysis.Timeframes {
		if tf, err := contracts.ParseTimeframe(s); err == nil {
			out = append(out, tf)
		}
	}
	return out
}

// === Helper Functions ===

// validateBand checks oversold < overbought, both inside [min, max]
func validateBand(field string, oversold, overbought, min, max float64) error {
	if oversold < min || oversold > max {
		return ValidationError{field + "_oversold", fmt.Sprintf("must be in range [%g, %g]", min, max)}
	}
	if overbought < min || overbought > max {
		return ValidationError{field + "_overbought", fmt.Sprintf("must be in range [%g, %g]", min, max)}
	}
	if oversold >= overbought {
		return ValidationError{field + "_oversold", "must be < overbought"}
	}
	return nil
}
