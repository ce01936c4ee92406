package s2_signals

import (
	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/strategyconfig"
)

// Generate turns an indicator table into one signal per date.
// ⭐ SSOT: BUY/SELL/HOLD 판정 규칙은 여기서만
//
// BUY needs a bullish MA trend, a bullish MACD and at least one oversold
// oscillator. SELL is the bearish mirror with an overbought oscillator.
// Every other date, including dates with undefined trend inputs, is HOLD.
func Generate(code string, tf contracts.Timeframe, rows []contracts.IndicatorRow, th strategyconfig.Signals) []contracts.Signal {
	signals := make([]contracts.Signal, len(rows))
	for i := range rows {
		signals[i] = classify(code, tf, &rows[i], th)
	}
	return signals
}

func classify(code string, tf contracts.Timeframe, row *contracts.IndicatorRow, th strategyconfig.Signals) contracts.Signal {
	sig := contracts.Signal{
		IssuerCode:  code,
		Timeframe:   tf,
		Date:        row.Date,
		Price:       row.Close,
		Action:      contracts.ActionHold,
		MATrend:     trend(row.SMA20 > row.EMA10, row.SMA20, row.EMA10),
		MACDSignal:  trend(row.MACD > 0, row.MACD, 0),
		RSISignal:   rsiSignal(row.RSI, th),
		StochSignal: stochSignal(row.StochK, row.StochD, th),
		CCISignal:   band(row.CCI, th.CCIOverbought, th.CCIOversold),
		VolumeTrend: volumeTrend(row.Volume, row.VolumeSMA20),
	}

	oscillators := []string{sig.RSISignal, sig.StochSignal, sig.CCISignal}
	switch {
	case sig.MATrend == contracts.Bullish && sig.MACDSignal == contracts.Bullish && hasLabel(oscillators, contracts.Oversold):
		sig.Action = contracts.ActionBuy
	case sig.MATrend == contracts.Bearish && sig.MACDSignal == contracts.Bearish && hasLabel(oscillators, contracts.Overbought):
		sig.Action = contracts.ActionSell
	}
	return sig
}

// trend labels a comparison, or returns "" when an operand is undefined
func trend(up bool, a, b float64) string {
	if !contracts.Defined(a) || !contracts.Defined(b) {
		return ""
	}
	if up {
		return contracts.Bullish
	}
	return contracts.Bearish
}

// rsiSignal reports NEUTRAL inside the band
func rsiSignal(rsi float64, th strategyconfig.Signals) string {
	if !contracts.Defined(rsi) {
		return ""
	}
	if s := band(rsi, th.RSIOverbought, th.RSIOversold); s != "" {
		return s
	}
	return contracts.Neutral
}

// stochSignal requires both %K and %D beyond the threshold
func stochSignal(k, d float64, th strategyconfig.Signals) string {
	switch {
	case !contracts.Defined(k) || !contracts.Defined(d):
		return ""
	case k > th.StochOverbought && d > th.StochOverbought:
		return contracts.Overbought
	case k < th.StochOversold && d < th.StochOversold:
		return contracts.Oversold
	default:
		return ""
	}
}

// band labels v above overbought or below oversold; NaN compares false both ways
func band(v, overbought, oversold float64) string {
	switch {
	case v > overbought:
		return contracts.Overbought
	case v < oversold:
		return contracts.Oversold
	default:
		return ""
	}
}

func volumeTrend(volume, avg float64) string {
	if !contracts.Defined(avg) {
		return ""
	}
	if volume > avg {
		return contracts.VolumeHigh
	}
	return contracts.VolumeLow
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
