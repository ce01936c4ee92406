package indicators

import (
	"fmt"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/strategyconfig"
)

// Compute resamples ascending daily bars to tf and attaches every indicator.
// ⭐ SSOT: 지표 계산은 여기서만
//
// Fewer than minBars daily bars returns contracts.ErrInsufficientData.
func Compute(bars []contracts.Bar, tf contracts.Timeframe, p strategyconfig.Indicators, minBars int) ([]contracts.IndicatorRow, error) {
	if len(bars) < minBars {
		return nil, fmt.Errorf("%d bars, need %d: %w", len(bars), minBars, contracts.ErrInsufficientData)
	}

	series := Resample(bars, tf)
	n := len(series)

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range series {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	sma := SMA(closes, p.SMAWindow)
	ema := EMA(closes, p.EMASpan)
	wma := WMA(closes, p.WMAWindow)
	macd := MACD(closes, p.MACDFast, p.MACDSlow)
	hma := HMA(closes, p.HMAWindow)
	rsi := RSI(closes, p.RSIPeriod)
	stochK, stochD := Stochastic(highs, lows, closes, p.StochKPeriod, p.StochDPeriod)
	cci := CCI(highs, lows, closes, p.CCIPeriod)
	mom := Momentum(closes, p.MomentumPeriod)
	willr := WilliamsR(highs, lows, closes, p.WilliamsPeriod)
	atr := ATR(highs, lows, closes, p.ATRPeriod)
	volSMA := SMA(volumes, p.VolumeSMAWindow)
	change := PctChange(closes)

	rows := make([]contracts.IndicatorRow, n)
	for i := range rows {
		rows[i] = contracts.IndicatorRow{
			Bar:         series[i],
			SMA20:       sma[i],
			EMA10:       ema[i],
			WMA30:       wma[i],
			MACD:        macd[i],
			HMA50:       hma[i],
			RSI:         rsi[i],
			StochK:      stochK[i],
			StochD:      stochD[i],
			CCI:         cci[i],
			Momentum:    mom[i],
			WilliamsR:   willr[i],
			ATR:         atr[i],
			VolumeSMA20: volSMA[i],
			PriceChange: change[i],
		}
	}
	return rows, nil
}
