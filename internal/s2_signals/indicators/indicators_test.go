package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/strategyconfig"
)

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func countDefined(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

func TestSMA_Boundary(t *testing.T) {
	prices19 := series(19, func(i int) float64 { return float64(i + 1) })
	assert.Zero(t, countDefined(SMA(prices19, 20)), "19 points never fill a 20 window")

	prices20 := series(20, func(i int) float64 { return float64(i + 1) })
	sma := SMA(prices20, 20)
	assert.Equal(t, 1, countDefined(sma))
	assert.InDelta(t, 10.5, sma[19], 1e-12)
}

func TestSMA_NaNWindow(t *testing.T) {
	values := []float64{1, 2, math.NaN(), 4, 5, 6}
	sma := SMA(values, 3)
	assert.True(t, math.IsNaN(sma[3]), "window containing NaN is undefined")
	assert.True(t, math.IsNaN(sma[4]))
	assert.InDelta(t, 5.0, sma[5], 1e-12)
}

func TestEMA(t *testing.T) {
	ema := EMA([]float64{10, 11, 12}, 3)
	// alpha = 0.5
	assert.InDelta(t, 10.0, ema[0], 1e-12)
	assert.InDelta(t, 10.5, ema[1], 1e-12)
	assert.InDelta(t, 11.25, ema[2], 1e-12)
}

func TestWMA(t *testing.T) {
	wma := WMA([]float64{1, 2, 3}, 3)
	assert.True(t, math.IsNaN(wma[1]))
	// (1*1 + 2*2 + 3*3) / 6
	assert.InDelta(t, 14.0/6.0, wma[2], 1e-12)
}

func TestMACD_ConstantSeries(t *testing.T) {
	macd := MACD(series(40, func(int) float64 { return 50 }), 12, 26)
	for _, v := range macd {
		assert.InDelta(t, 0.0, v, 1e-12)
	}
}

func TestHMA_LinearSeries(t *testing.T) {
	prices := series(80, func(i int) float64 { return float64(i) })
	hma := HMA(prices, 50)

	// first defined: WMA(50) from 49, then a 7 wide WMA
	assert.True(t, math.IsNaN(hma[54]))
	require.False(t, math.IsNaN(hma[55]))
	// on a straight line WMA(n) trails by (n-1)/3, so the Hull value is i + 1/3 - 2
	assert.InDelta(t, 79.0-5.0/3.0, hma[79], 1e-9)
}

func TestHMA_FinalWindowRounds(t *testing.T) {
	prices := series(30, func(i int) float64 { return float64(i) })

	// sqrt(15) = 3.87 rounds to a 4 wide final WMA; WMA(15) is first defined at 14
	hma := HMA(prices, 15)
	assert.True(t, math.IsNaN(hma[16]))
	assert.False(t, math.IsNaN(hma[17]))
}

func TestRSI(t *testing.T) {
	t.Run("first value at period", func(t *testing.T) {
		prices := series(20, func(i int) float64 { return float64(i%3) + 10 })
		rsi := RSI(prices, 14)
		assert.True(t, math.IsNaN(rsi[13]))
		assert.False(t, math.IsNaN(rsi[14]))
	})

	t.Run("only gains", func(t *testing.T) {
		rsi := RSI(series(16, func(i int) float64 { return float64(i) }), 14)
		assert.Equal(t, 100.0, rsi[15])
	})

	t.Run("only losses", func(t *testing.T) {
		rsi := RSI(series(16, func(i int) float64 { return float64(100 - i) }), 14)
		assert.Equal(t, 0.0, rsi[15])
	})

	t.Run("flat is undefined", func(t *testing.T) {
		rsi := RSI(series(16, func(int) float64 { return 7 }), 14)
		assert.True(t, math.IsNaN(rsi[15]))
	})

	t.Run("balanced", func(t *testing.T) {
		// alternating +1 / -1 gives equal mean gain and loss
		prices := series(16, func(i int) float64 { return float64(i % 2) })
		rsi := RSI(prices, 14)
		assert.InDelta(t, 50.0, rsi[15], 1e-9)
	})
}

func TestStochasticAndWilliams(t *testing.T) {
	high := []float64{10, 12, 14}
	low := []float64{8, 9, 10}
	close := []float64{9, 11, 13}

	k, d := Stochastic(high, low, close, 3, 2)
	assert.True(t, math.IsNaN(k[1]))
	// (13 - 8) / (14 - 8)
	assert.InDelta(t, 500.0/6.0, k[2], 1e-9)
	assert.True(t, math.IsNaN(d[2]), "%D needs two defined %K values")

	w := WilliamsR(high, low, close, 3)
	assert.InDelta(t, -100.0/6.0, w[2], 1e-9)

	flat := []float64{5, 5, 5}
	k, _ = Stochastic(flat, flat, flat, 3, 1)
	assert.True(t, math.IsNaN(k[2]), "zero range is undefined")
}

func TestCCI(t *testing.T) {
	flat := series(20, func(int) float64 { return 3 })
	assert.True(t, math.IsNaN(CCI(flat, flat, flat, 20)[19]), "zero deviation is undefined")

	close := []float64{1, 2, 3}
	cci := CCI(close, close, close, 3)
	// tp = close, mean 2, mad 2/3
	assert.InDelta(t, 1.0/(0.015*2.0/3.0), cci[2], 1e-9)
}

func TestMomentumAndPctChange(t *testing.T) {
	prices := []float64{10, 12, 9, 15}
	mom := Momentum(prices, 2)
	assert.True(t, math.IsNaN(mom[1]))
	assert.Equal(t, -1.0, mom[2])
	assert.Equal(t, 3.0, mom[3])

	pct := PctChange([]float64{0, 10, 15})
	assert.True(t, math.IsNaN(pct[0]))
	assert.True(t, math.IsNaN(pct[1]), "change from zero is undefined")
	assert.InDelta(t, 0.5, pct[2], 1e-12)
}

func TestATR(t *testing.T) {
	high := []float64{10, 11, 15}
	low := []float64{9, 10, 12}
	close := []float64{9.5, 10.5, 14}

	atr := ATR(high, low, close, 2)
	assert.True(t, math.IsNaN(atr[0]))
	// tr = [1, max(1, 1.5, 0.5)=1.5, max(3, 4.5, 1.5)=4.5]
	assert.InDelta(t, 1.25, atr[1], 1e-12)
	assert.InDelta(t, 3.0, atr[2], 1e-12)
}

func bar(date time.Time, closePrice, volume float64) contracts.Bar {
	return contracts.Bar{Date: date, Close: closePrice, High: closePrice + 1, Low: closePrice - 1, Avg: closePrice, Volume: volume}
}

func TestResample(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC) }

	bars := []contracts.Bar{
		bar(d(1, 29), 10, 100), // Mon
		bar(d(1, 31), 12, 50),  // Wed
		bar(d(2, 2), 11, 25),   // Fri
		bar(d(2, 12), 20, 10),  // Mon, a week without trades before it
	}

	t.Run("weekly ends on sunday", func(t *testing.T) {
		weekly := Resample(bars, contracts.Weekly)
		require.Len(t, weekly, 2, "empty weeks are not emitted")

		assert.Equal(t, d(2, 4), weekly[0].Date)
		assert.Equal(t, 11.0, weekly[0].Close)
		assert.Equal(t, 13.0, weekly[0].High)
		assert.Equal(t, 9.0, weekly[0].Low)
		assert.InDelta(t, 11.0, weekly[0].Avg, 1e-12)
		assert.Equal(t, 175.0, weekly[0].Volume)

		assert.Equal(t, d(2, 18), weekly[1].Date)
	})

	t.Run("monthly ends on month end", func(t *testing.T) {
		monthly := Resample(bars, contracts.Monthly)
		require.Len(t, monthly, 2)
		assert.Equal(t, d(1, 31), monthly[0].Date)
		assert.Equal(t, 12.0, monthly[0].Close)
		assert.Equal(t, 150.0, monthly[0].Volume)
		assert.Equal(t, d(2, 29), monthly[1].Date, "leap year")
		assert.Equal(t, 20.0, monthly[1].Close)
	})

	t.Run("sunday belongs to its own week", func(t *testing.T) {
		weekly := Resample([]contracts.Bar{bar(d(2, 4), 5, 1)}, contracts.Weekly)
		assert.Equal(t, d(2, 4), weekly[0].Date)
	})

	t.Run("daily is unchanged", func(t *testing.T) {
		assert.Equal(t, bars, Resample(bars, contracts.Daily))
	})
}

func TestCompute(t *testing.T) {
	p := strategyconfig.Default().Indicators
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("insufficient data", func(t *testing.T) {
		bars := make([]contracts.Bar, 9)
		for i := range bars {
			bars[i] = bar(start.AddDate(0, 0, i), 10, 1)
		}
		_, err := Compute(bars, contracts.Daily, p, 10)
		assert.True(t, errors.Is(err, contracts.ErrInsufficientData))
	})

	t.Run("daily rows aligned with bars", func(t *testing.T) {
		bars := make([]contracts.Bar, 60)
		for i := range bars {
			bars[i] = bar(start.AddDate(0, 0, i), 100+float64(i), 10)
		}
		rows, err := Compute(bars, contracts.Daily, p, 10)
		require.NoError(t, err)
		require.Len(t, rows, 60)

		assert.True(t, math.IsNaN(rows[18].SMA20))
		assert.InDelta(t, 109.5, rows[19].SMA20, 1e-9)
		assert.False(t, math.IsNaN(rows[0].EMA10))
		assert.False(t, math.IsNaN(rows[59].HMA50))
		assert.Equal(t, 100.0, rows[59].RSI)
		assert.InDelta(t, 10.0, rows[59].VolumeSMA20, 1e-9)
	})

	t.Run("weekly resamples first", func(t *testing.T) {
		bars := make([]contracts.Bar, 28)
		for i := range bars {
			bars[i] = bar(start.AddDate(0, 0, i), 100, 1) // 2024-01-01 is a Monday
		}
		rows, err := Compute(bars, contracts.Weekly, p, 10)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, time.Sunday, rows[0].Date.Weekday())
		assert.Equal(t, 7.0, rows[0].Volume)
	})
}
