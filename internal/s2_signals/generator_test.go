package s2_signals

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/strategyconfig"
)

var nan = math.NaN()

// row builds an indicator row with neutral oscillators
func row(sma, ema, macd float64) contracts.IndicatorRow {
	return contracts.IndicatorRow{
		Bar:         contracts.Bar{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Close: 100, Volume: 50},
		SMA20:       sma,
		EMA10:       ema,
		MACD:        macd,
		RSI:         50,
		StochK:      50,
		StochD:      50,
		CCI:         0,
		VolumeSMA20: 40,
	}
}

func TestGenerate(t *testing.T) {
	th := strategyconfig.Default().Signals

	tests := []struct {
		name   string
		mutate func(*contracts.IndicatorRow)
		base   contracts.IndicatorRow
		want   contracts.Action
	}{
		{"bullish trend without oversold is hold", nil, row(11, 10, 1), contracts.ActionHold},
		{"buy on oversold rsi", func(r *contracts.IndicatorRow) { r.RSI = 25 }, row(11, 10, 1), contracts.ActionBuy},
		{"buy on oversold stochastic", func(r *contracts.IndicatorRow) { r.StochK, r.StochD = 10, 15 }, row(11, 10, 1), contracts.ActionBuy},
		{"stochastic needs both lines", func(r *contracts.IndicatorRow) { r.StochK, r.StochD = 10, 25 }, row(11, 10, 1), contracts.ActionHold},
		{"buy on oversold cci", func(r *contracts.IndicatorRow) { r.CCI = -150 }, row(11, 10, 1), contracts.ActionBuy},
		{"sell on overbought rsi", func(r *contracts.IndicatorRow) { r.RSI = 75 }, row(9, 10, -1), contracts.ActionSell},
		{"sell on overbought cci", func(r *contracts.IndicatorRow) { r.CCI = 150 }, row(9, 10, -1), contracts.ActionSell},
		{"oversold in downtrend is hold", func(r *contracts.IndicatorRow) { r.RSI = 25 }, row(9, 10, -1), contracts.ActionHold},
		{"mixed trend is hold", func(r *contracts.IndicatorRow) { r.RSI = 25 }, row(11, 10, -1), contracts.ActionHold},
		{"equal averages are bearish", func(r *contracts.IndicatorRow) { r.RSI = 75 }, row(10, 10, -1), contracts.ActionSell},
		{"undefined sma is hold", func(r *contracts.IndicatorRow) { r.RSI = 25 }, row(nan, 10, 1), contracts.ActionHold},
		{"undefined macd is hold", func(r *contracts.IndicatorRow) { r.RSI = 75 }, row(9, 10, nan), contracts.ActionHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.base
			if tt.mutate != nil {
				tt.mutate(&r)
			}
			signals := Generate("ALK", contracts.Daily, []contracts.IndicatorRow{r}, th)
			require.Len(t, signals, 1)
			assert.Equal(t, tt.want, signals[0].Action)
		})
	}
}

func TestGenerate_Components(t *testing.T) {
	th := strategyconfig.Default().Signals

	r := row(11, 10, 1)
	r.RSI = 25
	sig := Generate("ALK", contracts.Weekly, []contracts.IndicatorRow{r}, th)[0]

	assert.Equal(t, "ALK", sig.IssuerCode)
	assert.Equal(t, contracts.Weekly, sig.Timeframe)
	assert.Equal(t, 100.0, sig.Price)
	assert.Equal(t, contracts.Bullish, sig.MATrend)
	assert.Equal(t, contracts.Bullish, sig.MACDSignal)
	assert.Equal(t, contracts.Oversold, sig.RSISignal)
	assert.Empty(t, sig.StochSignal)
	assert.Empty(t, sig.CCISignal)
	assert.Equal(t, contracts.VolumeHigh, sig.VolumeTrend)

	neutral := Generate("ALK", contracts.Daily, []contracts.IndicatorRow{row(11, 10, 1)}, th)[0]
	assert.Equal(t, contracts.Neutral, neutral.RSISignal)

	undefined := row(nan, nan, nan)
	undefined.RSI, undefined.VolumeSMA20 = nan, nan
	empty := Generate("ALK", contracts.Daily, []contracts.IndicatorRow{undefined}, th)[0]
	assert.Empty(t, empty.MATrend)
	assert.Empty(t, empty.MACDSignal)
	assert.Empty(t, empty.RSISignal)
	assert.Empty(t, empty.VolumeTrend)
	assert.Equal(t, contracts.ActionHold, empty.Action)
}

func TestGenerate_MutuallyExclusive(t *testing.T) {
	th := strategyconfig.Default().Signals
	rng := rand.New(rand.NewSource(42))

	pick := func() float64 {
		if rng.Intn(10) == 0 {
			return nan
		}
		return rng.Float64()*400 - 200
	}

	rows := make([]contracts.IndicatorRow, 5000)
	for i := range rows {
		rows[i] = contracts.IndicatorRow{
			SMA20: pick(), EMA10: pick(), MACD: pick(),
			RSI: rng.Float64() * 100, StochK: rng.Float64() * 100, StochD: rng.Float64() * 100,
			CCI: pick(),
		}
	}

	for _, sig := range Generate("ALK", contracts.Daily, rows, th) {
		buy := sig.Action == contracts.ActionBuy
		sell := sig.Action == contracts.ActionSell
		assert.False(t, buy && sell)
		if buy {
			assert.Equal(t, contracts.Bullish, sig.MATrend)
		}
		if sell {
			assert.Equal(t, contracts.Bearish, sig.MATrend)
		}
	}
}
