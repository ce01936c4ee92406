// Package indicators computes moving averages and oscillators over price series.
// Every function returns a slice aligned with its input; NaN marks positions
// without enough history or with a zero denominator.
package indicators

import (
	"math"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rolling applies fn to every full window of size n. A window containing NaN yields NaN.
func rolling(values []float64, n int, fn func(window []float64) float64) []float64 {
	out := nanSlice(len(values))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(values); i++ {
		window := values[i-n+1 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = fn(window)
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func mean(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

func maxOf(window []float64) float64 {
	m := window[0]
	for _, v := range window[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(window []float64) float64 {
	m := window[0]
	for _, v := range window[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// div returns a/b, or NaN when b is zero
func div(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

// SMA is the simple moving average over window n
func SMA(values []float64, n int) []float64 {
	return rolling(values, n, mean)
}

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first observation. A NaN input restarts the recursion.
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)

	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			prev = math.NaN()
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// WMA is the linearly weighted moving average over window n (weights 1..n, newest heaviest)
func WMA(values []float64, n int) []float64 {
	denom := float64(n*(n+1)) / 2
	return rolling(values, n, func(window []float64) float64 {
		num := 0.0
		for i, v := range window {
			num += v * float64(i+1)
		}
		return num / denom
	})
}

// MACD is EMA(fast) - EMA(slow)
func MACD(values []float64, fast, slow int) []float64 {
	f := EMA(values, fast)
	s := EMA(values, slow)
	out := make([]float64, len(values))
	for i := range out {
		out[i] = f[i] - s[i]
	}
	return out
}

// HMA is the Hull moving average: WMA(2*WMA(n/2) - WMA(n), round(sqrt(n)))
func HMA(values []float64, n int) []float64 {
	half := WMA(values, n/2)
	full := WMA(values, n)

	diff := make([]float64, len(values))
	for i := range diff {
		diff[i] = 2*half[i] - full[i]
	}
	return WMA(diff, int(math.Round(math.Sqrt(float64(n)))))
}

// RSI is 100 - 100/(1+RS) with RS the ratio of the rolling mean gain to the
// rolling mean loss over period deltas. Deltas start at index 1, so the first
// value is at index period. Zero loss gives 100; a flat window gives NaN.
func RSI(values []float64, period int) []float64 {
	n := len(values)
	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		delta := values[i] - values[i-1]
		if math.IsNaN(delta) {
			continue
		}
		gains[i] = math.Max(delta, 0)
		losses[i] = math.Max(-delta, 0)
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	out := nanSlice(n)
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
		case l == 0 && g == 0:
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out
}

// Stochastic returns %K over kPeriod and %D, the mean of %K over dPeriod
func Stochastic(high, low, close []float64, kPeriod, dPeriod int) (k, d []float64) {
	highest := rolling(high, kPeriod, maxOf)
	lowest := rolling(low, kPeriod, minOf)

	k = make([]float64, len(close))
	for i := range k {
		k[i] = 100 * div(close[i]-lowest[i], highest[i]-lowest[i])
	}
	return k, SMA(k, dPeriod)
}

// CCI is (TP - SMA(TP)) / (0.015 * mean absolute deviation of TP), TP = (high+low+close)/3
func CCI(high, low, close []float64, period int) []float64 {
	tp := make([]float64, len(close))
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}

	out := nanSlice(len(tp))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(tp); i++ {
		window := tp[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		m := mean(window)
		mad := 0.0
		for _, v := range window {
			mad += math.Abs(v - m)
		}
		mad /= float64(period)
		out[i] = div(tp[i]-m, 0.015*mad)
	}
	return out
}

// Momentum is the price minus the price period observations ago
func Momentum(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	for i := period; i < len(values); i++ {
		out[i] = values[i] - values[i-period]
	}
	return out
}

// WilliamsR is -100 * (highest high - close) / (highest high - lowest low)
func WilliamsR(high, low, close []float64, period int) []float64 {
	highest := rolling(high, period, maxOf)
	lowest := rolling(low, period, minOf)

	out := make([]float64, len(close))
	for i := range out {
		out[i] = -100 * div(highest[i]-close[i], highest[i]-lowest[i])
	}
	return out
}

// ATR is the rolling mean of the true range. The first bar has no previous
// close, so its true range is high - low.
func ATR(high, low, close []float64, period int) []float64 {
	tr := make([]float64, len(close))
	for i := range tr {
		tr[i] = high[i] - low[i]
		if i == 0 {
			continue
		}
		tr[i] = math.Max(tr[i], math.Abs(high[i]-close[i-1]))
		tr[i] = math.Max(tr[i], math.Abs(low[i]-close[i-1]))
	}
	return SMA(tr, period)
}

// PctChange is the fractional change from the previous observation
func PctChange(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = div(values[i]-values[i-1], values[i-1])
	}
	return out
}
