package contracts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Timeframe is the resampling granularity of an analysis
type Timeframe string

const (
	Daily   Timeframe = "daily"
	Weekly  Timeframe = "weekly"
	Monthly Timeframe = "monthly"
)

// AllTimeframes returns every timeframe in analysis order
func AllTimeframes() []Timeframe {
	return []Timeframe{Daily, Weekly, Monthly}
}

// ParseTimeframe accepts the lower-case name or the D/W/M shorthand
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "d":
		return Daily, nil
	case "weekly", "w":
		return Weekly, nil
	case "monthly", "m":
		return Monthly, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
}

// Bar is one observation fed to the indicator engine.
// Close is the last price, High/Low are max/min, Volume is traded quantity.
type Bar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Avg    float64   `json:"avg"`
	Volume float64   `json:"volume"`
}

// IndicatorRow is a bar plus every computed indicator.
// NaN means undefined (not enough history or a zero denominator).
type IndicatorRow struct {
	Bar
	SMA20       float64 `json:"sma_20"`
	EMA10       float64 `json:"ema_10"`
	WMA30       float64 `json:"wma_30"`
	MACD        float64 `json:"macd"`
	HMA50       float64 `json:"hma_50"`
	RSI         float64 `json:"rsi"`
	StochK      float64 `json:"stoch_k"`
	StochD      float64 `json:"stoch_d"`
	CCI         float64 `json:"cci"`
	Momentum    float64 `json:"momentum"`
	WilliamsR   float64 `json:"williams_r"`
	ATR         float64 `json:"atr"`
	VolumeSMA20 float64 `json:"volume_sma_20"`
	PriceChange float64 `json:"price_change"`
}

// Defined reports whether v carries a value
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Action is the composite recommendation for one date
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Trend labels for the MA and MACD components
const (
	Bullish = "BULLISH"
	Bearish = "BEARISH"
)

// Oscillator labels for the RSI, Stochastic and CCI components
const (
	Overbought = "OVERBOUGHT"
	Oversold   = "OVERSOLD"
	Neutral    = "NEUTRAL"
)

// Volume trend labels
const (
	VolumeHigh = "HIGH"
	VolumeLow  = "LOW"
)

// Signal is the per-date recommendation and the components that produced it.
// Empty component strings mean the inputs were undefined.
type Signal struct {
	IssuerCode  string    `json:"issuer_code"`
	Timeframe   Timeframe `json:"timeframe"`
	Date        time.Time `json:"date"`
	Price       float64   `json:"price"`
	Action      Action    `json:"signal"`
	MATrend     string    `json:"ma_trend,omitempty"`
	MACDSignal  string    `json:"macd_signal,omitempty"`
	RSISignal   string    `json:"rsi_signal,omitempty"`
	StochSignal string    `json:"stoch_signal,omitempty"`
	CCISignal   string    `json:"cci_signal,omitempty"`
	VolumeTrend string    `json:"volume_trend,omitempty"`
}

// IsActionable reports whether the signal is BUY or SELL
func (s *Signal) IsActionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}

// TimeframeResult holds the indicator table and signal list for one timeframe
type TimeframeResult struct {
	Timeframe Timeframe      `json:"timeframe"`
	Rows      []IndicatorRow `json:"-"`
	Signals   []Signal       `json:"-"`
	Err       string         `json:"error,omitempty"`
}

// AnalysisResult is the outcome of analyzing one issuer.
// Err is set instead of Timeframes when the issuer could not be analyzed.
type AnalysisResult struct {
	IssuerCode string                         `json:"issuer_code"`
	Bars       int                            `json:"bars"`
	Timeframes map[Timeframe]*TimeframeResult `json:"timeframes,omitempty"`
	Err        string                         `json:"error,omitempty"`
}

// Failed reports whether the issuer produced an error marker
func (r *AnalysisResult) Failed() bool {
	return r.Err != ""
}

// CountSignals counts signals with the given action across timeframes
func (r *AnalysisResult) CountSignals(action Action) int {
	n := 0
	for _, tf := range r.Timeframes {
		for i := range tf.Signals {
			if tf.Signals[i].Action == action {
				n++
			}
		}
	}
	return n
}

// AnalysisReport aggregates one analysis run keyed by issuer code
type AnalysisReport struct {
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Results    map[string]*AnalysisResult `json:"-"`
	Analyzed   int                        `json:"analyzed"`
	Failed     int                        `json:"failed"`
	Buy        int                        `json:"buy"`
	Sell       int                        `json:"sell"`
	Errors     map[string]string          `json:"errors,omitempty"`
	ParamsHash string                     `json:"params_hash,omitempty"`
}

// FailedCodes returns the sorted codes of issuers with an error marker
func (r *AnalysisReport) FailedCodes() []string {
	codes := make([]string, 0, len(r.Errors))
	for code := range r.Errors {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
