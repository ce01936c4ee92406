package contracts

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical sortable storage form of a trading date
// ⭐ SSOT: 저장소의 날짜 문자열 형식은 여기서만 정의
const DateLayout = "2006-01-02"

// RawFieldCount is the number of positional cells in one source history row
const RawFieldCount = 9

// Positional indexes into RawRow.Fields
const (
	FieldDate = iota
	FieldLastPrice
	FieldMaxPrice
	FieldMinPrice
	FieldAvgPrice
	FieldPercentChange
	FieldQuantity
	FieldTurnoverBest
	FieldTotalTurnover
)

var (
	// ErrInsufficientData is returned when a series is too short to analyze
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoRows is returned when a lookup finds nothing
	ErrNoRows = errors.New("no rows")
)

// Issuer is a tradable entity identified by its short exchange code
type Issuer struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// RawRow is one unparsed history row as scraped from the source
type RawRow struct {
	IssuerCode string                `json:"issuer_code"`
	Fields     [RawFieldCount]string `json:"fields"`
}

// PriceRecord is one normalized trading day for an issuer.
// Unique per (IssuerCode, Date). Empty source cells stay NULL.
type PriceRecord struct {
	IssuerCode    string              `json:"issuer_code"`
	Date          string              `json:"date"` // YYYY-MM-DD
	LastPrice     decimal.NullDecimal `json:"last_price"`
	MaxPrice      decimal.NullDecimal `json:"max_price"`
	MinPrice      decimal.NullDecimal `json:"min_price"`
	AvgPrice      decimal.NullDecimal `json:"avg_price"`
	PercentChange decimal.NullDecimal `json:"percent_change"`
	Quantity      decimal.NullDecimal `json:"quantity"`
	TurnoverBest  decimal.NullDecimal `json:"turnover_best"`
	TotalTurnover decimal.NullDecimal `json:"total_turnover"`
}

// Key returns the composite uniqueness key
func (p *PriceRecord) Key() string {
	return p.IssuerCode + "|" + p.Date
}

// Time parses the canonical date
func (p *PriceRecord) Time() (time.Time, error) {
	return time.Parse(DateLayout, p.Date)
}

// DateRange is an inclusive, day-granular [Start, End] interval
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day truncates t to UTC midnight of its calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDateRange builds a range with both bounds truncated to the day
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// IsEmpty reports whether the range contains no days
func (r DateRange) IsEmpty() bool {
	return Day(r.Start).After(Day(r.End))
}

// Days returns the number of calendar days in the range, inclusive
func (r DateRange) Days() int {
	if r.IsEmpty() {
		return 0
	}
	return int(Day(r.End).Sub(Day(r.Start)).Hours()/24) + 1
}

// Contains reports whether t falls on a day inside the range
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s~%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}
