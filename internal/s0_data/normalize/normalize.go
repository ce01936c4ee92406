package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/msesync/internal/contracts"
)

// Locale selects the thousands/decimal separator convention of a row
type Locale int

const (
	// LocaleAuto guesses separators from the digit grouping
	LocaleAuto Locale = iota
	// LocaleEN uses ',' thousands and '.' decimal (M/D/YYYY dates)
	LocaleEN
	// LocaleMK uses '.' thousands and ',' decimal (D.M.YYYY dates)
	LocaleMK
)

var (
	errEmptyDate = errors.New("empty date")

	commaGrouped = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+$`)
	dotGrouped   = regexp.MustCompile(`^[-+]?\d{1,3}(\.\d{3}){2,}$`)
)

// Stats counts what happened to a batch
type Stats struct {
	Input      int `json:"input"`
	Kept       int `json:"kept"`
	Dropped    int `json:"dropped"`
	Duplicates int `json:"duplicates"`
}

// Normalize converts raw rows into canonical records grouped by issuer code
// (groups in ascending code order) with dates descending inside each group.
// ⭐ SSOT: 원시 행 → PriceRecord 변환은 여기서만
//
// Rows with a missing code, an unparsable date or a malformed number are dropped
// individually. Repeated (issuer, date) pairs keep the first occurrence.
func Normalize(rows []contracts.RawRow) ([]contracts.PriceRecord, Stats) {
	stats := Stats{Input: len(rows)}

	groups := make(map[string][]contracts.PriceRecord)
	seen := make(map[string]struct{}, len(rows))

	for i := range rows {
		rec, err := Record(rows[i])
		if err != nil {
			stats.Dropped++
			continue
		}
		if _, dup := seen[rec.Key()]; dup {
			stats.Duplicates++
			continue
		}
		seen[rec.Key()] = struct{}{}
		groups[rec.IssuerCode] = append(groups[rec.IssuerCode], rec)
	}

	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]contracts.PriceRecord, 0, len(rows)-stats.Dropped-stats.Duplicates)
	for _, code := range codes {
		group := groups[code]
		SortDescending(group)
		out = append(out, group...)
	}

	stats.Kept = len(out)
	return out, stats
}

// SortDescending orders one issuer's records newest first.
// Canonical dates sort lexically; already-descending input is left untouched.
func SortDescending(group []contracts.PriceRecord) {
	desc := func(i, j int) bool { return group[i].Date > group[j].Date }
	if sort.SliceIsSorted(group, desc) {
		return
	}
	sort.SliceStable(group, desc)
}

// Record parses one raw row
func Record(row contracts.RawRow) (contracts.PriceRecord, error) {
	code := strings.TrimSpace(row.IssuerCode)
	if code == "" {
		return contracts.PriceRecord{}, errors.New("missing issuer code")
	}

	date, locale, err := ParseDate(row.Fields[contracts.FieldDate])
	if err != nil {
		return contracts.PriceRecord{}, err
	}

	rec := contracts.PriceRecord{IssuerCode: code, Date: date}
	targets := []*decimal.NullDecimal{
		&rec.LastPrice,
		&rec.MaxPrice,
		&rec.MinPrice,
		&rec.AvgPrice,
		&rec.PercentChange,
		&rec.Quantity,
		&rec.TurnoverBest,
		&rec.TotalTurnover,
	}
	for i, dst := range targets {
		raw := row.Fields[contracts.FieldLastPrice+i]
		v, err := ParseNumber(raw, locale)
		if err != nil {
			return contracts.PriceRecord{}, fmt.Errorf("field %d: %w", contracts.FieldLastPrice+i, err)
		}
		*dst = v
	}

	return rec, nil
}

// ParseDate accepts M/D/YYYY (en site), D.M.YYYY (mk site) and YYYY-MM-DD and
// returns the canonical form plus the locale implied by the display format.
func ParseDate(s string) (string, Locale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", LocaleAuto, errEmptyDate
	}

	var (
		layout string
		locale Locale
	)
	switch {
	case strings.Contains(s, "/"):
		layout, locale = "1/2/2006", LocaleEN
	case strings.Contains(s, "."):
		layout, locale = "2.1.2006", LocaleMK
		s = strings.TrimSuffix(s, ".")
	default:
		layout, locale = contracts.DateLayout, LocaleAuto
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return "", locale, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Format(contracts.DateLayout), locale, nil
}

// ParseNumber strips locale separators and parses a decimal.
// Empty cells are NULL, not zero.
func ParseNumber(s string, locale Locale) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", ""))
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "-" {
		return decimal.NullDecimal{}, nil
	}

	var canonical string
	switch locale {
	case LocaleEN:
		canonical = strings.ReplaceAll(s, ",", "")
	case LocaleMK:
		canonical = strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	default:
		canonical = autoCanonical(s)
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("malformed number %q", s)
	}
	return decimal.NewNullDecimal(d), nil
}

// autoCanonical guesses the separators when the row's locale is unknown.
// With both present the last one is the decimal point.
func autoCanonical(s string) string {
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if commaGrouped.MatchString(s) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.ReplaceAll(s, ",", ".")
	case dot >= 0:
		if dotGrouped.MatchString(s) {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	default:
		return s
	}
}

// FormatPrice renders the canonical display form used by the re-format pass:
// two fractional digits, '.' decimal, no grouping.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}
