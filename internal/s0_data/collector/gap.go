package collector

import (
	"time"

	"github.com/wonny/msesync/internal/contracts"
)

// DefaultLookbackYears is the history depth fetched for an issuer with no stored rows
const DefaultLookbackYears = 10

// Window returns the date window an issuer still needs.
// ⭐ SSOT: 갭 탐지 규칙은 여기서만
//
// No stored rows: [today - lookbackYears, today]. Otherwise [last+1, today].
// ok is false when the issuer is already up to date.
func Window(last time.Time, found bool, today time.Time, lookbackYears int) (contracts.DateRange, bool) {
	if lookbackYears <= 0 {
		lookbackYears = DefaultLookbackYears
	}
	today = contracts.Day(today)

	start := today.AddDate(-lookbackYears, 0, 0)
	if found {
		start = contracts.Day(last).AddDate(0, 0, 1)
	}

	if start.After(today) {
		return contracts.DateRange{}, false
	}
	return contracts.NewDateRange(start, today), true
}
