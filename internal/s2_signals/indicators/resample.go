package indicators

import (
	"time"

	"github.com/wonny/msesync/internal/contracts"
)

// Resample aggregates ascending daily bars into calendar periods.
// ⭐ SSOT: 주봉(일요일 마감) / 월봉(월말 마감) 집계 규칙
//
// Weekly periods end on Sunday and monthly periods on the last day of the
// month; each period is labelled with its end date. Close is the last
// observation, High the max, Low the min, Avg the mean and Volume the sum.
// Periods without observations are not emitted. Daily input is returned as is.
func Resample(bars []contracts.Bar, tf contracts.Timeframe) []contracts.Bar {
	if tf == contracts.Daily || len(bars) == 0 {
		return bars
	}

	var (
		out     []contracts.Bar
		current contracts.Bar
		avgSum  float64
		count   int
	)

	flush := func() {
		if count == 0 {
			return
		}
		current.Avg = avgSum / float64(count)
		out = append(out, current)
	}

	for _, b := range bars {
		end := periodEnd(b.Date, tf)
		if count == 0 || !end.Equal(current.Date) {
			flush()
			current = contracts.Bar{Date: end, High: b.High, Low: b.Low}
			avgSum, count = 0, 0
		}

		current.Close = b.Close
		if b.High > current.High {
			current.High = b.High
		}
		if b.Low < current.Low {
			current.Low = b.Low
		}
		current.Volume += b.Volume
		avgSum += b.Avg
		count++
	}
	flush()

	return out
}

// periodEnd returns the label of the period containing t
func periodEnd(t time.Time, tf contracts.Timeframe) time.Time {
	d := contracts.Day(t)
	switch tf {
	case contracts.Weekly:
		return d.AddDate(0, 0, (7-int(d.Weekday()))%7)
	case contracts.Monthly:
		return time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	default:
		return d
	}
}
