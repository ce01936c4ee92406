package planner

import (
	"time"

	"github.com/wonny/msesync/internal/contracts"
)

// DefaultChunkDays keeps every request under the source's per-query window limit
const DefaultChunkDays = 340

// Plan splits [start, end] into consecutive, non-overlapping day ranges of at most
// maxChunkDays days each, covering the interval exactly.
// ⭐ SSOT: 수집 구간 분할은 여기서만
//
// Bounds are truncated to the day. start > end yields nil; start == end yields one
// single-day range. maxChunkDays <= 0 falls back to DefaultChunkDays.
func Plan(start, end time.Time, maxChunkDays int) []contracts.DateRange {
	if maxChunkDays <= 0 {
		maxChunkDays = DefaultChunkDays
	}

	start = contracts.Day(start)
	end = contracts.Day(end)
	if start.After(end) {
		return nil
	}

	total := contracts.DateRange{Start: start, End: end}.Days()
	ranges := make([]contracts.DateRange, 0, (total+maxChunkDays-1)/maxChunkDays)

	for cur := start; !cur.After(end); {
		chunkEnd := cur.AddDate(0, 0, maxChunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		ranges = append(ranges, contracts.DateRange{Start: cur, End: chunkEnd})
		cur = chunkEnd.AddDate(0, 0, 1)
	}

	return ranges
}
