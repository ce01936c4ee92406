package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/internal/contracts"
)

func day(s string) time.Time {
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// assertCovers checks union == [start,end], no gaps, no overlaps, every chunk <= n days
func assertCovers(t *testing.T, ranges []contracts.DateRange, start, end time.Time, n int) {
	t.Helper()
	require.NotEmpty(t, ranges)

	assert.True(t, ranges[0].Start.Equal(contracts.Day(start)), "first chunk starts at start")
	assert.True(t, ranges[len(ranges)-1].End.Equal(contracts.Day(end)), "last chunk ends at end")

	for i, r := range ranges {
		assert.False(t, r.IsEmpty(), "chunk %d empty", i)
		assert.LessOrEqual(t, r.Days(), n, "chunk %d too long", i)
		if i > 0 {
			assert.True(t, ranges[i-1].End.AddDate(0, 0, 1).Equal(r.Start), "gap or overlap before chunk %d", i)
		}
	}
}

func TestPlan_TenYearScenario(t *testing.T) {
	start, end := day("2014-06-15"), day("2024-06-15")

	ranges := Plan(start, end, DefaultChunkDays)

	assert.Len(t, ranges, 11)
	assertCovers(t, ranges, start, end, DefaultChunkDays)
	assert.Equal(t, "2014-06-15~2015-05-20", ranges[0].String())
}

func TestPlan_Coverage(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		n     int
		want  int
	}{
		{"single day", "2024-01-01", "2024-01-01", 340, 1},
		{"exact chunk", "2024-01-01", "2024-01-10", 10, 1},
		{"one over", "2024-01-01", "2024-01-11", 10, 2},
		{"chunk of one", "2024-01-01", "2024-01-05", 1, 5},
		{"across leap day", "2023-12-01", "2024-03-31", 30, 5},
		{"year of weeks", "2023-01-01", "2023-12-31", 7, 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := day(tt.start), day(tt.end)
			ranges := Plan(start, end, tt.n)

			assert.Len(t, ranges, tt.want)
			assertCovers(t, ranges, start, end, tt.n)
		})
	}
}

func TestPlan_StartAfterEnd(t *testing.T) {
	assert.Nil(t, Plan(day("2024-01-02"), day("2024-01-01"), 340))
}

func TestPlan_NonPositiveChunkUsesDefault(t *testing.T) {
	start, end := day("2023-01-01"), day("2024-12-31")

	assert.Equal(t, Plan(start, end, DefaultChunkDays), Plan(start, end, 0))
	assert.Equal(t, Plan(start, end, DefaultChunkDays), Plan(start, end, -5))
}

func TestPlan_TruncatesTimeOfDay(t *testing.T) {
	start := day("2024-01-01").Add(15 * time.Hour)
	end := day("2024-01-03").Add(2 * time.Hour)

	ranges := Plan(start, end, 340)

	require.Len(t, ranges, 1)
	assert.Equal(t, 3, ranges[0].Days())
	assert.Equal(t, "2024-01-01~2024-01-03", ranges[0].String())
}
