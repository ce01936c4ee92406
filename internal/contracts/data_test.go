package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDateRange_Days(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"single day", "2024-01-01", "2024-01-01", 1},
		{"two days", "2024-01-01", "2024-01-02", 2},
		{"leap february", "2024-02-01", "2024-02-29", 29},
		{"ten years", "2014-06-15", "2024-06-15", 3654},
		{"reversed", "2024-01-02", "2024-01-01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDateRange(date(tt.start), date(tt.end))
			assert.Equal(t, tt.want, r.Days())
			assert.Equal(t, tt.want == 0, r.IsEmpty())
		})
	}
}

func TestDateRange_ContainsIgnoresTimeOfDay(t *testing.T) {
	r := NewDateRange(date("2024-01-10"), date("2024-01-15"))

	assert.True(t, r.Contains(date("2024-01-10")))
	assert.True(t, r.Contains(date("2024-01-15").Add(23*time.Hour)))
	assert.False(t, r.Contains(date("2024-01-09")))
	assert.False(t, r.Contains(date("2024-01-16")))
}

func TestDateRange_String(t *testing.T) {
	r := NewDateRange(date("2024-01-01"), date("2024-12-05"))
	assert.Equal(t, "2024-01-01~2024-12-05", r.String())
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	got := Day(time.Date(2024, 3, 5, 23, 30, 0, 0, loc))

	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTimeframe(t *testing.T) {
	for _, in := range []string{"daily", "D", " Weekly ", "m"} {
		_, err := ParseTimeframe(in)
		require.NoError(t, err, in)
	}

	_, err := ParseTimeframe("hourly")
	assert.Error(t, err)
}

func TestSyncReport_FailedCodes(t *testing.T) {
	report := NewSyncReport(4)
	report.Outcomes["ZZZ"] = &SyncOutcome{IssuerCode: "ZZZ", Errors: []string{"timeout"}}
	report.Outcomes["ABC"] = &SyncOutcome{IssuerCode: "ABC", Errors: []string{"parse"}}
	report.Outcomes["XYZ"] = &SyncOutcome{IssuerCode: "XYZ", Skipped: true}

	assert.Equal(t, []string{"ABC", "ZZZ"}, report.FailedCodes())
	assert.Equal(t, 1, report.Skipped())
}

func TestAnalysisResult_CountSignals(t *testing.T) {
	result := &AnalysisResult{
		IssuerCode: "ALK",
		Timeframes: map[Timeframe]*TimeframeResult{
			Daily:  {Signals: []Signal{{Action: ActionBuy}, {Action: ActionHold}, {Action: ActionBuy}}},
			Weekly: {Signals: []Signal{{Action: ActionSell}}},
		},
	}

	assert.Equal(t, 2, result.CountSignals(ActionBuy))
	assert.Equal(t, 1, result.CountSignals(ActionSell))
	assert.Equal(t, 1, result.CountSignals(ActionHold))
	assert.False(t, result.Failed())
}

func TestRunReport_Success(t *testing.T) {
	report := &RunReport{Stages: []StageResult{{Stage: StageSync, Success: true}}}
	assert.True(t, report.Success())

	report.Stages = append(report.Stages, StageResult{Stage: StageAnalyze, Success: false})
	assert.False(t, report.Success())
	assert.True(t, IsValidStage("REFORMAT"))
	assert.False(t, IsValidStage("S7_AUDIT"))
}
