package scheduler

import (
	"context"
	"time"
)

// maxHistory bounds the results kept per job
const maxHistory = 100

// Job is one unit of scheduled pipeline work (sync, analysis, re-format)
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes one attempt. A returned error triggers a retry.
	Run(ctx context.Context) error

	// Schedule is a six-field cron expression with seconds, e.g.
	// "0 0 18 * * MON-FRI" (weekdays after the MSE close) or "0 0 3 * * SUN"
	Schedule() string
}

// JobResult is the outcome of one scheduled or manual execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the most recent results of a job, oldest first
type JobHistory struct {
	Results []JobResult
}

// Add appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) Add(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Latest returns up to n most recent results
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	return append([]JobResult(nil), h.Results[len(h.Results)-n:]...)
}

// Last returns the most recent result with the given outcome, or nil
func (h *JobHistory) Last(success bool) *JobResult {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success == success {
			r := h.Results[i]
			return &r
		}
	}
	return nil
}

// Counts returns the number of successful and failed results
func (h *JobHistory) Counts() (succeeded, failed int) {
	for _, r := range h.Results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// SuccessRate is succeeded / total, or 0 without results
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	succeeded, _ := h.Counts()
	return float64(succeeded) / float64(len(h.Results))
}

func (h *JobHistory) clone() *JobHistory {
	return &JobHistory{Results: append([]JobResult(nil), h.Results...)}
}
