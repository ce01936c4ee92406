package contracts

import (
	"sort"
	"time"
)

// SyncOutcome is the per-issuer result of one synchronization run
// ⭐ SSOT: 종목별 동기화 결과 (bulkhead 단위)
type SyncOutcome struct {
	IssuerCode   string    `json:"issuer_code"`
	Window       DateRange `json:"window"`
	Skipped      bool      `json:"skipped"` // already up to date
	Chunks       int       `json:"chunks"`
	FailedChunks int       `json:"failed_chunks"`
	Fetched      int       `json:"fetched"`
	Errors       []string  `json:"errors,omitempty"`
}

// HasErrors reports whether any chunk or the gap lookup failed
func (o *SyncOutcome) HasErrors() bool {
	return len(o.Errors) > 0
}

// SyncReport aggregates a synchronization run keyed by issuer code
type SyncReport struct {
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Workers    int                     `json:"workers"`
	Outcomes   map[string]*SyncOutcome `json:"outcomes"`
	Rows       []RawRow                `json:"-"`

	Fetched    int   `json:"fetched"`
	Normalized int   `json:"normalized"`
	Dropped    int   `json:"dropped"`
	Inserted   int64 `json:"inserted"`
}

// NewSyncReport creates an empty report
func NewSyncReport(workers int) *SyncReport {
	return &SyncReport{
		StartedAt: time.Now(),
		Workers:   workers,
		Outcomes:  make(map[string]*SyncOutcome),
	}
}

// Skipped counts issuers that were already up to date
func (r *SyncReport) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Skipped {
			n++
		}
	}
	return n
}

// FailedCodes returns the sorted codes of issuers with at least one error
func (r *SyncReport) FailedCodes() []string {
	var codes []string
	for code, o := range r.Outcomes {
		if o.HasErrors() {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Duration returns the wall-clock time of the run
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
