package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/msesync/internal/brain"
	"github.com/wonny/msesync/internal/s0_data/quality"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/logger"
)

// FreshnessChecker reports data freshness before analysis
type FreshnessChecker interface {
	Check(ctx context.Context, today time.Time) (*quality.Snapshot, error)
}

// AnalysisJob computes indicators and signals and exports them
// ⭐ SSOT: 분석 스케줄은 이 Job에서만
type AnalysisJob struct {
	runner      Runner
	qualityGate FreshnessChecker
	schedule    string
	logger      *logger.Logger
}

// NewAnalysisJob creates a new analysis job. qg may be nil.
func NewAnalysisJob(runner Runner, qg FreshnessChecker, cfg *config.Config, log *logger.Logger) *AnalysisJob {
	return &AnalysisJob{
		runner:      runner,
		qualityGate: qg,
		schedule:    cfg.Analysis.Schedule,
		logger:      log,
	}
}

// Name returns the job name
func (j *AnalysisJob) Name() string {
	return "analysis"
}

// Schedule returns the cron schedule (ANALYSIS_SCHEDULE, after data collection)
func (j *AnalysisJob) Schedule() string {
	return j.schedule
}

// Run executes the analysis
func (j *AnalysisJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled analysis")

	now := time.Now()
	if j.qualityGate != nil {
		snapshot, err := j.qualityGate.Check(ctx, now)
		if err != nil {
			return fmt.Errorf("freshness check failed: %w", err)
		}
		if !snapshot.Passed {
			j.logger.WithFields(map[string]interface{}{
				"coverage":      snapshot.Coverage,
				"total_issuers": snapshot.TotalIssuers,
				"fresh_issuers": snapshot.FreshIssuers,
			}).Warn("Data freshness below threshold, but continuing with analysis")
		}
	}

	report, err := j.runner.Run(ctx, brain.AnalysisRun(now))
	if err != nil {
		return fmt.Errorf("analysis run: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":   report.RunID,
		"exported": report.Exported,
	}
	if report.Analysis != nil {
		fields["analyzed"] = report.Analysis.Analyzed
		fields["failed"] = report.Analysis.Failed
		fields["buy"] = report.Analysis.Buy
		fields["sell"] = report.Analysis.Sell
	}
	j.logger.WithFields(fields).Info("Scheduled analysis completed")

	return nil
}
