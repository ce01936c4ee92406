package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/msesync/internal/brain"
	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/logger"
)

// ReformatJob runs the re-format pass on its own schedule when it is not
// part of every sync. It goes through the pipeline runner so it never
// overlaps a sync run.
type ReformatJob struct {
	runner Runner
	logger *logger.Logger
}

// NewReformatJob creates a new re-format job
func NewReformatJob(runner Runner, log *logger.Logger) *ReformatJob {
	return &ReformatJob{
		runner: runner,
		logger: log,
	}
}

// Name returns the job name
func (j *ReformatJob) Name() string {
	return "reformat"
}

// Schedule returns the cron schedule (Sunday 3 AM)
func (j *ReformatJob) Schedule() string {
	return "0 0 3 * * SUN"
}

// Run executes the re-format pass. A busy runner is an error so the
// scheduler retries after the running sync finishes.
func (j *ReformatJob) Run(ctx context.Context) error {
	j.logger.WithField("stage", contracts.StageReformat.String()).Debug("Starting scheduled re-format")

	report, err := j.runner.Run(ctx, brain.ReformatRun(time.Now()))
	if err != nil {
		return fmt.Errorf("reformat run: %w", err)
	}

	for _, stage := range report.Stages {
		if stage.Stage != contracts.StageReformat {
			continue
		}
		if !stage.Success {
			return fmt.Errorf("reformat: %s", stage.Error)
		}
		j.logger.WithField("rows", stage.OutputCount).Info("Re-format completed")
	}
	return nil
}
