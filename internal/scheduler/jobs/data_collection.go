package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/msesync/internal/brain"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/logger"
)

// DataCollectionJob discovers issuers and fills history gaps
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	runner   Runner
	schedule string
	reformat bool
	logger   *logger.Logger
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(runner Runner, cfg *config.Config, log *logger.Logger) *DataCollectionJob {
	return &DataCollectionJob{
		runner:   runner,
		schedule: cfg.Sync.Schedule,
		reformat: cfg.Sync.Reformat,
		logger:   log,
	}
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "data_collection"
}

// Schedule returns the cron schedule (SYNC_SCHEDULE, weekdays after the close by default)
func (j *DataCollectionJob) Schedule() string {
	return j.schedule
}

// Run executes the data collection
func (j *DataCollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled data collection")

	report, err := j.runner.Run(ctx, brain.SyncRun(time.Now(), j.reformat))
	if err != nil {
		return fmt.Errorf("sync run: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":  report.RunID,
		"issuers": report.Issuers,
	}
	if report.Sync != nil {
		fields["fetched"] = report.Sync.Fetched
		fields["inserted"] = report.Sync.Inserted
		fields["failed"] = len(report.Sync.FailedCodes())
	}
	j.logger.WithFields(fields).Info("Scheduled data collection completed")

	return nil
}
