package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/internal/brain"
	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/s0_data/quality"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/logger"
)

type fakeRunner struct {
	configs []brain.RunConfig
	err     error
}

func (r *fakeRunner) Run(_ context.Context, cfg brain.RunConfig) (*contracts.RunReport, error) {
	r.configs = append(r.configs, cfg)
	if r.err != nil {
		return nil, r.err
	}
	return &contracts.RunReport{
		RunID:    "run_test",
		Sync:     contracts.NewSyncReport(1),
		Analysis: &contracts.AnalysisReport{Analyzed: 2},
	}, nil
}

type fakeGate struct {
	snapshot *quality.Snapshot
	err      error
}

func (g *fakeGate) Check(context.Context, time.Time) (*quality.Snapshot, error) {
	return g.snapshot, g.err
}

func testConfig() *config.Config {
	return &config.Config{
		Sync:     config.SyncConfig{Schedule: "0 0 18 * * MON-FRI", Reformat: true},
		Analysis: config.AnalysisConfig{Schedule: "0 30 18 * * MON-FRI"},
	}
}

func TestDataCollectionJob(t *testing.T) {
	runner := &fakeRunner{}
	job := NewDataCollectionJob(runner, testConfig(), logger.Nop())

	assert.Equal(t, "data_collection", job.Name())
	assert.Equal(t, "0 0 18 * * MON-FRI", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, runner.configs, 1)
	cfg := runner.configs[0]
	assert.True(t, cfg.Discover)
	assert.True(t, cfg.Sync)
	assert.True(t, cfg.Reformat)
	assert.False(t, cfg.Analyze)

	runner.err = errors.New("boom")
	assert.ErrorContains(t, job.Run(context.Background()), "boom")
}

func TestAnalysisJob(t *testing.T) {
	t.Run("stale data still runs", func(t *testing.T) {
		runner := &fakeRunner{}
		gate := &fakeGate{snapshot: &quality.Snapshot{Passed: false, Coverage: 0.2}}
		job := NewAnalysisJob(runner, gate, testConfig(), logger.Nop())

		assert.Equal(t, "analysis", job.Name())
		assert.Equal(t, "0 30 18 * * MON-FRI", job.Schedule())

		require.NoError(t, job.Run(context.Background()))
		require.Len(t, runner.configs, 1)
		assert.True(t, runner.configs[0].Analyze)
		assert.True(t, runner.configs[0].Export)
		assert.False(t, runner.configs[0].Sync)
	})

	t.Run("freshness error aborts", func(t *testing.T) {
		runner := &fakeRunner{}
		job := NewAnalysisJob(runner, &fakeGate{err: errors.New("db down")}, testConfig(), logger.Nop())

		assert.Error(t, job.Run(context.Background()))
		assert.Empty(t, runner.configs)
	})

	t.Run("without gate", func(t *testing.T) {
		runner := &fakeRunner{}
		job := NewAnalysisJob(runner, nil, testConfig(), logger.Nop())
		require.NoError(t, job.Run(context.Background()))
		assert.Len(t, runner.configs, 1)
	})
}

func TestReformatJob(t *testing.T) {
	tests := []struct {
		name    string
		runner  Runner
		wantErr string
	}{
		{"success", &reportRunner{report: reformatReport(true, "")}, ""},
		{"stage failure", &reportRunner{report: reformatReport(false, "locked")}, "locked"},
		{"busy runner", &reportRunner{err: brain.ErrRunInProgress}, "in progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewReformatJob(tt.runner, logger.Nop())
			assert.Equal(t, "reformat", job.Name())
			assert.Equal(t, "0 0 3 * * SUN", job.Schedule())

			err := job.Run(context.Background())
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}

			r := tt.runner.(*reportRunner)
			require.Len(t, r.configs, 1)
			assert.True(t, r.configs[0].Reformat)
			assert.False(t, r.configs[0].Sync)
			assert.False(t, r.configs[0].Analyze)
		})
	}
}

// reportRunner returns a fixed report
type reportRunner struct {
	configs []brain.RunConfig
	report  *contracts.RunReport
	err     error
}

func (r *reportRunner) Run(_ context.Context, cfg brain.RunConfig) (*contracts.RunReport, error) {
	r.configs = append(r.configs, cfg)
	return r.report, r.err
}

func reformatReport(success bool, errMsg string) *contracts.RunReport {
	return &contracts.RunReport{
		RunID: "run_test",
		Stages: []contracts.StageResult{
			{Stage: contracts.StageReformat, Success: success, OutputCount: 12, Error: errMsg},
		},
	}
}
