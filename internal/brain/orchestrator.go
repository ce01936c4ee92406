package brain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/s0_data/collector"
	"github.com/wonny/msesync/internal/s0_data/quality"
	"github.com/wonny/msesync/pkg/logger"
	"github.com/wonny/msesync/pkg/redis"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Discoverer refreshes the issuer catalogue
type Discoverer interface {
	Discover(ctx context.Context) (*collector.DiscoverResult, error)
}

// Syncer fetches missing history and merges it
type Syncer interface {
	Synchronize(ctx context.Context, codes []string, today time.Time) (*contracts.SyncReport, error)
	Merge(ctx context.Context, report *contracts.SyncReport) (int64, error)
}

// Analyzer computes indicators and signals for a set of issuers
type Analyzer interface {
	Analyze(ctx context.Context, codes []string) *contracts.AnalysisReport
}

// QualityGate reports data freshness after a merge
type QualityGate interface {
	Check(ctx context.Context, today time.Time) (*quality.Snapshot, error)
	Invalidate(ctx context.Context, today time.Time) error
}

// Orchestrator coordinates the pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
//
//	discover → sync → merge → reformat → analyze → export
type Orchestrator struct {
	discoverer Discoverer
	syncer     Syncer
	analyzer   Analyzer
	store      contracts.PriceStore
	sink       contracts.ResultSink
	gate       QualityGate
	cache      *redis.Cache

	running sync.Mutex
	active  atomic.Bool

	mu     sync.RWMutex
	latest *contracts.RunReport

	logger *logger.Logger
}

// RunConfig selects the stages of one run
type RunConfig struct {
	Date  time.Time
	RunID string
	Codes []string // restrict sync and analysis to these issuers; empty means all stored

	Discover bool
	Sync     bool
	Reformat bool
	Analyze  bool
	Export   bool
}

// FullRun enables every stage
func FullRun(date time.Time, reformat bool) RunConfig {
	return RunConfig{
		Date:     date,
		Discover: true,
		Sync:     true,
		Reformat: reformat,
		Analyze:  true,
		Export:   true,
	}
}

// SyncRun enables the data stages only
func SyncRun(date time.Time, reformat bool) RunConfig {
	return RunConfig{
		Date:     date,
		Discover: true,
		Sync:     true,
		Reformat: reformat,
	}
}

// AnalysisRun enables analyze and export only
func AnalysisRun(date time.Time) RunConfig {
	return RunConfig{
		Date:    date,
		Analyze: true,
		Export:  true,
	}
}

// ReformatRun enables the re-format stage only. It shares the run lock with
// sync runs, so a scheduled re-format never overlaps a merge in this process.
func ReformatRun(date time.Time) RunConfig {
	return RunConfig{
		Date:     date,
		Reformat: true,
	}
}

// NewOrchestrator creates a new orchestrator.
// sink, gate and cache may be nil.
func NewOrchestrator(
	discoverer Discoverer,
	syncer Syncer,
	analyzer Analyzer,
	store contracts.PriceStore,
	sink contracts.ResultSink,
	gate QualityGate,
	cache *redis.Cache,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		discoverer: discoverer,
		syncer:     syncer,
		analyzer:   analyzer,
		store:      store,
		sink:       sink,
		gate:       gate,
		cache:      cache,
		logger:     log.Module("brain"),
	}
}

// Run executes the enabled stages in order.
// Per-issuer failures stay in the stage reports. The returned error is set
// when a stage could not run at all, or the run was cancelled.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*contracts.RunReport, error) {
	if !o.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.running.Unlock()
	o.active.Store(true)
	defer o.active.Store(false)

	if config.Date.IsZero() {
		config.Date = time.Now()
	}
	if config.RunID == "" {
		config.RunID = NewRunID(time.Now())
	}

	report := &contracts.RunReport{
		RunID:     config.RunID,
		StartedAt: time.Now(),
		Stages:    make([]contracts.StageResult, 0, len(contracts.AllStages())),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id": config.RunID,
		"date":   contracts.Day(config.Date).Format(contracts.DateLayout),
		"codes":  len(config.Codes),
	}).Info("Starting pipeline run")

	err := o.run(ctx, config, report)
	if err != nil {
		report.Error = err.Error()
	}
	report.FinishedAt = time.Now()
	o.remember(ctx, report)

	log := o.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"stages":   len(report.Stages),
		"exported": report.Exported,
		"duration": report.FinishedAt.Sub(report.StartedAt),
	})
	if report.Success() {
		log.Info("Pipeline run completed successfully")
	} else {
		log.Warn("Pipeline run completed with failures")
	}

	return report, err
}

func (o *Orchestrator) run(ctx context.Context, config RunConfig, report *contracts.RunReport) error {
	if config.Discover {
		// a failed discovery still leaves the stored catalogue usable
		_ = o.stage(report, contracts.StageDiscover, 0, func() (int, error) {
			res, err := o.discoverer.Discover(ctx)
			if err != nil {
				return 0, err
			}
			return int(res.Inserted), nil
		})
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	var codes []string
	if config.Sync || config.Analyze {
		var err error
		codes, err = o.codes(ctx, config.Codes)
		if err != nil {
			return err
		}
		report.Issuers = len(codes)
	}

	if config.Sync {
		if err := o.runSync(ctx, config, codes, report); err != nil {
			return err
		}
	}

	if config.Reformat {
		_ = o.stage(report, contracts.StageReformat, 0, func() (int, error) {
			n, err := o.store.Reformat(ctx)
			return int(n), err
		})
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if config.Analyze {
		var analysis *contracts.AnalysisReport
		_ = o.stage(report, contracts.StageAnalyze, len(codes), func() (int, error) {
			analysis = o.analyzer.Analyze(ctx, codes)
			return analysis.Analyzed, nil
		})
		report.Analysis = analysis
		if err := ctx.Err(); err != nil {
			return err
		}

		if config.Export && o.sink != nil {
			_ = o.stage(report, contracts.StageExport, len(analysis.Results), func() (int, error) {
				n, err := o.export(ctx, analysis)
				report.Exported = n
				return n, err
			})
		}
	}

	return ctx.Err()
}

// runSync fetches the gaps of every issuer and merges the result once
func (o *Orchestrator) runSync(ctx context.Context, config RunConfig, codes []string, report *contracts.RunReport) error {
	var syncReport *contracts.SyncReport
	err := o.stage(report, contracts.StageSync, len(codes), func() (int, error) {
		var err error
		syncReport, err = o.syncer.Synchronize(ctx, codes, config.Date)
		if syncReport == nil {
			return 0, err
		}
		return syncReport.Fetched, err
	})
	report.Sync = syncReport
	if err != nil {
		return fmt.Errorf("%s failed: %w", contracts.StageSync, err)
	}

	err = o.stage(report, contracts.StageMerge, syncReport.Fetched, func() (int, error) {
		n, err := o.syncer.Merge(ctx, syncReport)
		return int(n), err
	})
	if err != nil {
		return fmt.Errorf("%s failed: %w", contracts.StageMerge, err)
	}

	if o.gate != nil {
		o.checkFreshness(ctx, config.Date)
	}
	return nil
}

// checkFreshness logs the post-merge freshness snapshot. It never fails the run.
func (o *Orchestrator) checkFreshness(ctx context.Context, today time.Time) {
	if err := o.gate.Invalidate(ctx, today); err != nil {
		o.logger.WithError(err).Warn("Failed to invalidate freshness cache")
	}

	snapshot, err := o.gate.Check(ctx, today)
	if err != nil {
		o.logger.WithError(err).Warn("Freshness check failed")
		return
	}

	log := o.logger.WithFields(map[string]interface{}{
		"total":    snapshot.TotalIssuers,
		"fresh":    snapshot.FreshIssuers,
		"coverage": snapshot.Coverage,
	})
	if snapshot.Passed {
		log.Info("Freshness check passed")
	} else {
		log.Warn("Freshness check below threshold")
	}
}

// export hands every analyzed issuer to the sink in code order
func (o *Orchestrator) export(ctx context.Context, analysis *contracts.AnalysisReport) (int, error) {
	codes := make([]string, 0, len(analysis.Results))
	for code, res := range analysis.Results {
		if !res.Failed() {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	exported, failed := 0, 0
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := o.sink.Write(ctx, analysis.Results[code]); err != nil {
			failed++
			o.logger.WithError(err).WithField("issuer_code", code).Warn("Failed to export result")
			continue
		}
		exported++
	}

	if failed > 0 {
		return exported, fmt.Errorf("%d of %d issuers failed to export", failed, len(codes))
	}
	return exported, nil
}

// stage runs fn and records its timing and counts
func (o *Orchestrator) stage(report *contracts.RunReport, stage contracts.Stage, input int, fn func() (int, error)) error {
	o.logger.WithField("stage", stage.String()).Infof("Running %s: %s", stage, stage.Description())

	start := time.Now()
	output, err := fn()

	result := contracts.StageResult{
		Stage:       stage,
		Success:     err == nil,
		InputCount:  input,
		OutputCount: output,
		Duration:    time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	report.Stages = append(report.Stages, result)

	log := o.logger.WithFields(map[string]interface{}{
		"stage":       stage.String(),
		"input":       input,
		"output":      output,
		"duration_ms": result.Duration,
	})
	if err != nil {
		log.WithError(err).Error("Stage failed")
	} else {
		log.Info("Stage completed")
	}
	return err
}

// codes returns the requested issuers, or every stored issuer
func (o *Orchestrator) codes(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	issuers, err := o.store.ListIssuers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issuers: %w", err)
	}
	codes := make([]string, len(issuers))
	for i, is := range issuers {
		codes[i] = is.Code
	}
	return codes, nil
}

// remember keeps the report for the status API
func (o *Orchestrator) remember(ctx context.Context, report *contracts.RunReport) {
	o.mu.Lock()
	o.latest = report
	o.mu.Unlock()

	if o.cache == nil {
		return
	}
	// the run context may already be cancelled
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.cache.Set(cacheCtx, redis.LatestRunKey(), report, redis.TTLDaily); err != nil {
		o.logger.WithError(err).Warn("Failed to cache run report")
	}
}

// Latest returns the most recent run report, from memory or the cache
func (o *Orchestrator) Latest(ctx context.Context) (*contracts.RunReport, bool) {
	o.mu.RLock()
	latest := o.latest
	o.mu.RUnlock()
	if latest != nil {
		return latest, true
	}

	if o.cache == nil {
		return nil, false
	}
	var report contracts.RunReport
	found, err := o.cache.Get(ctx, redis.LatestRunKey(), &report)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to read cached run report")
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &report, true
}

// Running reports whether a run is active
func (o *Orchestrator) Running() bool {
	return o.active.Load()
}

// NewRunID builds a run identifier from its start time
func NewRunID(t time.Time) string {
	return fmt.Sprintf("run_%s", t.Format("20060102_150405"))
}
