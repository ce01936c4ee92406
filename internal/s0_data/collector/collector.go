package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/s0_data/normalize"
	"github.com/wonny/msesync/internal/s0_data/planner"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/logger"
)

// Store is the part of the price store the collector needs
type Store interface {
	contracts.GapReader
	contracts.Merger
	contracts.IssuerStore
}

// Config holds collector configuration
type Config struct {
	Workers       int // Number of concurrent issuer workers
	ChunkDays     int // Max inclusive days per fetch request
	LookbackYears int // History depth for issuers with no rows
}

// ConfigFrom builds the collector configuration from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Workers:       cfg.Sync.Workers,
		ChunkDays:     cfg.Sync.ChunkDays,
		LookbackYears: cfg.Sync.LookbackYears,
	}
}

// Collector synchronizes every issuer's history from the source into the store
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	fetcher contracts.Fetcher
	store   Store
	cfg     Config
	logger  *logger.Logger
}

// New creates a new Collector instance
func New(fetcher contracts.Fetcher, store Store, cfg Config, log *logger.Logger) *Collector {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ChunkDays <= 0 {
		cfg.ChunkDays = planner.DefaultChunkDays
	}
	if cfg.LookbackYears <= 0 {
		cfg.LookbackYears = DefaultLookbackYears
	}

	return &Collector{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		logger:  log.Module("collector"),
	}
}

// issuerResult is what one worker hands back per issuer
type issuerResult struct {
	outcome *contracts.SyncOutcome
	rows    []contracts.RawRow
}

// Synchronize fetches the missing history of every issuer through a bounded
// worker pool. A failing issuer or chunk is recorded in its outcome and never
// stops the others. Nothing is written to the store here.
func (c *Collector) Synchronize(ctx context.Context, codes []string, today time.Time) (*contracts.SyncReport, error) {
	report := contracts.NewSyncReport(c.cfg.Workers)

	c.logger.WithFields(map[string]interface{}{
		"issuer_count": len(codes),
		"today":        contracts.Day(today).Format(contracts.DateLayout),
		"workers":      c.cfg.Workers,
		"chunk_days":   c.cfg.ChunkDays,
	}).Info("Starting synchronization")

	resultCh := make(chan issuerResult, len(codes))
	codeCh := make(chan string, len(codes))

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, codeCh, resultCh, today)
		}(i)
	}

	for _, code := range codes {
		codeCh <- code
	}
	close(codeCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		report.Outcomes[res.outcome.IssuerCode] = res.outcome
		report.Rows = append(report.Rows, res.rows...)
		report.Fetched += len(res.rows)
	}
	report.FinishedAt = time.Now()

	c.logger.WithFields(map[string]interface{}{
		"issuers":  len(report.Outcomes),
		"skipped":  report.Skipped(),
		"failed":   len(report.FailedCodes()),
		"rows":     report.Fetched,
		"duration": report.Duration(),
	}).Info("Synchronization completed")

	return report, ctx.Err()
}

// worker processes issuers until the channel is drained
func (c *Collector) worker(ctx context.Context, workerID int, codeCh <-chan string, resultCh chan<- issuerResult, today time.Time) {
	for code := range codeCh {
		select {
		case <-ctx.Done():
			resultCh <- issuerResult{outcome: &contracts.SyncOutcome{
				IssuerCode: code,
				Errors:     []string{ctx.Err().Error()},
			}}
			continue
		default:
		}

		resultCh <- c.syncIssuer(ctx, workerID, code, today)
	}
}

// syncIssuer runs gap detection, planning and chunk fetching for one issuer
func (c *Collector) syncIssuer(ctx context.Context, workerID int, code string, today time.Time) issuerResult {
	outcome := &contracts.SyncOutcome{IssuerCode: code}
	log := c.logger.WithFields(map[string]interface{}{
		"worker":      workerID,
		"issuer_code": code,
	})

	last, found, err := c.store.LastKnownDate(ctx, code)
	if err != nil {
		log.WithError(err).Error("Failed to read last known date")
		outcome.Errors = append(outcome.Errors, err.Error())
		return issuerResult{outcome: outcome}
	}

	window, ok := Window(last, found, today, c.cfg.LookbackYears)
	if !ok {
		outcome.Skipped = true
		log.Debug("Already up to date")
		return issuerResult{outcome: outcome}
	}
	outcome.Window = window

	chunks := planner.Plan(window.Start, window.End, c.cfg.ChunkDays)
	outcome.Chunks = len(chunks)

	var rows []contracts.RawRow
	for _, res := range c.fetchChunks(ctx, code, chunks) {
		if res.Err != nil {
			log.WithError(res.Err).WithField("window", res.Window.String()).Warn("Chunk fetch failed")
			outcome.FailedChunks++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", res.Window, res.Err))
			continue
		}
		rows = append(rows, res.Rows...)
	}
	outcome.Fetched = len(rows)

	log.WithFields(map[string]interface{}{
		"window": window.String(),
		"chunks": outcome.Chunks,
		"failed": outcome.FailedChunks,
		"rows":   outcome.Fetched,
	}).Debug("Synchronized issuer")

	return issuerResult{outcome: outcome, rows: rows}
}

// fetchChunks lets a ChunkFetcher schedule the chunks itself and otherwise
// fetches them one after another
func (c *Collector) fetchChunks(ctx context.Context, code string, chunks []contracts.DateRange) []contracts.ChunkResult {
	if cf, ok := c.fetcher.(contracts.ChunkFetcher); ok {
		return cf.FetchChunks(ctx, code, chunks)
	}

	results := make([]contracts.ChunkResult, len(chunks))
	for i, chunk := range chunks {
		results[i].Window = chunk
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		results[i].Rows, results[i].Err = c.fetcher.Fetch(ctx, code, chunk)
	}
	return results
}

// Merge normalizes the report's rows and merges them into the store in a
// single call. Counts are written back into the report.
func (c *Collector) Merge(ctx context.Context, report *contracts.SyncReport) (int64, error) {
	records, stats := normalize.Normalize(report.Rows)
	report.Normalized = stats.Kept
	report.Dropped = stats.Dropped

	if stats.Dropped > 0 {
		c.logger.WithFields(map[string]interface{}{
			"dropped":    stats.Dropped,
			"duplicates": stats.Duplicates,
		}).Warn("Dropped malformed rows")
	}

	inserted, err := c.store.Merge(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("merge records: %w", err)
	}
	report.Inserted = inserted

	c.logger.WithFields(map[string]interface{}{
		"records":  len(records),
		"inserted": inserted,
	}).Info("Merge completed")

	return inserted, nil
}
