package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/s2_signals"
	"github.com/wonny/msesync/internal/s2_signals/indicators"
	"github.com/wonny/msesync/internal/strategyconfig"
	"github.com/wonny/msesync/pkg/logger"
)

// Analyzer fans indicator and signal computation out across issuers
// ⭐ SSOT: 종목별 분석 오케스트레이션은 여기서만
type Analyzer struct {
	loader  contracts.SeriesLoader
	params  *strategyconfig.Config
	workers int
	logger  *logger.Logger
}

// New creates a new Analyzer. workers < 1 is treated as 1.
func New(loader contracts.SeriesLoader, params *strategyconfig.Config, workers int, log *logger.Logger) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	if params == nil {
		params = strategyconfig.Default()
	}
	return &Analyzer{
		loader:  loader,
		params:  params,
		workers: workers,
		logger:  log.Module("analyzer"),
	}
}

// Analyze runs every issuer through a bounded pool. A failing issuer gets an
// error marker in the report and never stops the batch.
func (a *Analyzer) Analyze(ctx context.Context, codes []string) *contracts.AnalysisReport {
	report := &contracts.AnalysisReport{
		StartedAt: time.Now(),
		Results:   make(map[string]*contracts.AnalysisResult, len(codes)),
		Errors:    make(map[string]string),
	}
	if hash, err := strategyconfig.Hash(a.params); err == nil {
		report.ParamsHash = hash
	}

	a.logger.WithFields(map[string]interface{}{
		"issuer_count": len(codes),
		"workers":      a.workers,
	}).Info("Starting analysis")

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(a.workers)

	for _, code := range codes {
		code := code
		g.Go(func() error {
			result := a.AnalyzeIssuer(ctx, code)

			mu.Lock()
			defer mu.Unlock()
			report.Results[code] = result
			if result.Failed() {
				report.Failed++
				report.Errors[code] = result.Err
				return nil
			}
			report.Analyzed++
			report.Buy += result.CountSignals(contracts.ActionBuy)
			report.Sell += result.CountSignals(contracts.ActionSell)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	report.FinishedAt = time.Now()

	a.logger.WithFields(map[string]interface{}{
		"analyzed": report.Analyzed,
		"failed":   report.Failed,
		"buy":      report.Buy,
		"sell":     report.Sell,
		"duration": report.FinishedAt.Sub(report.StartedAt),
	}).Info("Analysis completed")

	return report
}

// AnalyzeIssuer loads one issuer's history and computes every configured timeframe.
// A timeframe failure is recorded on that timeframe only.
func (a *Analyzer) AnalyzeIssuer(ctx context.Context, code string) *contracts.AnalysisResult {
	result := &contracts.AnalysisResult{IssuerCode: code}
	log := a.logger.WithField("issuer_code", code)

	if err := ctx.Err(); err != nil {
		result.Err = err.Error()
		return result
	}

	bars, err := a.loader.LoadSeries(ctx, code)
	if err != nil {
		log.WithError(err).Warn("Failed to load series")
		result.Err = fmt.Sprintf("load series: %v", err)
		return result
	}
	result.Bars = len(bars)

	if len(bars) < a.params.Analysis.MinBars {
		result.Err = fmt.Sprintf("%d bars, need %d: %v", len(bars), a.params.Analysis.MinBars, contracts.ErrInsufficientData)
		log.Debug("Skipped: insufficient data")
		return result
	}

	result.Timeframes = make(map[contracts.Timeframe]*contracts.TimeframeResult)
	for _, tf := range a.params.Timeframes() {
		result.Timeframes[tf] = a.analyzeTimeframe(code, bars, tf)
	}

	log.WithFields(map[string]interface{}{
		"bars": len(bars),
		"buy":  result.CountSignals(contracts.ActionBuy),
		"sell": result.CountSignals(contracts.ActionSell),
	}).Debug("Analyzed issuer")

	return result
}

func (a *Analyzer) analyzeTimeframe(code string, bars []contracts.Bar, tf contracts.Timeframe) (res *contracts.TimeframeResult) {
	res = &contracts.TimeframeResult{Timeframe: tf}

	// malformed series must not take the worker down
	defer func() {
		if r := recover(); r != nil {
			res.Rows, res.Signals = nil, nil
			res.Err = fmt.Sprintf("panic: %v", r)
		}
	}()

	rows, err := indicators.Compute(bars, tf, a.params.Indicators, a.params.Analysis.MinBars)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Rows = rows
	res.Signals = s2_signals.Generate(code, tf, rows, a.params.Signals)
	return res
}
