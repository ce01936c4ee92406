package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/msesync/internal/brain"
	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/external/mse"
	"github.com/wonny/msesync/internal/s0_data"
	"github.com/wonny/msesync/internal/s0_data/collector"
	"github.com/wonny/msesync/internal/s0_data/quality"
	"github.com/wonny/msesync/internal/s2_signals/analyzer"
	"github.com/wonny/msesync/internal/sink"
	"github.com/wonny/msesync/internal/strategyconfig"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/database"
	"github.com/wonny/msesync/pkg/httputil"
	"github.com/wonny/msesync/pkg/logger"
	"github.com/wonny/msesync/pkg/redis"
)

const cachePrefix = "msesync"

// app holds the components shared by every command
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	store  contracts.PriceStore
	redis  *redis.Client
	cache  *redis.Cache
	http   *httputil.Client
	source *mse.Client
	params *strategyconfig.Config

	closers []func()
}

// newApp loads config and opens the store. Only these failures abort a command.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	store, closeStore, err := s0_data.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	rc, err := redis.New(cfg)
	if err != nil {
		// the cache is optional; run without it
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc, _ = redis.New(&config.Config{})
	}
	a.redis = rc
	a.closers = append(a.closers, func() { _ = rc.Close() })
	if rc.Enabled() {
		a.cache = redis.NewCache(rc, cachePrefix)
	}

	a.http = httputil.New(cfg, log)
	if rc.Enabled() && cfg.MSE.RateLimit > 0 {
		a.http.WithRateLimiter(redis.NewRateLimiter(rc, cachePrefix), redis.RateLimitConfig{
			Key:    "mse",
			Limit:  int(cfg.MSE.RateLimit) + 1,
			Window: time.Second,
		})
	}

	source, err := mse.New(cfg, a.http, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create source client: %w", err)
	}
	a.source = source

	params, err := strategyconfig.LoadOrDefault(cfg.Analysis.ParamsFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load analysis params: %w", err)
	}
	a.params = params

	return a, nil
}

// loadParams replaces the analysis parameters with the given YAML file
func (a *app) loadParams(path string) error {
	params, _, err := strategyconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load analysis params: %w", err)
	}
	a.params = params
	return nil
}

// Close releases every resource in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) collector() *collector.Collector {
	return collector.New(a.source, a.store, collector.ConfigFrom(a.cfg), a.log)
}

func (a *app) discoverer() *collector.Discoverer {
	return collector.NewDiscoverer(a.source, a.store, a.cache, a.cfg.MSE.Language, a.log)
}

func (a *app) analyzer() *analyzer.Analyzer {
	return analyzer.New(a.store, a.params, a.cfg.Analysis.Workers, a.log)
}

func (a *app) qualityGate() *quality.QualityGate {
	return quality.NewQualityGate(a.store, a.cache, quality.DefaultConfig())
}

// sinks builds the configured result sinks, creating the signals table when
// the db sink is enabled
func (a *app) sinks(ctx context.Context) (sink.Multi, error) {
	var db *database.DB
	for _, kind := range a.cfg.Sink.Kinds {
		if kind != "db" {
			continue
		}
		var err error
		db, err = database.New(a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect signals database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		break
	}

	var pool *pgxpool.Pool
	if db != nil {
		pool = db.Pool
	}
	sinks, err := sink.New(a.cfg, pool, a.http, a.log)
	if err != nil {
		return nil, err
	}

	for _, s := range sinks {
		if dbSink, ok := s.(*sink.DBSink); ok {
			if err := dbSink.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
	}
	return sinks, nil
}

func (a *app) orchestrator(ctx context.Context) (*brain.Orchestrator, error) {
	sinks, err := a.sinks(ctx)
	if err != nil {
		return nil, err
	}
	return brain.NewOrchestrator(
		a.discoverer(),
		a.collector(),
		a.analyzer(),
		a.store,
		sinks,
		a.qualityGate(),
		a.cache,
		a.log,
	), nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseCodes splits a comma separated issuer list
func parseCodes(s string) []string {
	var codes []string
	for _, part := range strings.Split(s, ",") {
		if code := strings.ToUpper(strings.TrimSpace(part)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// parseDate returns today when s is empty
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	d, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return d, nil
}
