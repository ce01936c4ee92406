package quality

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/redis"
)

// FreshnessSource reports the newest stored date per issuer
type FreshnessSource interface {
	Freshness(ctx context.Context) (map[string]time.Time, error)
}

// QualityGate checks how current the stored history is
type QualityGate struct {
	source FreshnessSource
	cache  *redis.Cache
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MaxStaleDays     int     `yaml:"max_stale_days"`     // 5 (주말 + 공휴일 여유)
	MinFreshCoverage float64 `yaml:"min_fresh_coverage"` // 0.80
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MaxStaleDays:     5,
		MinFreshCoverage: 0.80,
	}
}

// Snapshot is one freshness check
type Snapshot struct {
	Date         time.Time         `json:"date"`
	TotalIssuers int               `json:"total_issuers"`
	FreshIssuers int               `json:"fresh_issuers"`
	Stale        []string          `json:"stale,omitempty"`
	Empty        []string          `json:"empty,omitempty"`
	LastDates    map[string]string `json:"last_dates"`
	Coverage     float64           `json:"coverage"`
	Passed       bool              `json:"passed"`
}

// NewQualityGate creates a new QualityGate instance. cache may be nil.
func NewQualityGate(source FreshnessSource, cache *redis.Cache, config Config) *QualityGate {
	if config.MaxStaleDays <= 0 {
		config.MaxStaleDays = DefaultConfig().MaxStaleDays
	}
	return &QualityGate{
		source: source,
		cache:  cache,
		config: config,
	}
}

// Check classifies every issuer as fresh, stale or empty relative to today
// ⭐ SSOT: 동기화 이후 데이터 신선도 검증
func (g *QualityGate) Check(ctx context.Context, today time.Time) (*Snapshot, error) {
	today = contracts.Day(today)

	if g.cache == nil {
		return g.check(ctx, today)
	}

	var snapshot Snapshot
	err := g.cache.GetOrSet(ctx, redis.FreshnessKey(today.Format(contracts.DateLayout)), &snapshot, redis.TTLMedium, func() (interface{}, error) {
		return g.check(ctx, today)
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Invalidate drops the cached snapshot of a day, e.g. after a merge
func (g *QualityGate) Invalidate(ctx context.Context, today time.Time) error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Delete(ctx, redis.FreshnessKey(contracts.Day(today).Format(contracts.DateLayout)))
}

func (g *QualityGate) check(ctx context.Context, today time.Time) (*Snapshot, error) {
	lastDates, err := g.source.Freshness(ctx)
	if err != nil {
		return nil, fmt.Errorf("load freshness: %w", err)
	}

	snapshot := &Snapshot{
		Date:         today,
		TotalIssuers: len(lastDates),
		LastDates:    make(map[string]string, len(lastDates)),
	}

	cutoff := today.AddDate(0, 0, -g.config.MaxStaleDays)
	for code, last := range lastDates {
		if last.IsZero() {
			snapshot.Empty = append(snapshot.Empty, code)
			continue
		}
		snapshot.LastDates[code] = last.Format(contracts.DateLayout)
		if last.Before(cutoff) {
			snapshot.Stale = append(snapshot.Stale, code)
			continue
		}
		snapshot.FreshIssuers++
	}
	sort.Strings(snapshot.Stale)
	sort.Strings(snapshot.Empty)

	snapshot.Coverage = g.calculateCoverage(snapshot.FreshIssuers, snapshot.TotalIssuers)
	snapshot.Passed = snapshot.TotalIssuers > 0 && snapshot.Coverage >= g.config.MinFreshCoverage

	return snapshot, nil
}

// calculateCoverage returns the fresh share of all issuers
func (g *QualityGate) calculateCoverage(fresh, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(fresh) / float64(total)
}
