package collector

import (
	"context"
	"fmt"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/logger"
	"github.com/wonny/msesync/pkg/redis"
)

// Discoverer refreshes the issuer catalogue from the source
type Discoverer struct {
	source   contracts.IssuerSource
	store    contracts.IssuerStore
	cache    *redis.Cache
	language string
	logger   *logger.Logger
}

// NewDiscoverer creates a new Discoverer. cache may be nil.
func NewDiscoverer(source contracts.IssuerSource, store contracts.IssuerStore, cache *redis.Cache, language string, log *logger.Logger) *Discoverer {
	return &Discoverer{
		source:   source,
		store:    store,
		cache:    cache,
		language: language,
		logger:   log.Module("discover"),
	}
}

// DiscoverResult summarizes one discovery run
type DiscoverResult struct {
	Found    int   `json:"found"`
	Inserted int64 `json:"inserted"`
}

// Discover scrapes the issuer list and inserts codes not yet stored.
// Stored issuers are never renamed.
func (d *Discoverer) Discover(ctx context.Context) (*DiscoverResult, error) {
	issuers, err := d.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch issuers: %w", err)
	}

	inserted, err := d.store.SaveIssuers(ctx, issuers)
	if err != nil {
		return nil, fmt.Errorf("save issuers: %w", err)
	}

	d.logger.WithFields(map[string]interface{}{
		"found":    len(issuers),
		"inserted": inserted,
	}).Info("Issuer discovery completed")

	return &DiscoverResult{Found: len(issuers), Inserted: inserted}, nil
}

func (d *Discoverer) fetch(ctx context.Context) ([]contracts.Issuer, error) {
	if d.cache == nil {
		return d.source.FetchIssuers(ctx)
	}

	var issuers []contracts.Issuer
	err := d.cache.GetOrSet(ctx, redis.IssuerListKey(d.language), &issuers, redis.TTLLong, func() (interface{}, error) {
		return d.source.FetchIssuers(ctx)
	})
	return issuers, err
}
