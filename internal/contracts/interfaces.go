package contracts

import (
	"context"
	"time"
)

// Fetcher returns raw history rows for one issuer and one date window
// ⭐ SSOT: 외부 소스 수집 인터페이스 (transport 무관)
type Fetcher interface {
	Fetch(ctx context.Context, code string, window DateRange) ([]RawRow, error)
}

// ChunkResult is the outcome of fetching one planned chunk
type ChunkResult struct {
	Window DateRange
	Rows   []RawRow
	Err    error
}

// ChunkFetcher is implemented by fetchers that schedule an issuer's chunks themselves.
// Results come back in the order of the chunks passed in; one failed chunk never
// hides the others.
type ChunkFetcher interface {
	Fetcher
	FetchChunks(ctx context.Context, code string, chunks []DateRange) []ChunkResult
}

// IssuerSource lists the issuers offered by the source
type IssuerSource interface {
	FetchIssuers(ctx context.Context) ([]Issuer, error)
}

// GapReader answers the gap detector's "max stored date" query
type GapReader interface {
	// LastKnownDate returns found=false when the issuer has no rows
	LastKnownDate(ctx context.Context, code string) (time.Time, bool, error)
}

// Merger inserts records that are not yet stored
type Merger interface {
	// Merge is insert-if-absent on (issuer_code, date) and returns rows actually inserted
	Merge(ctx context.Context, records []PriceRecord) (int64, error)
}

// IssuerStore persists the issuer catalogue
type IssuerStore interface {
	SaveIssuers(ctx context.Context, issuers []Issuer) (int64, error)
	ListIssuers(ctx context.Context) ([]Issuer, error)
}

// SeriesLoader reads an issuer's stored history as ascending bars
type SeriesLoader interface {
	LoadSeries(ctx context.Context, code string) ([]Bar, error)
}

// PriceStore is the single shared persistent store
// ⭐ SSOT: Postgres / SQLite 구현 공통 인터페이스
type PriceStore interface {
	GapReader
	Merger
	IssuerStore
	SeriesLoader

	// Reformat rewrites stored prices into canonical form and rebuilds the covering index atomically
	Reformat(ctx context.Context) (int64, error)
	// EnsureSchema creates the tables and index if missing
	EnsureSchema(ctx context.Context) error
	// Freshness returns the last stored date per issuer code
	Freshness(ctx context.Context) (map[string]time.Time, error)
}

// ResultSink receives one issuer's analysis result
type ResultSink interface {
	Write(ctx context.Context, result *AnalysisResult) error
}
