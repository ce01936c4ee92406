package quality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/redis"
)

type fakeSource struct {
	last  map[string]time.Time
	err   error
	calls int
}

func (f *fakeSource) Freshness(context.Context) (map[string]time.Time, error) {
	f.calls++
	return f.last, f.err
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestQualityGate_Check(t *testing.T) {
	source := &fakeSource{last: map[string]time.Time{
		"ALK": day(2024, 6, 14),
		"KMB": day(2024, 6, 10),
		"TNB": day(2024, 5, 1),
		"NEW": {},
	}}

	gate := NewQualityGate(source, nil, DefaultConfig())
	snapshot, err := gate.Check(context.Background(), day(2024, 6, 15).Add(9*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, day(2024, 6, 15), snapshot.Date)
	assert.Equal(t, 4, snapshot.TotalIssuers)
	assert.Equal(t, 2, snapshot.FreshIssuers)
	assert.Equal(t, []string{"TNB"}, snapshot.Stale)
	assert.Equal(t, []string{"NEW"}, snapshot.Empty)
	assert.Equal(t, "2024-06-10", snapshot.LastDates["KMB"])
	assert.InDelta(t, 0.5, snapshot.Coverage, 1e-9)
	assert.False(t, snapshot.Passed)
}

func TestQualityGate_Passed(t *testing.T) {
	source := &fakeSource{last: map[string]time.Time{
		"ALK": day(2024, 6, 14),
		"KMB": day(2024, 6, 13),
	}}

	snapshot, err := NewQualityGate(source, nil, Config{MinFreshCoverage: 1.0}).Check(context.Background(), day(2024, 6, 15))
	require.NoError(t, err)
	assert.True(t, snapshot.Passed)
}

func TestQualityGate_EmptyStore(t *testing.T) {
	snapshot, err := NewQualityGate(&fakeSource{}, nil, DefaultConfig()).Check(context.Background(), day(2024, 6, 15))
	require.NoError(t, err)
	assert.Zero(t, snapshot.Coverage)
	assert.False(t, snapshot.Passed)
}

func TestQualityGate_SourceError(t *testing.T) {
	_, err := NewQualityGate(&fakeSource{err: errors.New("boom")}, nil, DefaultConfig()).Check(context.Background(), day(2024, 6, 15))
	assert.Error(t, err)
}

func TestQualityGate_DisabledCacheLoadsEveryTime(t *testing.T) {
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)

	source := &fakeSource{last: map[string]time.Time{"ALK": day(2024, 6, 14)}}
	gate := NewQualityGate(source, redis.NewCache(client, "test"), DefaultConfig())

	for i := 0; i < 2; i++ {
		snapshot, err := gate.Check(context.Background(), day(2024, 6, 15))
		require.NoError(t, err)
		assert.Equal(t, 1, snapshot.FreshIssuers)
	}
	assert.Equal(t, 2, source.calls)
	assert.NoError(t, gate.Invalidate(context.Background(), day(2024, 6, 15)))
}

func TestQualityGate_calculateCoverage(t *testing.T) {
	gate := &QualityGate{config: DefaultConfig()}

	tests := []struct {
		name         string
		fresh, total int
		want         float64
	}{
		{"all fresh", 10, 10, 1.0},
		{"half", 5, 10, 0.5},
		{"none", 0, 10, 0},
		{"no issuers", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, gate.calculateCoverage(tt.fresh, tt.total), 1e-9)
		})
	}
}
