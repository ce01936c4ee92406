package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/internal/strategyconfig"
	"github.com/wonny/msesync/pkg/logger"
)

type fakeLoader struct {
	series map[string][]contracts.Bar
	errs   map[string]error

	inFlight, maxInFlight int32
}

func (f *fakeLoader) LoadSeries(_ context.Context, code string) ([]contracts.Bar, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.series[code], nil
}

// zigzag builds n ascending daily bars oscillating around 100
func zigzag(n int) []contracts.Bar {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := range bars {
		price := 100 + float64(i%7) - 3
		bars[i] = contracts.Bar{
			Date:   start.AddDate(0, 0, i),
			Close:  price,
			High:   price + 1,
			Low:    price - 1,
			Avg:    price,
			Volume: float64(10 + i%5),
		}
	}
	return bars
}

func TestAnalyze(t *testing.T) {
	loader := &fakeLoader{
		series: map[string][]contracts.Bar{
			"ALK":   zigzag(400),
			"SHORT": zigzag(9),
		},
		errs: map[string]error{"BAD": errors.New("no such table")},
	}

	a := New(loader, nil, 2, logger.Nop())
	report := a.Analyze(context.Background(), []string{"ALK", "SHORT", "BAD"})

	assert.Equal(t, 1, report.Analyzed)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, []string{"BAD", "SHORT"}, report.FailedCodes())
	assert.Contains(t, report.Errors["SHORT"], contracts.ErrInsufficientData.Error())
	assert.Contains(t, report.Errors["BAD"], "no such table")
	assert.Len(t, report.ParamsHash, 64)

	alk := report.Results["ALK"]
	require.NotNil(t, alk)
	assert.False(t, alk.Failed())
	assert.Equal(t, 400, alk.Bars)
	require.Len(t, alk.Timeframes, 3)

	daily := alk.Timeframes[contracts.Daily]
	assert.Empty(t, daily.Err)
	assert.Len(t, daily.Rows, 400)
	assert.Len(t, daily.Signals, 400, "one signal per date, HOLD included")

	weekly := alk.Timeframes[contracts.Weekly]
	assert.Empty(t, weekly.Err)
	assert.NotEmpty(t, weekly.Rows)
	assert.Less(t, len(weekly.Rows), len(daily.Rows))

	assert.Equal(t, report.Buy, alk.CountSignals(contracts.ActionBuy))
	assert.Equal(t, report.Sell, alk.CountSignals(contracts.ActionSell))
}

func TestAnalyze_BoundedPool(t *testing.T) {
	loader := &fakeLoader{series: map[string][]contracts.Bar{}}
	var codes []string
	for i := 0; i < 20; i++ {
		code := fmt.Sprintf("C%02d", i)
		codes = append(codes, code)
		loader.series[code] = zigzag(30)
	}

	report := New(loader, nil, 3, logger.Nop()).Analyze(context.Background(), codes)

	assert.Equal(t, 20, report.Analyzed)
	assert.LessOrEqual(t, atomic.LoadInt32(&loader.maxInFlight), int32(3))
}

func TestAnalyze_SingleWorker(t *testing.T) {
	loader := &fakeLoader{series: map[string][]contracts.Bar{"A": zigzag(30), "B": zigzag(30)}}

	report := New(loader, nil, 0, logger.Nop()).Analyze(context.Background(), []string{"A", "B"})

	assert.Equal(t, 2, report.Analyzed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.maxInFlight))
}

func TestAnalyzeIssuer_ConfiguredTimeframes(t *testing.T) {
	params := strategyconfig.Default()
	params.Analysis.Timeframes = []string{"monthly"}

	loader := &fakeLoader{series: map[string][]contracts.Bar{"ALK": zigzag(40)}}
	result := New(loader, params, 1, logger.Nop()).AnalyzeIssuer(context.Background(), "ALK")

	require.Len(t, result.Timeframes, 1)
	monthly := result.Timeframes[contracts.Monthly]
	require.NotNil(t, monthly)
	assert.Len(t, monthly.Rows, 2, "40 days from 2 January span two months")
}

func TestAnalyzeIssuer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(&fakeLoader{}, nil, 1, logger.Nop()).AnalyzeIssuer(ctx, "ALK")
	assert.True(t, result.Failed())
}
