package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/logger"
)

const fileTimestamp = "20060102_150405"

var signalHeader = []string{
	"date", "price", "signal",
	"ma_trend", "macd_signal", "rsi_signal", "stoch_signal", "cci_signal", "volume_trend",
}

var indicatorHeader = []string{
	"date", "close", "high", "low", "avg", "volume",
	"sma_20", "ema_10", "wma_30", "macd", "hma_50", "rsi",
	"stoch_k", "stoch_d", "cci", "momentum", "williams_r", "atr",
	"volume_sma_20", "price_change",
}

// CSVSink writes one signals file and one indicators file per issuer and timeframe:
// {dir}/{code}/{code}_{timeframe}_signals_{ts}.csv and _indicators_.
// The signals file is the full table, HOLD rows included.
type CSVSink struct {
	dir    string
	now    func() time.Time
	logger *logger.Logger
}

// NewCSVSink creates a CSV sink rooted at dir
func NewCSVSink(dir string, log *logger.Logger) *CSVSink {
	return &CSVSink{
		dir:    dir,
		now:    time.Now,
		logger: log.Module("sink.csv"),
	}
}

// Write implements contracts.ResultSink
func (s *CSVSink) Write(ctx context.Context, result *contracts.AnalysisResult) error {
	if result.Failed() {
		return nil
	}

	issuerDir := filepath.Join(s.dir, result.IssuerCode)
	if err := os.MkdirAll(issuerDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", issuerDir, err)
	}

	ts := s.now().Format(fileTimestamp)
	for _, tf := range contracts.AllTimeframes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := result.Timeframes[tf]
		if !usable(res) {
			continue
		}

		prefix := filepath.Join(issuerDir, fmt.Sprintf("%s_%s", result.IssuerCode, tf))
		if err := writeCSV(prefix+"_signals_"+ts+".csv", signalHeader, signalRecords(res.Signals)); err != nil {
			return err
		}
		if err := writeCSV(prefix+"_indicators_"+ts+".csv", indicatorHeader, indicatorRecords(res.Rows)); err != nil {
			return err
		}
	}

	s.logger.WithField("issuer_code", result.IssuerCode).Debug("Wrote CSV results")
	return nil
}

func writeCSV(path string, header []string, records [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func signalRecords(signals []contracts.Signal) [][]string {
	records := make([][]string, len(signals))
	for i, sig := range signals {
		records[i] = []string{
			sig.Date.Format(contracts.DateLayout),
			formatFloat(sig.Price),
			string(sig.Action),
			sig.MATrend,
			sig.MACDSignal,
			sig.RSISignal,
			sig.StochSignal,
			sig.CCISignal,
			sig.VolumeTrend,
		}
	}
	return records
}

func indicatorRecords(rows []contracts.IndicatorRow) [][]string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.Date.Format(contracts.DateLayout),
			formatFloat(r.Close),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Avg),
			formatFloat(r.Volume),
			formatFloat(r.SMA20),
			formatFloat(r.EMA10),
			formatFloat(r.WMA30),
			formatFloat(r.MACD),
			formatFloat(r.HMA50),
			formatFloat(r.RSI),
			formatFloat(r.StochK),
			formatFloat(r.StochD),
			formatFloat(r.CCI),
			formatFloat(r.Momentum),
			formatFloat(r.WilliamsR),
			formatFloat(r.ATR),
			formatFloat(r.VolumeSMA20),
			formatFloat(r.PriceChange),
		}
	}
	return records
}

// formatFloat renders undefined values as an empty cell
func formatFloat(v float64) string {
	if !contracts.Defined(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
