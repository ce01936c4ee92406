package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/httputil"
	"github.com/wonny/msesync/pkg/logger"
)

// signalPayload is the JSON shape the signals endpoint accepts
type signalPayload struct {
	IssuerCode  string  `json:"issuerCode"`
	Timeframe   string  `json:"timeframe"`
	Signal      string  `json:"signal"`
	Date        string  `json:"date"`
	Price       float64 `json:"price"`
	MATrend     string  `json:"maTrend"`
	MACDSignal  string  `json:"macdSignal"`
	RSISignal   string  `json:"rsiSignal"`
	VolumeTrend string  `json:"volumeTrend"`
}

// APISink posts each timeframe's signals as one JSON array
type APISink struct {
	client      *httputil.Client
	url         string
	includeHold bool
	logger      *logger.Logger
}

// NewAPISink creates an API sink posting to url
func NewAPISink(client *httputil.Client, url string, includeHold bool, log *logger.Logger) *APISink {
	return &APISink{
		client:      client,
		url:         url,
		includeHold: includeHold,
		logger:      log.Module("sink.api"),
	}
}

// Write implements contracts.ResultSink.
// Timeframes with nothing to send are skipped without a request.
func (s *APISink) Write(ctx context.Context, result *contracts.AnalysisResult) error {
	if result.Failed() {
		return nil
	}

	for _, tf := range contracts.AllTimeframes() {
		res := result.Timeframes[tf]
		if !usable(res) {
			continue
		}

		signals := exportable(res.Signals, s.includeHold)
		if len(signals) == 0 {
			continue
		}

		if err := s.post(ctx, toPayload(signals)); err != nil {
			return fmt.Errorf("post %s %s signals: %w", result.IssuerCode, tf, err)
		}

		s.logger.WithFields(map[string]interface{}{
			"issuer_code": result.IssuerCode,
			"timeframe":   tf,
			"count":       len(signals),
		}).Debug("Posted signals")
	}
	return nil
}

func (s *APISink) post(ctx context.Context, payload []signalPayload) error {
	resp, err := s.client.PostJSON(ctx, s.url, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func toPayload(signals []contracts.Signal) []signalPayload {
	out := make([]signalPayload, len(signals))
	for i, sig := range signals {
		out[i] = signalPayload{
			IssuerCode:  sig.IssuerCode,
			Timeframe:   string(sig.Timeframe),
			Signal:      string(sig.Action),
			Date:        sig.Date.Format(contracts.DateLayout),
			Price:       sig.Price,
			MATrend:     sig.MATrend,
			MACDSignal:  sig.MACDSignal,
			RSISignal:   sig.RSISignal,
			VolumeTrend: sig.VolumeTrend,
		}
	}
	return out
}
