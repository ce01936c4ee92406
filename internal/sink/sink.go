package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/config"
	"github.com/wonny/msesync/pkg/httputil"
	"github.com/wonny/msesync/pkg/logger"
)

// Multi writes a result to every sink in order.
// A failing sink never stops the ones after it; the errors are joined.
type Multi []contracts.ResultSink

// Write implements contracts.ResultSink
func (m Multi) Write(ctx context.Context, result *contracts.AnalysisResult) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the sinks named by SINK_KINDS.
// ⭐ SSOT: 결과 싱크 구성은 여기서만
//
// pool is only required for the db sink.
func New(cfg *config.Config, pool *pgxpool.Pool, client *httputil.Client, log *logger.Logger) (Multi, error) {
	sinks := make(Multi, 0, len(cfg.Sink.Kinds))

	for _, kind := range cfg.Sink.Kinds {
		switch kind {
		case "csv":
			sinks = append(sinks, NewCSVSink(cfg.Sink.OutputDir, log))
		case "api":
			if client == nil {
				client = httputil.New(cfg, log)
			}
			sinks = append(sinks, NewAPISink(client, cfg.Sink.APIURL, cfg.Sink.IncludeHold, log))
		case "db":
			if pool == nil {
				return nil, fmt.Errorf("db sink requires a postgres pool")
			}
			sinks = append(sinks, NewDBSink(pool, cfg.Sink.IncludeHold, log))
		default:
			return nil, fmt.Errorf("unknown sink kind: %s", kind)
		}
	}

	return sinks, nil
}

// exportable returns the signals a sink should persist, oldest first
func exportable(signals []contracts.Signal, includeHold bool) []contracts.Signal {
	if includeHold {
		return signals
	}
	out := make([]contracts.Signal, 0, len(signals))
	for i := range signals {
		if signals[i].IsActionable() {
			out = append(out, signals[i])
		}
	}
	return out
}

// usable reports whether a timeframe carries output worth exporting
func usable(tf *contracts.TimeframeResult) bool {
	return tf != nil && tf.Err == ""
}
