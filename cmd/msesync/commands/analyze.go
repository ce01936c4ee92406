package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/msesync/internal/brain"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "지표 계산 및 시그널 생성",
	Long: `저장된 이력으로 일/주/월 지표를 계산하고 BUY/SELL/HOLD 시그널을 생성한 뒤
설정된 싱크(SINK_KINDS: csv, api, db)로 내보냅니다.

Flags:
  --codes       특정 종목만 (쉼표 구분)
  --params      분석 파라미터 YAML (기본: ANALYSIS_PARAMS_FILE)
  --no-export   결과를 내보내지 않음

Example:
  go run ./cmd/msesync analyze
  go run ./cmd/msesync analyze --codes ALK --no-export
  go run ./cmd/msesync analyze --params config/analysis.yaml`,
	RunE: runAnalyze,
}

var (
	analyzeCodes    string
	analyzeParams   string
	analyzeNoExport bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeCodes, "codes", "", "comma separated issuer codes")
	analyzeCmd.Flags().StringVar(&analyzeParams, "params", "", "analysis parameters YAML file")
	analyzeCmd.Flags().BoolVar(&analyzeNoExport, "no-export", false, "skip the result sinks")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if analyzeParams != "" {
		if err := a.loadParams(analyzeParams); err != nil {
			return err
		}
	}

	orch, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}

	PrintHeader("Technical Analysis")
	PrintKeyValue("Workers", fmt.Sprintf("%d", a.cfg.Analysis.Workers), 10)
	PrintKeyValue("Strategy", fmt.Sprintf("%s (%s)", a.params.Meta.StrategyID, a.params.Meta.Version), 10)
	PrintKeyValue("Sinks", strings.Join(a.cfg.Sink.Kinds, ", "), 10)
	PrintSeparator()

	runCfg := brain.AnalysisRun(time.Now())
	runCfg.Export = !analyzeNoExport
	runCfg.Codes = parseCodes(analyzeCodes)

	report, err := orch.Run(ctx, runCfg)
	if report != nil {
		PrintRunReport(report)
	}
	return err
}
