package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/msesync/internal/brain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전체 파이프라인 실행",
	Long: `종목 수집 → 동기화 → 병합 → 재포맷 → 분석 → 내보내기를 한 번에 실행합니다.

종목 수집/재포맷 실패는 기록 후 계속 진행하고,
동기화/병합 실패는 실행을 중단합니다.

Flags:
  --codes         특정 종목만 (쉼표 구분)
  --date          기준일 (기본: 오늘)
  --no-reformat   재포맷 단계 생략

Example:
  go run ./cmd/msesync run
  go run ./cmd/msesync run --codes ALK,KMB --no-reformat`,
	RunE: runFull,
}

var (
	runCodes      string
	runDate       string
	runNoReformat bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runCodes, "codes", "", "comma separated issuer codes")
	runCmd.Flags().StringVar(&runDate, "date", "", "reference date (YYYY-MM-DD)")
	runCmd.Flags().BoolVar(&runNoReformat, "no-reformat", false, "skip the re-format stage")
}

func runFull(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	today, err := parseDate(runDate)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}

	PrintHeader("MSE Sync Pipeline")
	PrintKeyValue("Date", today.Format("2006-01-02"), 10)
	PrintKeyValue("Transport", a.source.Transport(), 10)
	PrintSeparator()

	runCfg := brain.FullRun(today, a.cfg.Sync.Reformat && !runNoReformat)
	runCfg.Codes = parseCodes(runCodes)

	report, err := orch.Run(ctx, runCfg)
	if report != nil {
		PrintRunReport(report)
	}
	return err
}
