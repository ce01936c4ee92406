package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/msesync/internal/brain"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "이력 데이터 동기화",
	Long: `저장된 종목별 마지막 날짜 이후의 누락 구간을 수집하고 병합합니다.

이 명령어는:
- 종목별 갭 탐지 (데이터 없음 → 최근 10년)
- 340일 단위 구간 분할 후 병렬 수집
- 정규화/정렬 후 한 번에 멱등 병합
- SYNC_REFORMAT=true 시 가격 재포맷 + 인덱스 재생성

Flags:
  --codes       특정 종목만 (쉼표 구분)
  --date        기준일 (기본: 오늘)
  --discover    동기화 전 종목 목록 갱신
  --workers     동시 처리 종목 수 (기본: SYNC_WORKERS)

Example:
  go run ./cmd/msesync sync
  go run ./cmd/msesync sync --codes ALK,KMB --workers 1
  go run ./cmd/msesync sync --discover`,
	RunE: runSync,
}

var (
	syncCodes    string
	syncDate     string
	syncDiscover bool
	syncWorkers  int
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncCodes, "codes", "", "comma separated issuer codes")
	syncCmd.Flags().StringVar(&syncDate, "date", "", "reference date (YYYY-MM-DD)")
	syncCmd.Flags().BoolVar(&syncDiscover, "discover", false, "refresh the issuer list first")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "concurrent issuers (default SYNC_WORKERS)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	today, err := parseDate(syncDate)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if syncWorkers > 0 {
		a.cfg.Sync.Workers = syncWorkers
	}

	orch, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}

	PrintHeader("History Synchronization")
	PrintKeyValue("Date", today.Format("2006-01-02"), 10)
	PrintKeyValue("Workers", fmt.Sprintf("%d", a.cfg.Sync.Workers), 10)
	PrintKeyValue("Transport", a.source.Transport(), 10)
	PrintSeparator()

	runCfg := brain.SyncRun(today, a.cfg.Sync.Reformat)
	runCfg.Discover = syncDiscover
	runCfg.Codes = parseCodes(syncCodes)

	report, err := orch.Run(ctx, runCfg)
	if report != nil {
		PrintRunReport(report)
	}
	return err
}
