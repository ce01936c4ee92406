package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/msesync/internal/brain"
)

// reformatCmd represents the reformat command
var reformatCmd = &cobra.Command{
	Use:   "reformat",
	Short: "가격 재포맷 + 인덱스 재생성",
	Long: `저장된 가격을 소수점 2자리 표준 형식으로 다시 쓰고 (issuer_code, date)
인덱스를 재생성합니다. 읽기/스테이징/교체가 한 트랜잭션에서 쓰기 잠금을 잡고
실행되므로 실패 시 원본은 그대로 유지되고 동시 병합 행도 잃지 않습니다.

Example:
  go run ./cmd/msesync reformat`,
	RunE: runReformat,
}

func init() {
	rootCmd.AddCommand(reformatCmd)
}

func runReformat(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}

	PrintHeader("Price Re-format")

	report, err := orch.Run(ctx, brain.ReformatRun(time.Now()))
	if err != nil {
		return err
	}
	PrintRunReport(report)
	if !report.Success() {
		return fmt.Errorf("reformat run %s failed", report.RunID)
	}
	return nil
}
