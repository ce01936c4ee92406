package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "종목 목록 수집",
	Long: `거래소 종목 선택 목록(#Code option)에서 종목 코드를 수집합니다.

이 명령어는:
- 숫자가 포함된 코드/이름(채권 등) 제외
- 신규 종목만 추가 (기존 종목은 변경하지 않음)
- Redis 활성화 시 종목 목록 캐시 사용

Example:
  go run ./cmd/msesync discover`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("Issuer Discovery")

	result, err := a.discoverer().Discover(ctx)
	if err != nil {
		PrintError(err.Error())
		return nil
	}

	PrintKeyValue("Found", fmt.Sprintf("%d issuers", result.Found), 10)
	PrintKeyValue("Inserted", fmt.Sprintf("%d issuers", result.Inserted), 10)
	fmt.Println()
	PrintSuccess("Discovery completed")
	return nil
}
