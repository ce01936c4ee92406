package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "msesync",
	Short: "MSE history synchronizer and technical-signal pipeline",
	Long: `msesync Unified CLI

Macedonian Stock Exchange (mse.mk) 종목 이력 동기화 + 기술적 분석 파이프라인.

  discover → sync → merge → reformat → analyze → export

Usage:
  go run ./cmd/msesync [command]

Examples:
  go run ./cmd/msesync migrate
  go run ./cmd/msesync run
  go run ./cmd/msesync sync --codes ALK,KMB
  go run ./cmd/msesync analyze --codes ALK
  go run ./cmd/msesync scheduler start
  go run ./cmd/msesync api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
