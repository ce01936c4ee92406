package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "스키마 생성",
	Long: `가격/종목 테이블과 (issuer_code, date) 인덱스를 생성합니다.
SINK_KINDS에 db가 있으면 signals 테이블도 함께 생성합니다.
이미 있으면 아무것도 하지 않습니다.

Example:
  go run ./cmd/msesync migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("Schema Migration")

	if err := a.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure store schema: %w", err)
	}
	PrintKeyValue("Store", a.cfg.Database.Driver, 10)

	// sinks() creates the signals table for the db sink
	if _, err := a.sinks(ctx); err != nil {
		return err
	}
	for _, kind := range a.cfg.Sink.Kinds {
		if kind == "db" {
			PrintKeyValue("Signals", "signals", 10)
		}
	}

	fmt.Println()
	PrintSuccess("Schema is up to date")
	return nil
}
