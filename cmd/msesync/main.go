package main

import (
	"os"

	"github.com/wonny/msesync/cmd/msesync/commands"
)

// main is the entry point for the msesync CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/msesync [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
