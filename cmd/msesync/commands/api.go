package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/msesync/internal/api"
	"github.com/wonny/msesync/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 데이터 신선도 조회
- 파이프라인 실행 트리거 (한 번에 하나만)

Endpoints:
  GET  /health             - Health check
  GET  /api/freshness      - 신선도 스냅샷 조회
  GET  /api/runs/latest    - 마지막 실행 리포트
  POST /api/runs           - 실행 트리거 (full | sync | analysis)

Example:
  go run ./cmd/msesync api
  go run ./cmd/msesync api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	PrintHeader("MSE Sync API Server")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	orch, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}

	dataHandler := handlers.NewDataHandler(a.qualityGate(), a.log)
	runHandler := handlers.NewRunHandler(ctx, orch, a.cfg.Sync.Reformat, a.log)
	router := api.NewRouter(dataHandler, runHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/freshness")
	fmt.Println("  GET  /api/runs/latest")
	fmt.Println("  POST /api/runs")
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
