package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/forecaster/internal/api"
	"github.com/wonny/forecaster/internal/api/handlers"
	"github.com/wonny/forecaster/internal/scheduler"
	"github.com/wonny/forecaster/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- DB 가 설정되어 있으면 job 기록 + 보존 기간 정리(매일 03:00)
- 5분마다 inference engine 상태 확인

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics (METRICS_ENABLED)
  POST /api/forecast            - fragment → forecast
  POST /api/forecast/prepare    - fragment → payload + batch (dry run)
  POST /api/forecast/payload    - canonical payload → forecast
  GET  /api/forecast/jobs       - 최근 job 목록
  GET  /api/forecast/jobs/{id}  - job 상세
  GET  /api/engine              - engine model/device

Example:
  go run ./cmd/forecaster api
  go run ./cmd/forecaster api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	noScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default is PORT)")
	apiCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "백그라운드 작업 비활성화")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Forecaster API Server ===")

	ctx := context.Background()

	// 1. Wire dependencies (DB 는 선택)
	a, err := newApp(ctx, appOptions{db: dbOptional})
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"profile": a.profile.Meta.ProfileID,
		"jobs":    a.repo != nil,
	}).Info("Initializing API server")

	// 2. Create handler + router
	var jobReader handlers.JobReader
	if a.repo != nil {
		jobReader = a.repo
	}
	forecastHandler := handlers.NewForecastHandler(a.service, jobReader, log)
	router := api.NewRouter(forecastHandler, api.RouterOptions{Metrics: a.cfg.MetricsEnabled}, log)

	// 3. Background jobs
	var sched *scheduler.Scheduler
	if !noScheduler {
		sched = scheduler.New(log)
		if a.repo != nil {
			if err := sched.AddJob(jobs.NewRetentionJob(a.repo, a.cfg.Forecast.JobRetentionDays, log)); err != nil {
				return err
			}
		}
		if err := sched.AddJob(jobs.NewEngineProbeJob(a.engine, log)); err != nil {
			return err
		}
		sched.Start()
	}

	// 4. Start server with graceful shutdown
	server := api.New(a.cfg, log, router)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")
	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
