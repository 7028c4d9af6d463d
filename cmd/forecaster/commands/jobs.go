package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/forecaster/internal/scheduler"
	"github.com/wonny/forecaster/internal/scheduler/jobs"
)

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Forecast job 기록 관리",
	Long: `forecast_jobs 테이블에 기록된 실행 이력을 조회/정리합니다.

Subcommands:
  list    - 최근 job 목록
  show    - job 상세 (request/response 포함, JSON)
  prune   - 보존 기간(JOB_RETENTION_DAYS)이 지난 job 삭제

Example:
  go run ./cmd/forecaster jobs list --limit 20
  go run ./cmd/forecaster jobs show 7f9c...
  go run ./cmd/forecaster jobs prune --days 7`,
}

var (
	jobsListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 job 목록",
		RunE:  listForecastJobs,
	}

	jobsShowCmd = &cobra.Command{
		Use:   "show [job_id]",
		Short: "job 상세 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  showForecastJob,
	}

	jobsPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "오래된 job 삭제",
		RunE:  pruneForecastJobs,
	}

	jobsLimit int
	pruneDays int
)

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsPruneCmd)

	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 20, "number of jobs to list")
	jobsPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (default is JOB_RETENTION_DAYS)")
}

func listForecastJobs(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{db: dbRequired, logWriter: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.repo.ListJobs(ctx, jobsLimit)
	if err != nil {
		return err
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %-36s %-10s %-7s %s\n", "JOB ID", "STATUS", "SERIES", "CREATED")
	fmt.Println("───────────────────────────────────────────────────────────")
	for _, job := range list {
		fmt.Printf("  %-36s %-10s %-7d %s\n",
			job.ID, job.Status, job.SeriesCount, job.CreatedAt.Local().Format(time.DateTime))
		if job.ErrorMessage != nil {
			fmt.Printf("    ↳ %s\n", truncate(*job.ErrorMessage, 80))
		}
	}
	fmt.Printf("\n%d job(s)\n", len(list))
	return nil
}

func showForecastJob(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{db: dbRequired, logWriter: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := a.repo.GetJob(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, job)
}

func pruneForecastJobs(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{db: dbRequired, logWriter: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	days := a.cfg.Forecast.JobRetentionDays
	if pruneDays > 0 {
		days = pruneDays
	}

	// 스케줄러와 동일한 경로로 1회 실행 (재시도 없음)
	sched := scheduler.New(a.log, scheduler.WithRetry(0, 0))
	retention := jobs.NewRetentionJob(a.repo, days, a.log)
	if err := sched.AddJob(retention); err != nil {
		return err
	}

	result, err := sched.RunJobSync(retention.Name())
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("❌ prune failed: %s", result.Error)
	}

	fmt.Printf("✅ Pruned jobs older than %d days in %v\n", days, result.Duration.Round(time.Millisecond))
	return nil
}
