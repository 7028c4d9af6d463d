package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/internal/forecast"
)

var (
	horizonFlag int
	payloadMode bool
	quietFlag   bool
)

// aggregateCmd reconciles fragments into a canonical payload
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [fragments.json|-]",
	Short: "Fragment → canonical payload (engine 호출 없음)",
	Long: `fragment 요청 JSON 을 series 단위로 합쳐 canonical payload 를 출력합니다.

입력 형식은 POST /api/forecast 본문과 같습니다:
  {"fragments": [...], "request_meta": {...}, "covariate_catalog": [...], "prediction_horizon": 24}

Example:
  go run ./cmd/forecaster aggregate fragments.json > payload.json
  cat fragments.json | go run ./cmd/forecaster aggregate -`,
	Args: cobra.ExactArgs(1),
	RunE: runAggregate,
}

// prepareCmd runs aggregation and preprocessing (dry run)
var prepareCmd = &cobra.Command{
	Use:   "prepare [fragments.json|-]",
	Short: "Fragment → payload + prepared batch (dry run)",
	Long: `aggregate 후 horizon 캡, context 절단, 공변량 정규화, 타임스탬프 투영까지 수행하고
엔진에 보낼 batch 를 출력합니다. 결과는 Redis 가 켜져 있으면 캐시됩니다.

Example:
  go run ./cmd/forecaster prepare fragments.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepare,
}

// runCmd runs the full pipeline against the inference engine
var runCmd = &cobra.Command{
	Use:   "run [fragments.json|payload.json|-]",
	Short: "전체 예측 실행 (engine 호출)",
	Long: `fragment 요청(기본) 또는 canonical payload(--payload)로 예측을 실행하고
ForecastResponse JSON 을 출력합니다. DB 가 설정되어 있으면 job 으로 기록됩니다.

Example:
  go run ./cmd/forecaster run fragments.json --horizon 24
  go run ./cmd/forecaster run payload.json --payload`,
	Args: cobra.ExactArgs(1),
	RunE: runForecast,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(runCmd)

	for _, cmd := range []*cobra.Command{aggregateCmd, prepareCmd, runCmd} {
		cmd.Flags().IntVar(&horizonFlag, "horizon", 0, "prediction horizon override (0 = profile default)")
	}
	runCmd.Flags().BoolVar(&payloadMode, "payload", false, "input is a canonical payload instead of fragments")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress the summary on stderr")
}

// readFragmentRequest decodes the fragment request and applies --horizon
func readFragmentRequest(path string) (*forecast.FragmentRequest, error) {
	var req forecast.FragmentRequest
	if err := decodeInput(path, &req); err != nil {
		return nil, err
	}
	if horizonFlag > 0 {
		h := horizonFlag
		req.PredictionHorizon = &h
	}
	return &req, nil
}

// signalContext is canceled on Ctrl+C
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{db: dbOff, logWriter: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := readFragmentRequest(args[0])
	if err != nil {
		return err
	}

	payload, err := a.service.Aggregate(req)
	if err != nil {
		return fmt.Errorf("❌ aggregation failed: %w", err)
	}

	printReports(os.Stderr, payload.GlobalContext.ValidationReports)
	return writeJSON(os.Stdout, payload)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{db: dbOff, logWriter: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := readFragmentRequest(args[0])
	if err != nil {
		return err
	}

	result, err := a.service.Prepare(ctx, req)
	if err != nil {
		return fmt.Errorf("❌ prepare failed: %w", err)
	}

	if result.Cached {
		fmt.Fprintln(os.Stderr, "♻️  Served from cache")
	}
	printReports(os.Stderr, result.Payload.GlobalContext.ValidationReports)
	return writeJSON(os.Stdout, result)
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, appOptions{db: dbOptional, logWriter: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	var resp *contracts.ForecastResponse
	if payloadMode {
		var payload contracts.ForecastPayload
		if err := decodeInput(args[0], &payload); err != nil {
			return err
		}
		resp, err = a.service.RunPayload(ctx, &payload)
	} else {
		var req *forecast.FragmentRequest
		req, err = readFragmentRequest(args[0])
		if err != nil {
			return err
		}
		resp, err = a.service.Run(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("❌ forecast failed: %w", err)
	}

	if !quietFlag {
		printForecastSummary(os.Stderr, resp)
	}
	return writeJSON(os.Stdout, resp)
}
