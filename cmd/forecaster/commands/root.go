package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profilePath string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "forecaster",
	Short: "Chronos-2 forecast pipeline (fragments → payload → engine)",
	Long: `Forecaster Unified CLI

LLM 이 추출한 시계열 fragment 를 series 단위로 합치고,
모델 한도에 맞춰 전처리한 뒤 외부 Chronos-2 엔진으로 예측합니다.

Usage:
  go run ./cmd/forecaster [command]

Examples:
  go run ./cmd/forecaster api
  go run ./cmd/forecaster aggregate fragments.json
  go run ./cmd/forecaster prepare fragments.json
  go run ./cmd/forecaster run fragments.json
  go run ./cmd/forecaster jobs list
  go run ./cmd/forecaster profile check
  go run ./cmd/forecaster test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "model profile YAML (default is FORECAST_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
