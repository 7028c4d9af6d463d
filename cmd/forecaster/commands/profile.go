package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/forecaster/internal/forecastconfig"
	"github.com/wonny/forecaster/pkg/config"
)

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "모델 프로파일 관리",
}

var (
	profileCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "프로파일 YAML 검증 + 권고 사항 출력",
		Long: `모델 프로파일(--profile 또는 FORECAST_CONFIG_PATH)을 읽어
필수 제약을 검증하고, 권고 사항(warning)과 SHA256 해시를 출력합니다.

Example:
  go run ./cmd/forecaster profile check --profile config/chronos2.yaml`,
		RunE: checkProfile,
	}

	profileDefaultCmd = &cobra.Command{
		Use:   "default",
		Short: "내장 기본 프로파일을 JSON 으로 출력",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(os.Stdout, forecastconfig.Default())
		},
	}
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileCheckCmd)
	profileCmd.AddCommand(profileDefaultCmd)
}

func checkProfile(cmd *cobra.Command, args []string) error {
	path := profilePath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Forecast.ConfigPath
	}

	fmt.Printf("Loading profile %s...\n", path)
	profile, _, err := forecastconfig.Load(path)
	if err != nil {
		return fmt.Errorf("❌ invalid profile: %w", err)
	}

	hash, err := forecastconfig.Hash(profile)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Profile %s (v%s) is valid\n", profile.Meta.ProfileID, profile.Meta.Version)
	fmt.Printf("   Model        : %s\n", profile.Target.ModelName)
	fmt.Printf("   Context      : %d (patch %d)\n", profile.Target.ContextBudget, profile.Target.InputPatchSize)
	fmt.Printf("   Prediction   : %d (default horizon %d)\n", profile.Target.PredictionBudget, profile.Defaults.PredictionHorizon)
	fmt.Printf("   Quantiles    : %v\n", profile.Target.QuantileSet)
	fmt.Printf("   Frequencies  : %v\n", profile.Target.AllowedFrequencies)
	fmt.Printf("   Hash         : %s\n", hash)

	warnings := forecastconfig.Warn(profile)
	if len(warnings) == 0 {
		return nil
	}
	fmt.Println()
	for _, w := range warnings {
		fmt.Printf("⚠️  [%s] %s\n", w.Code, w.Message)
	}
	return nil
}
