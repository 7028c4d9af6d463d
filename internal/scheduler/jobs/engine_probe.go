package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/pkg/logger"
)

// EngineInfoSource reports engine identity; inference.Engine satisfies it
type EngineInfoSource interface {
	Info(ctx context.Context) (contracts.EngineInfo, error)
}

// EngineProbeJob checks that the inference engine is reachable.
// Client.Info 가 캐시를 쓰므로 /api/engine 응답도 함께 갱신됨
type EngineProbeJob struct {
	engine EngineInfoSource
	logger *logger.Logger
}

// NewEngineProbeJob creates a new engine probe job
func NewEngineProbeJob(engine EngineInfoSource, log *logger.Logger) *EngineProbeJob {
	return &EngineProbeJob{
		engine: engine,
		logger: log,
	}
}

// Name returns the job name
func (j *EngineProbeJob) Name() string {
	return "engine_probe"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *EngineProbeJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run queries the engine info endpoint
func (j *EngineProbeJob) Run(ctx context.Context) error {
	info, err := j.engine.Info(ctx)
	if err != nil {
		return fmt.Errorf("probe inference engine: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"model":  info.ModelName,
		"device": info.Device,
	}).Debug("Inference engine reachable")

	return nil
}
