package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/time/rate"

	"github.com/wonny/forecaster/internal/aggregation"
	"github.com/wonny/forecaster/internal/forecast"
	"github.com/wonny/forecaster/internal/forecastconfig"
	"github.com/wonny/forecaster/internal/inference"
	"github.com/wonny/forecaster/internal/preprocess"
	"github.com/wonny/forecaster/pkg/config"
	"github.com/wonny/forecaster/pkg/database"
	"github.com/wonny/forecaster/pkg/httputil"
	"github.com/wonny/forecaster/pkg/logger"
	"github.com/wonny/forecaster/pkg/redis"
)

// redisPrefix namespaces every key this service writes
const redisPrefix = "forecaster"

// dbMode controls whether a command opens PostgreSQL
type dbMode int

const (
	dbOff      dbMode = iota // 열지 않음 (aggregate, prepare)
	dbOptional               // 설정되어 있으면 job 기록, 실패 시 경고만
	dbRequired               // jobs, test-db
)

type appOptions struct {
	db        dbMode
	logWriter io.Writer // nil 이면 stdout
}

// app holds the wired dependencies shared by commands
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	profile *forecastconfig.Config
	db      *database.DB
	redis   *redis.Client
	repo    *forecast.Repository
	engine  *inference.Client
	service *forecast.Service
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	w := opts.logWriter
	if w == nil {
		w = os.Stdout
	}
	log := logger.NewWithWriter(cfg, w)

	a := &app{cfg: cfg, log: log}

	a.profile, err = loadProfile(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := a.openDatabase(ctx, opts.db); err != nil {
		return nil, err
	}

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		// 캐시/분산 리밋은 부가 기능이므로 Redis 없이 계속
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.Disabled()
	}

	httpClient := httputil.New(cfg, log)
	if limiter := engineLimiter(cfg, a.redis); limiter != nil {
		httpClient.WithLimiter(limiter)
	}

	a.engine = inference.NewClient(httpClient, cfg.Inference.BaseURL, cfg.Inference.BatchSize, log).
		WithCache(redis.NewCache(a.redis, redisPrefix))

	zl := log.Zerolog()
	a.service, err = forecast.NewService(
		a.profile,
		aggregation.NewAggregatorWithConfidence(a.profile.Defaults.DefaultConfidence, zl),
		preprocess.NewAssemblerWithWorkers(cfg.Forecast.Workers, zl),
		a.engine,
		zl,
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service.WithCache(redis.NewCache(a.redis, redisPrefix), cfg.Forecast.CacheTTL)
	if a.repo != nil {
		a.service.WithJobStore(a.repo)
	}

	return a, nil
}

func (a *app) openDatabase(ctx context.Context, mode dbMode) error {
	if mode == dbOff {
		return nil
	}
	if err := a.cfg.RequireDatabase(); err != nil {
		if mode == dbRequired {
			return err
		}
		a.log.Info("Database not configured, forecast jobs will not be recorded")
		return nil
	}

	db, err := database.New(ctx, a.cfg)
	if err != nil {
		if mode == dbRequired {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.log.WithError(err).Warn("Database unavailable, forecast jobs will not be recorded")
		return nil
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}

	a.db = db
	a.repo = forecast.NewRepository(db.Pool)
	return nil
}

// Close releases database and redis connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// loadProfile reads the model profile, falling back to built-in defaults when the file is absent
func loadProfile(cfg *config.Config, log *logger.Logger) (*forecastconfig.Config, error) {
	path := cfg.Forecast.ConfigPath
	if profilePath != "" {
		path = profilePath
	}

	profile, _, err := forecastconfig.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && profilePath == "":
		log.WithField("path", path).Warn("Model profile not found, using built-in defaults")
		profile = forecastconfig.Default()
		profile.Defaults.DefaultConfidence = cfg.Forecast.DefaultConfidence
	case err != nil:
		return nil, fmt.Errorf("load model profile: %w", err)
	}

	for _, w := range forecastconfig.Warn(profile) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"profile": profile.Meta.ProfileID,
		}).Warn(w.Message)
	}
	return profile, nil
}

// engineLimiter shares the engine budget across replicas through Redis,
// or limits this process only when Redis is off
func engineLimiter(cfg *config.Config, client *redis.Client) httputil.Waiter {
	rps := cfg.Inference.RatePerSecond
	if rps <= 0 {
		return nil
	}
	if client.Enabled() {
		return redis.NewRateLimiter(client, redisPrefix).For(redis.EngineRateLimit(rps))
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}
