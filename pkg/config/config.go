package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (forecast job 기록용, 선택)
	Database DatabaseConfig

	// Redis (prepare 결과 캐시 + 엔진 호출 레이트 리밋)
	Redis RedisConfig

	// Inference engine (외부 Chronos 서비스)
	Inference InferenceConfig

	// Forecast defaults
	Forecast ForecastConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL     string
	Enabled bool

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// InferenceConfig holds the hosted inference engine configuration
type InferenceConfig struct {
	BaseURL       string
	Timeout       time.Duration
	BatchSize     int
	MaxRetries    int
	RatePerSecond int // 엔진 호출 초당 제한
}

// ForecastConfig holds reconciliation/preprocessing defaults
type ForecastConfig struct {
	ConfigPath        string  // 모델 프로파일 YAML 경로
	DefaultConfidence float64 // confidence 미지정 fragment 기본값
	Workers           int     // 시리즈 병렬 전처리 수
	CacheTTL          time.Duration
	JobRetentionDays  int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Enabled:         getEnvAsBool("DB_ENABLED", true),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Inference engine
		Inference: InferenceConfig{
			BaseURL:       getEnv("INFERENCE_BASE_URL", "http://localhost:8000"),
			Timeout:       getEnvAsDuration("INFERENCE_TIMEOUT", "120s"),
			BatchSize:     getEnvAsInt("INFERENCE_BATCH_SIZE", 128),
			MaxRetries:    getEnvAsInt("INFERENCE_MAX_RETRIES", 2),
			RatePerSecond: getEnvAsInt("INFERENCE_RATE_PER_SECOND", 4),
		},

		// Forecast defaults
		Forecast: ForecastConfig{
			ConfigPath:        getEnv("FORECAST_CONFIG_PATH", "config/chronos2.yaml"),
			DefaultConfidence: getEnvAsFloat("FORECAST_DEFAULT_CONFIDENCE", 0.5),
			Workers:           getEnvAsInt("FORECAST_WORKERS", 4),
			CacheTTL:          getEnvAsDuration("FORECAST_CACHE_TTL", "10m"),
			JobRetentionDays:  getEnvAsInt("JOB_RETENTION_DAYS", 30),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Forecast.DefaultConfidence < 0 || c.Forecast.DefaultConfidence > 1 {
		return fmt.Errorf("FORECAST_DEFAULT_CONFIDENCE must be within [0, 1]")
	}

	if c.Forecast.Workers < 1 {
		return fmt.Errorf("FORECAST_WORKERS must be >= 1")
	}

	if c.Inference.BatchSize < 1 {
		return fmt.Errorf("INFERENCE_BATCH_SIZE must be >= 1")
	}

	return nil
}

// RequireDatabase checks that a database URL is configured.
// DB를 여는 커맨드에서만 호출 (aggregate/prepare 는 DB 없이 동작)
func (c *Config) RequireDatabase() error {
	if !c.Database.Enabled {
		return fmt.Errorf("database is disabled (DB_ENABLED=false)")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
