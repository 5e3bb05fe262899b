package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Parser  ParserConfig
	Quota   QuotaConfig
	Rules   RulesConfig
	Storage StorageConfig
	Watch   WatchConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
}

type ParserConfig struct {
	MatchTimeout  time.Duration
	QueueCapacity int
	SanityCeiling int64
}

type QuotaConfig struct {
	Enforced     bool
	MonthlyLimit int
}

type RulesConfig struct {
	Path     string
	Autoload bool
}

type StorageConfig struct {
	Provider string
	LocalDir string
	S3Bucket string
	S3Region string
	S3Prefix string
}

type WatchConfig struct {
	Dir           string
	Schedule      string
	PruneSchedule string
	RetentionDays int
}

// Load reads configuration from environment variables, first loading a
// .env file when one sits in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Parser: ParserConfig{
			MatchTimeout:  getEnvAsDuration("PARSER_MATCH_TIMEOUT", 1500*time.Millisecond),
			QueueCapacity: getEnvAsInt("PARSER_QUEUE_CAPACITY", 5000),
			SanityCeiling: getEnvAsInt64("PARSER_SANITY_CEILING", 50_000_000),
		},
		Quota: QuotaConfig{
			Enforced:     getEnvAsBool("QUOTA_ENFORCED", true),
			MonthlyLimit: getEnvAsInt("QUOTA_MONTHLY_LIMIT", 100),
		},
		Rules: RulesConfig{
			Path:     getEnv("RULES_PATH", "rules.yaml"),
			Autoload: getEnvAsBool("RULES_AUTOLOAD", true),
		},
		Storage: StorageConfig{
			Provider: getEnv("STORAGE_PROVIDER", "local"),
			LocalDir: getEnv("STORAGE_LOCAL_DIR", "./archive"),
			S3Bucket: getEnv("STORAGE_S3_BUCKET", ""),
			S3Region: getEnv("STORAGE_S3_REGION", "us-east-1"),
			S3Prefix: getEnv("STORAGE_S3_PREFIX", "statements"),
		},
		Watch: WatchConfig{
			Dir:           getEnv("WATCH_DIR", "./inbox"),
			Schedule:      getEnv("WATCH_SCHEDULE", "@every 1m"),
			PruneSchedule: getEnv("WATCH_PRUNE_SCHEDULE", "0 3 * * *"),
			RetentionDays: getEnvAsInt("WATCH_RETENTION_DAYS", 90),
		},
	}

	if cfg.Parser.MatchTimeout <= 0 {
		return nil, errors.New("PARSER_MATCH_TIMEOUT must be positive")
	}

	if cfg.Storage.Provider == "s3" && cfg.Storage.S3Bucket == "" {
		return nil, errors.New("STORAGE_S3_BUCKET is required when STORAGE_PROVIDER=s3")
	}

	return cfg, nil
}

// Describe returns a short human-readable quota summary for log lines.
func (q *QuotaConfig) Describe() string {
	if !q.Enforced {
		return "quota disabled"
	}
	return fmt.Sprintf("%d parses/month", q.MonthlyLimit)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
