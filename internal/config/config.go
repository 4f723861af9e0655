package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"newswatch"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"newswatch"`

	NSQDHost string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// External service credentials. None are required at boot: a feature
	// that needs a missing key fails when invoked, not before.
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	NewsAPIKey    string `envconfig:"NEWSAPI_KEY"`
	PushoverToken string `envconfig:"PUSHOVER_TOKEN"`
	PushoverUser  string `envconfig:"PUSHOVER_USER"`

	// Monitor defaults, used to seed the settings row on first boot.
	MonitorQuery         string `envconfig:"MONITOR_QUERY" default:""`
	MonitorLanguage      string `envconfig:"MONITOR_LANGUAGE" default:"fr"`
	MonitorIntervalSecs  int    `envconfig:"MONITOR_INTERVAL_SECS" default:"180"`
	MonitorMaxItems      int    `envconfig:"MONITOR_MAX_ITEMS" default:"3"`
	MonitorPreviewOnly   bool   `envconfig:"MONITOR_PREVIEW_ONLY" default:"true"`
	MonitorLookbackHours int    `envconfig:"MONITOR_LOOKBACK_HOURS" default:"24"`
	SeenPath             string `envconfig:"SEEN_PATH" default:"data/monitor_seen.json"`

	// Retrieval pipeline
	MaxChunkTokens int `envconfig:"MAX_CHUNK_TOKENS" default:"300"`
	SearchTopK     int `envconfig:"SEARCH_TOP_K" default:"3"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.MaxChunkTokens <= 0 {
		return fmt.Errorf("%w: MAX_CHUNK_TOKENS must be positive", ErrMissingRequired)
	}
	if c.MonitorLookbackHours <= 0 {
		return fmt.Errorf("%w: MONITOR_LOOKBACK_HOURS must be positive", ErrMissingRequired)
	}
	return nil
}
