package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the CLI, the bot and the data service.
type Config struct {
	// ServiceURL is the data service location: a sqlite path or a postgres:// URL.
	ServiceURL string `env:"TASKFLOW_SERVICE_URL" env-default:"taskflow.db"`
	// AnonKey is the access key handed to the data service. For postgres it fills
	// in a missing password.
	AnonKey string `env:"TASKFLOW_ANON_KEY"`

	StorageDir string `env:"TASKFLOW_STORAGE_DIR" env-default:"storage"`
	PublicURL  string `env:"TASKFLOW_PUBLIC_URL" env-default:"http://localhost:8090"`
	PrefsPath  string `env:"TASKFLOW_PREFS"`
	// Email signs the CLI in; --email overrides it.
	Email string `env:"TASKFLOW_EMAIL"`

	TelegramToken string `env:"TELEGRAM_TOKEN"`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`
	MetricsAddr   string `env:"METRICS_ADDR"`

	RefetchDelay   time.Duration `env:"REFETCH_DELAY" env-default:"200ms"`
	ReconcileDelay time.Duration `env:"RECONCILE_DELAY" env-default:"100ms"`

	DigestAt       string `env:"DIGEST_AT"`
	ReportHours    string `env:"REPORT_INTERVAL_HOURS"`
	ReportInterval time.Duration
}

// Load reads an optional .env file and then the process environment.
// Connection parameters are not validated here; a bad URL fails on first use.
func Load() (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	cfg.ServiceURL = strings.TrimSpace(cfg.ServiceURL)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.ReportInterval = parseInterval(strings.TrimSpace(cfg.ReportHours))
	if cfg.ReportInterval == 0 && cfg.DigestAt == "" {
		cfg.ReportInterval = 5 * time.Hour
	}

	return cfg, nil
}

// RequireTelegram reports whether the bot can be started.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

// DSN returns the connection string for the data service, with the access key
// filled in as the password of postgres URLs that carry none.
func (c Config) DSN() string {
	if c.AnonKey == "" || !isPostgres(c.ServiceURL) {
		return c.ServiceURL
	}
	u, err := url.Parse(c.ServiceURL)
	if err != nil || u.User == nil {
		return c.ServiceURL
	}
	if _, ok := u.User.Password(); ok {
		return c.ServiceURL
	}
	u.User = url.UserPassword(u.User.Username(), c.AnonKey)
	return u.String()
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
