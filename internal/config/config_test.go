package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Hour},
		{"0.5", 30 * time.Minute},
		{"-1", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseInterval(tt.raw); got != tt.want {
			t.Errorf("parseInterval(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"TASKFLOW_SERVICE_URL", "REFETCH_DELAY", "REPORT_INTERVAL_HOURS", "DIGEST_AT", "TELEGRAM_TOKEN"} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServiceURL != "taskflow.db" {
		t.Errorf("ServiceURL = %q, want taskflow.db", cfg.ServiceURL)
	}
	if cfg.RefetchDelay != 200*time.Millisecond {
		t.Errorf("RefetchDelay = %v, want 200ms", cfg.RefetchDelay)
	}
	if cfg.ReportInterval != 5*time.Hour {
		t.Errorf("ReportInterval = %v, want 5h", cfg.ReportInterval)
	}
	if err := cfg.RequireTelegram(); err == nil {
		t.Error("RequireTelegram should fail without a token")
	}
}

func TestDSNFillsPostgresPassword(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"sqlite untouched", Config{ServiceURL: "taskflow.db", AnonKey: "k"}, "taskflow.db"},
		{"no key", Config{ServiceURL: "postgres://app@db:5432/tf"}, "postgres://app@db:5432/tf"},
		{"key fills password", Config{ServiceURL: "postgres://app@db:5432/tf", AnonKey: "secret"}, "postgres://app:secret@db:5432/tf"},
		{"password kept", Config{ServiceURL: "postgres://app:pw@db:5432/tf", AnonKey: "secret"}, "postgres://app:pw@db:5432/tf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
