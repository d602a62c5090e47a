package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dealscan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("TEST_DEALSCAN_KEY", "sk-from-env")
	path := writeConfig(t, `
ai:
  base_url: https://llm.internal/v1
  model: gpt-4o
  api_key: ${TEST_DEALSCAN_KEY}
  timeout: 15s
retry:
  max_retries: 0
  base_delay: 500ms
rate_limit:
  requests_per_minute: 300
  burst: 3
concurrency: 4
cache:
  path: /tmp/cache.db
  max_age: 24h
screening:
  min_growth: 8
  regions: [USA]
  min_region_share: 0.6
  stable_growth: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.BaseURL != "https://llm.internal/v1" || cfg.AI.Model != "gpt-4o" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.AI.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.AI.APIKey)
	}
	if cfg.AI.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.AI.Timeout)
	}
	if cfg.Retry.MaxRetries != 0 || cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.RateLimit.RequestsPerMinute != 300 || cfg.RateLimit.Burst != 3 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != "/tmp/cache.db" || cfg.Cache.MaxAge != 24*time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Screening.MinRegionShare != 0.6 || !cfg.Screening.StableGrowth {
		t.Errorf("Screening = %+v, want optional-column checks from file", cfg.Screening)
	}
	if cfg.Screening.MinGrowth != 8 || cfg.Screening.MaxRisk != 0 || len(cfg.Screening.Regions) != 1 {
		t.Errorf("Screening = %+v, want file block to replace defaults", cfg.Screening)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q, want log", cfg.Notification.Type)
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "sk-default")
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.AI != def.AI || cfg.Retry != def.Retry || cfg.Concurrency != def.Concurrency {
		t.Errorf("Load(empty) = %+v, want defaults %+v", cfg, def)
	}
	if cfg.AI.APIKey != "sk-default" {
		t.Errorf("APIKey = %q, want value from %s", cfg.AI.APIKey, APIKeyEnv)
	}
	if cfg.Screening.MinEmployees != 20 || cfg.Screening.MaxEmployees != 60 {
		t.Errorf("Screening = %+v, want defaults", cfg.Screening)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "ai: [broken")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad timeout", "ai:\n  timeout: soon\n"},
		{"zero concurrency", "concurrency: 0\n"},
		{"negative retries", "retry:\n  max_retries: -1\n"},
		{"slack without webhook", "notification:\n  type: slack\n"},
		{"slack with foreign webhook", "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n"},
		{"unknown notifier", "notification:\n  type: email\n"},
		{"inverted employee range", "screening:\n  min_employees: 100\n  max_employees: 10\n"},
		{"growth out of range", "screening:\n  min_growth: 11\n"},
		{"region share as percent", "screening:\n  min_region_share: 50\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("Load: expected validation error for %q", tt.content)
			}
		})
	}
}
