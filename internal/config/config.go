package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/dealscan/internal/screen"
)

// APIKeyEnv is the environment variable holding the completion service credential.
const APIKeyEnv = "OPENAI_API_KEY"

// Config is the root configuration for dealscan.
type Config struct {
	AI           AIConfig
	Retry        RetryConfig
	RateLimit    RateLimitConfig
	Concurrency  int
	Cache        CacheConfig
	Screening    screen.Criteria
	Notification NotificationConfig
}

// AIConfig controls the completion service.
type AIConfig struct {
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load, falls back to OPENAI_API_KEY
	Timeout time.Duration // per-request timeout
}

// RetryConfig controls backoff for transient API failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// RateLimitConfig caps the request rate sent to the completion service.
type RateLimitConfig struct {
	RequestsPerMinute float64 // zero disables limiting
	Burst             int
}

// CacheConfig controls the SQLite result cache.
type CacheConfig struct {
	Enabled bool
	Path    string
	MaxAge  time.Duration // cached results older than this are purged at startup
}

// NotificationConfig controls which notifier receives the run summary.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultModel         = "gpt-4o-mini"
	defaultCachePath     = "dealscan.db"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	AI           rawAIConfig        `yaml:"ai"`
	Retry        rawRetryConfig     `yaml:"retry"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Concurrency  *int               `yaml:"concurrency"`
	Cache        rawCacheConfig     `yaml:"cache"`
	Screening    *rawScreening      `yaml:"screening"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawAIConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawRateLimitConfig struct {
	RequestsPerMinute *float64 `yaml:"requests_per_minute"`
	Burst             int      `yaml:"burst"`
}

type rawCacheConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
	MaxAge  string `yaml:"max_age"`
}

type rawScreening struct {
	MaxAgeYears     int      `yaml:"max_age_years"`
	MinEmployees    int      `yaml:"min_employees"`
	MaxEmployees    int      `yaml:"max_employees"`
	Regions         []string `yaml:"regions"`
	Classifications []string `yaml:"classifications"`
	MinGrowth       int      `yaml:"min_growth"`
	MaxRisk         int      `yaml:"max_risk"`
	MinRegionShare  float64  `yaml:"min_region_share"`
	StableGrowth    bool     `yaml:"stable_growth"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			BaseURL: defaultOpenAIBaseURL,
			Model:   defaultModel,
			APIKey:  os.Getenv(APIKeyEnv),
			Timeout: 60 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             1,
		},
		Concurrency: 1,
		Cache: CacheConfig{
			Enabled: true,
			Path:    defaultCachePath,
			MaxAge:  30 * 24 * time.Hour,
		},
		Screening:    screen.DefaultCriteria(),
		Notification: NotificationConfig{Type: "log"},
	}
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// Anything the file leaves unset keeps its Default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()

	if raw.AI.BaseURL != "" {
		cfg.AI.BaseURL = raw.AI.BaseURL
	}
	if raw.AI.Model != "" {
		cfg.AI.Model = raw.AI.Model
	}
	if raw.AI.APIKey != "" {
		cfg.AI.APIKey = raw.AI.APIKey
	}
	if raw.AI.Timeout != "" {
		cfg.AI.Timeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	if raw.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *raw.Retry.MaxRetries
	}
	if raw.Retry.BaseDelay != "" {
		cfg.Retry.BaseDelay, err = time.ParseDuration(raw.Retry.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parse retry.base_delay %q: %w", raw.Retry.BaseDelay, err)
		}
	}

	if raw.RateLimit.RequestsPerMinute != nil {
		cfg.RateLimit.RequestsPerMinute = *raw.RateLimit.RequestsPerMinute
	}
	if raw.RateLimit.Burst != 0 {
		cfg.RateLimit.Burst = raw.RateLimit.Burst
	}

	if raw.Concurrency != nil {
		cfg.Concurrency = *raw.Concurrency
	}

	if raw.Cache.Enabled != nil {
		cfg.Cache.Enabled = *raw.Cache.Enabled
	}
	if raw.Cache.Path != "" {
		cfg.Cache.Path = raw.Cache.Path
	}
	if raw.Cache.MaxAge != "" {
		cfg.Cache.MaxAge, err = time.ParseDuration(raw.Cache.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("parse cache.max_age %q: %w", raw.Cache.MaxAge, err)
		}
	}

	// A screening block replaces the defaults wholesale so criteria can be dropped.
	if raw.Screening != nil {
		cfg.Screening = screen.Criteria{
			MaxAgeYears:     raw.Screening.MaxAgeYears,
			MinEmployees:    raw.Screening.MinEmployees,
			MaxEmployees:    raw.Screening.MaxEmployees,
			Regions:         raw.Screening.Regions,
			Classifications: raw.Screening.Classifications,
			MinGrowth:       raw.Screening.MinGrowth,
			MaxRisk:         raw.Screening.MaxRisk,
			MinRegionShare:  raw.Screening.MinRegionShare,
			StableGrowth:    raw.Screening.StableGrowth,
		}
	}

	if raw.Notification.Type != "" {
		cfg.Notification = raw.Notification
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.AI.BaseURL == "" {
		return fmt.Errorf("ai.base_url must not be empty")
	}
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model must not be empty")
	}
	if cfg.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive, got %v", cfg.AI.Timeout)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative, got %v", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if cfg.Cache.Enabled && cfg.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when cache.enabled is true")
	}

	s := cfg.Screening
	if s.MaxEmployees > 0 && s.MinEmployees > s.MaxEmployees {
		return fmt.Errorf("screening.min_employees (%d) exceeds max_employees (%d)", s.MinEmployees, s.MaxEmployees)
	}
	if s.MinGrowth < 0 || s.MinGrowth > 10 || s.MaxRisk < 0 || s.MaxRisk > 10 {
		return fmt.Errorf("screening.min_growth and max_risk must be between 0 and 10")
	}
	if s.MinRegionShare < 0 || s.MinRegionShare >= 1 {
		return fmt.Errorf("screening.min_region_share must be in [0, 1), got %v", s.MinRegionShare)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
