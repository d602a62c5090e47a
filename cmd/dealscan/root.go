package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/dealscan/internal/ai"
	"github.com/amishk599/dealscan/internal/config"
	"github.com/amishk599/dealscan/internal/model"
	"github.com/amishk599/dealscan/internal/notifier"
	"github.com/amishk599/dealscan/internal/ratelimit"
	"github.com/amishk599/dealscan/internal/retry"
)

const defaultConfigFile = "dealscan.yaml"

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "dealscan -i companies.csv -o enriched.csv",
	Short: "Enrich a company list with LLM analysis",
	Long: "Dealscan reads a CSV of companies, asks an LLM for growth potential, risk, key strengths\n" +
		"and a classification for each one, and writes the input back out with those columns appended.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEnrich,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: DEALSCAN_CONFIG env var or ./dealscan.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > DEALSCAN_CONFIG env var > "./dealscan.yaml" if present > defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("DEALSCAN_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		path = defaultConfigFile
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// quietLogger keeps warnings and errors while a TUI owns the terminal.
func quietLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// buildClassifier wires provider → LLM classifier → rate limit → retry.
// Each retry attempt waits on the limiter.
func buildClassifier(cfg *config.Config, logger *slog.Logger) (model.Classifier, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("no API key: set %s or ai.api_key in the config file", config.APIKeyEnv)
	}

	httpClient := &http.Client{Timeout: cfg.AI.Timeout + 5*time.Second}
	provider := ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, httpClient)

	var c model.Classifier = ai.NewLLMClassifier(provider, ai.CompanyAnalysisTemplate, logger)
	c = ratelimit.NewRateLimitedClassifier(c, ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))
	c = retry.NewRetryClassifier(c, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)

	logger.Info("classifier configured",
		"model", cfg.AI.Model,
		"base_url", cfg.AI.BaseURL,
		"prompt_version", ai.PromptVersion,
		"requests_per_minute", cfg.RateLimit.RequestsPerMinute,
		"max_retries", cfg.Retry.MaxRetries,
	)
	return c, nil
}
