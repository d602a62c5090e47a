package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/amishk599/dealscan/internal/ai"
	"github.com/amishk599/dealscan/internal/csvio"
	"github.com/amishk599/dealscan/internal/model"
	"github.com/amishk599/dealscan/internal/pipeline"
	"github.com/amishk599/dealscan/internal/review"
	"github.com/amishk599/dealscan/internal/screen"
	"github.com/amishk599/dealscan/internal/store"
)

var (
	inputPath   string
	outputPath  string
	concurrency int
	noCache     bool
	modelName   string
	progress    bool
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&inputPath, "input", "i", "", "input CSV of companies")
	f.StringVarP(&outputPath, "output", "o", "", "path of the enriched CSV to write")
	f.IntVar(&concurrency, "concurrency", 0, "max requests in flight (default from config, 1 = sequential)")
	f.BoolVar(&noCache, "no-cache", false, "ignore cached results and do not store new ones")
	f.StringVar(&modelName, "model", "", "override the configured model")
	f.BoolVar(&progress, "progress", false, "show a progress spinner instead of per-row logs")
	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")
}

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	summaryLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	summaryBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)
)

func runEnrich(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("concurrency") {
		if concurrency < 1 {
			return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
		}
		cfg.Concurrency = concurrency
	}
	if modelName != "" {
		cfg.AI.Model = modelName
	}

	// Input problems are fatal before any API call or output file.
	in, err := csvio.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}
	if len(in.Rows) == 0 {
		logger.Warn("input has no data rows", "path", inputPath)
	}

	runLogger := logger
	if progress {
		runLogger = quietLogger(os.Stderr)
	}

	classifier, err := buildClassifier(cfg, runLogger)
	if err != nil {
		return fmt.Errorf("cannot start enrichment: %w", err)
	}

	var cache model.ResultCache = store.NewNopStore()
	var sqlStore *store.SQLiteStore
	if cfg.Cache.Enabled && !noCache {
		sqlStore, err = store.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open cache %s: %w", cfg.Cache.Path, err)
		}
		defer sqlStore.Close()
		if err := sqlStore.Cleanup(cfg.Cache.MaxAge); err != nil {
			logger.Warn("cache cleanup failed", "error", err)
		}
		cache = sqlStore
	}

	modelID := cfg.AI.Model
	enricher := pipeline.NewEnricher(
		classifier,
		cache,
		screen.NewCriteriaScreener(cfg.Screening),
		func(rec model.CompanyRecord) string { return store.CacheKey(modelID, ai.PromptVersion, rec) },
		cfg.Concurrency,
		runLogger,
	)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	logger.Info("enriching companies",
		"input", inputPath,
		"output", outputPath,
		"rows", len(in.Rows),
		"concurrency", cfg.Concurrency,
		"cache", sqlStore != nil,
	)

	var summary model.Summary
	run := func() error {
		var err error
		summary, _, err = enricher.ProcessInput(ctx, in, inputPath, outputPath)
		return err
	}

	if progress {
		err = review.RunProgress("Enriching companies", len(in.Rows), cancel, func(report func(done int)) error {
			enricher.OnProgress(func(done, _ int, _ model.Outcome) { report(done) })
			return run()
		})
	} else {
		enricher.OnProgress(func(done, total int, o model.Outcome) {
			logger.Info("row done", "done", done, "total", total, "company", o.Row.Record.Name, "status", o.Status)
		})
		err = run()
	}
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	if sqlStore != nil {
		if _, err := sqlStore.RecordRun(summary); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if err := setupNotifier(cfg, httpClient, logger).Notify(summary); err != nil {
		logger.Warn("summary notification failed", "error", err)
	}

	fmt.Println(renderSummary(summary))

	// The output is complete but the credential or the run itself needs attention.
	if n := summary.ByStatus[model.StatusAuthError]; n > 0 {
		return fmt.Errorf("%d rows failed authentication", n)
	}
	if n := summary.ByStatus[model.StatusCancelled]; n > 0 {
		return fmt.Errorf("run cancelled with %d rows unprocessed", n)
	}
	return nil
}

func renderSummary(s model.Summary) string {
	line := func(label, value string) string {
		return summaryLabelStyle.Render(label) + value + "\n"
	}

	body := summaryTitleStyle.Render("Enrichment summary") + "\n\n"
	body += line("Run", s.RunID)
	body += line("Output", s.Output)
	body += line("Companies", fmt.Sprintf("%d", s.Total))
	body += line("Enriched", fmt.Sprintf("%d", s.Succeeded()))
	for _, st := range []model.Status{
		model.StatusInvalid,
		model.StatusParseError,
		model.StatusAPIError,
		model.StatusRateLimited,
		model.StatusAuthError,
		model.StatusCancelled,
	} {
		if c := s.ByStatus[st]; c > 0 {
			body += line(string(st), fmt.Sprintf("%d", c))
		}
	}
	body += line("Interesting", fmt.Sprintf("%d (%.1f%%)", len(s.Interesting), s.InterestingPct()))
	body += line("Duration", s.Duration.Round(time.Millisecond).String())

	for _, o := range s.Interesting {
		if o.Result == nil {
			continue
		}
		body += fmt.Sprintf("\n  %s  %s  growth %d/10  risk %d/10",
			summaryTitleStyle.Render(o.Row.Record.Name), o.Result.Classification,
			o.Result.GrowthPotential, o.Result.RiskLevel)
	}
	return summaryBoxStyle.Render(body)
}
