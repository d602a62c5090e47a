// Package pipeline runs company records through the classifier and pairs each
// input row with its outcome.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/dealscan/internal/csvio"
	"github.com/amishk599/dealscan/internal/model"
)

// KeyFunc derives the cache key for a record.
type KeyFunc func(rec model.CompanyRecord) string

// ProgressFunc is called after each row completes. It may be called concurrently.
type ProgressFunc func(done, total int, o model.Outcome)

// Enricher owns the per-row pipeline: validate → cache lookup → classify → screen.
type Enricher struct {
	classifier  model.Classifier
	cache       model.ResultCache
	screener    model.Screener
	key         KeyFunc
	concurrency int
	progress    ProgressFunc
	logger      *slog.Logger
}

// NewEnricher creates an enricher wired with all its dependencies.
// concurrency below 1 is treated as 1 (sequential).
func NewEnricher(
	classifier model.Classifier,
	cache model.ResultCache,
	screener model.Screener,
	key KeyFunc,
	concurrency int,
	logger *slog.Logger,
) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{
		classifier:  classifier,
		cache:       cache,
		screener:    screener,
		key:         key,
		concurrency: concurrency,
		logger:      logger,
	}
}

// OnProgress registers fn to be called as rows complete.
func (e *Enricher) OnProgress(fn ProgressFunc) {
	e.progress = fn
}

// Enrich processes rows with at most concurrency classifier calls in flight.
// The returned slice is index-aligned with rows. Invalid rows are never sent to the
// classifier; after the first authentication failure the remaining rows are marked
// auth_error without further calls.
func (e *Enricher) Enrich(ctx context.Context, rows []model.Row) []model.Outcome {
	outcomes := make([]model.Outcome, len(rows))

	var (
		done     atomic.Int64
		authDown atomic.Bool
		authOnce sync.Once
		authMsg  string
	)

	finish := func(i int, o model.Outcome) {
		outcomes[i] = o
		n := done.Add(1)
		if e.progress != nil {
			e.progress(int(n), len(rows), o)
		}
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, row := range rows {
		if row.Invalid != nil {
			finish(i, model.Outcome{Row: row, Status: model.StatusInvalid, Err: row.Invalid.Error()})
			continue
		}

		g.Go(func() error {
			if authDown.Load() {
				finish(i, model.Outcome{Row: row, Status: model.StatusAuthError, Err: "skipped after authentication failure: " + authMsg})
				return nil
			}

			o := e.enrichRow(ctx, row)
			if o.Status == model.StatusAuthError {
				authOnce.Do(func() {
					authMsg = o.Err
					authDown.Store(true)
					e.logger.Error("authentication failed, skipping remaining rows", "error", o.Err)
				})
			}
			finish(i, o)
			return nil
		})
	}

	// Workers never return errors; per-row failures live on the outcomes.
	_ = g.Wait()
	return outcomes
}

func (e *Enricher) enrichRow(ctx context.Context, row model.Row) model.Outcome {
	rec := row.Record
	o := model.Outcome{Row: row}

	if err := ctx.Err(); err != nil {
		o.Status = model.StatusCancelled
		o.Err = "run cancelled before this row was processed"
		return o
	}

	key := e.key(rec)
	cached, err := e.cache.Get(key)
	if err != nil {
		e.logger.Warn("cache lookup failed", "company", rec.Name, "error", err)
	}
	if cached != nil {
		e.logger.Debug("cache hit", "company", rec.Name, "line", rec.Line)
		return e.succeed(o, *cached)
	}

	res, err := e.classifier.Classify(ctx, rec)
	if err != nil {
		o.Status = model.StatusOf(err)
		o.Err = err.Error()
		e.logger.Warn("enrichment failed",
			"company", rec.Name,
			"line", rec.Line,
			"status", o.Status,
			"error", err,
		)
		return o
	}

	if err := e.cache.Put(key, res); err != nil {
		e.logger.Warn("cache write failed", "company", rec.Name, "error", err)
	}
	return e.succeed(o, res)
}

func (e *Enricher) succeed(o model.Outcome, res model.EnrichmentResult) model.Outcome {
	o.Status = model.StatusOK
	o.Result = &res
	o.Interesting = e.screener.Interesting(o.Row.Record, res)
	e.logger.Debug("enriched company",
		"company", o.Row.Record.Name,
		"growth", res.GrowthPotential,
		"risk", res.RiskLevel,
		"classification", res.Classification,
		"interesting", o.Interesting,
	)
	return o
}

// Process reads inputPath, enriches every row and writes outputPath.
// Input errors (unreadable file, missing required column) are returned before any
// classifier call and before outputPath is created.
func (e *Enricher) Process(ctx context.Context, inputPath, outputPath string) (model.Summary, []model.Outcome, error) {
	in, err := csvio.ReadFile(inputPath)
	if err != nil {
		return model.Summary{}, nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}
	return e.ProcessInput(ctx, in, inputPath, outputPath)
}

// ProcessInput enriches an already loaded input and writes outputPath.
// inputPath is only recorded on the summary.
func (e *Enricher) ProcessInput(ctx context.Context, in *csvio.Input, inputPath, outputPath string) (model.Summary, []model.Outcome, error) {
	started := time.Now()
	e.logger.Info("input loaded", "path", inputPath, "rows", len(in.Rows))

	outcomes := e.Enrich(ctx, in.Rows)

	if err := csvio.WriteFile(outputPath, in.Header, outcomes); err != nil {
		return model.Summary{}, outcomes, fmt.Errorf("writing %s: %w", outputPath, err)
	}

	summary := model.Summarize(outcomes)
	summary.RunID = uuid.NewString()
	summary.Input = inputPath
	summary.Output = outputPath
	summary.StartedAt = started
	summary.Duration = time.Since(started)

	e.logger.Info("enrichment complete",
		"run_id", summary.RunID,
		"total", summary.Total,
		"ok", summary.Succeeded(),
		"failed", summary.Failed(),
		"interesting", len(summary.Interesting),
		"duration", summary.Duration.Round(time.Millisecond).String(),
	)
	return summary, outcomes, nil
}
