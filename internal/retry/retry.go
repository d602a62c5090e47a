package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/dealscan/internal/model"
)

// MaxRetryAfter caps the wait a server can request through Retry-After.
const MaxRetryAfter = 2 * time.Minute

// Ensure RetryClassifier implements model.Classifier.
var _ model.Classifier = (*RetryClassifier)(nil)

// RetryClassifier is a decorator that retries transient failures with exponential
// backoff and jitter before delegating to the wrapped Classifier.
type RetryClassifier struct {
	inner      model.Classifier
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryClassifier wraps a Classifier with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryClassifier(inner model.Classifier, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryClassifier {
	return &RetryClassifier{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Classify attempts to classify rec, retrying on transient errors.
func (c *RetryClassifier) Classify(ctx context.Context, rec model.CompanyRecord) (model.EnrichmentResult, error) {
	res, err := c.inner.Classify(ctx, rec)
	if err == nil {
		return res, nil
	}

	if !IsRetryable(err) {
		return model.EnrichmentResult{}, err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt, lastErr)

		c.logger.Warn("retrying after transient error",
			"company", rec.Name,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return model.EnrichmentResult{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		res, err = c.inner.Classify(ctx, rec)
		if err == nil {
			return res, nil
		}

		if !IsRetryable(err) {
			return model.EnrichmentResult{}, err
		}
		lastErr = err
	}

	return model.EnrichmentResult{}, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence,
// up to MaxRetryAfter.
func (c *RetryClassifier) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return min(httpErr.RetryAfter, MaxRetryAfter)
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// IsRetryable returns true if the error represents a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation: never retry.
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Malformed output or input — never retry.
	var parseErr *model.ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 429 Too Many Requests — retryable.
		if httpErr.StatusCode == 429 {
			return true
		}
		// 5xx — retryable.
		if httpErr.StatusCode >= 500 {
			return true
		}
		// 4xx (auth, bad request) — not retryable.
		return false
	}

	if errors.Is(err, model.ErrNetwork) {
		return true
	}

	// Anything else (bad response body, empty choices) is treated as transient.
	return !errors.Is(err, context.DeadlineExceeded)
}
