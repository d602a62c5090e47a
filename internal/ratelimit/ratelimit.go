package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/dealscan/internal/model"
)

// Ensure RateLimitedClassifier implements model.Classifier.
var _ model.Classifier = (*RateLimitedClassifier)(nil)

// NewLimiter builds a token bucket allowing requestsPerMinute calls with the given burst.
// A non-positive requestsPerMinute disables limiting.
func NewLimiter(requestsPerMinute float64, burst int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/requestsPerMinute)), burst)
}

// RateLimitedClassifier is a decorator that waits for the shared limiter
// before delegating to the wrapped Classifier. Workers share one limiter so the
// configured rate holds across the whole run.
type RateLimitedClassifier struct {
	inner   model.Classifier
	limiter *rate.Limiter
}

// NewRateLimitedClassifier wraps a Classifier with request rate limiting.
func NewRateLimitedClassifier(inner model.Classifier, limiter *rate.Limiter) *RateLimitedClassifier {
	return &RateLimitedClassifier{
		inner:   inner,
		limiter: limiter,
	}
}

// Classify waits for the rate limiter to allow a request, then delegates to
// the wrapped classifier.
func (c *RateLimitedClassifier) Classify(ctx context.Context, rec model.CompanyRecord) (model.EnrichmentResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.EnrichmentResult{}, fmt.Errorf("rate limiter wait: %w", err)
	}
	return c.inner.Classify(ctx, rec)
}
