package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAuth is returned when the completion service rejects the credential.
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited is returned when the completion service answers 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrNetwork wraps transport-level failures (DNS, connection reset, timeouts).
	ErrNetwork = errors.New("network error")
	// ErrMissingColumn is returned when the input header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAuth) and errors.Is(err, ErrRateLimited) match on status code.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.StatusCode == 401 || e.StatusCode == 403
	case ErrRateLimited:
		return e.StatusCode == 429
	}
	return false
}

// ParseError reports model output that did not follow the expected labeled structure.
type ParseError struct {
	Missing []string // required sections that were absent or empty
	Reason  string   // first malformed value, if any
}

func (e *ParseError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing sections: "+strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(parts) == 0 {
		return "unparseable model output"
	}
	return "unparseable model output: " + strings.Join(parts, "; ")
}

// ValidationError describes a row that cannot be sent to the classifier.
type ValidationError struct {
	Line     int
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, strings.Join(e.Problems, "; "))
}

// StatusOf maps an error returned by a classifier to the row status written to the output.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var pe *ParseError
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return StatusInvalid
	case errors.As(err, &pe):
		return StatusParseError
	case errors.Is(err, ErrAuth):
		return StatusAuthError
	case errors.Is(err, ErrRateLimited):
		return StatusRateLimited
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	default:
		return StatusAPIError
	}
}
