package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultRateLimitBackoff is used when a rate limit error carries no retry hint
const DefaultRateLimitBackoff = 45 * time.Second

// RateLimitError wraps a 429 / RESOURCE_EXHAUSTED response with the back-off
// the API asked for
type RateLimitError struct {
	Delay time.Duration
	Err   error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry in %s): %v", e.Delay, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RetryAfter reports how long to wait before the next attempt
func (e *RateLimitError) RetryAfter() time.Duration { return e.Delay }

// QuotaExhaustedError is a quota with limit 0; waiting does not help
type QuotaExhaustedError struct {
	Err error
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted (limit: 0), check billing/plan for this model: %v", e.Err)
}

func (e *QuotaExhaustedError) Unwrap() error { return e.Err }

// Permanent marks the error as not retryable
func (e *QuotaExhaustedError) Permanent() bool { return true }

// IsRateLimitError checks if an error is a Gemini rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}

var quotaLimitZeroRegex = regexp.MustCompile(`(?i)limit:\s*0\b`)

// IsQuotaExhaustedError reports a rate limit error whose quota limit is 0
func IsQuotaExhaustedError(err error) bool {
	return IsRateLimitError(err) && quotaLimitZeroRegex.MatchString(err.Error())
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s"]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from a Gemini error.
// Returns 0 if no delay is found in the error message.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// classifyError turns raw API errors into typed errors the retry layer understands
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return err
	}
	if IsQuotaExhaustedError(err) {
		return &QuotaExhaustedError{Err: err}
	}
	if IsRateLimitError(err) {
		delay := ExtractRetryDelay(err)
		if delay <= 0 {
			delay = DefaultRateLimitBackoff
		}
		return &RateLimitError{Delay: delay, Err: err}
	}
	return err
}
