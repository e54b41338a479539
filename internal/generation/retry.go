package generation

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
)

// Default retry settings
const (
	DefaultMaxRetry           = 3
	DefaultTemplateRetryDelay = 1 * time.Second
	DefaultDirectRetryDelay   = 1500 * time.Millisecond
)

// Attempt is the immutable per-attempt context handed to the attempt function
type Attempt struct {
	Number int      // 1-based
	Hints  []string // correction hints accumulated from earlier failures
}

// Next returns the context for the following attempt, adding hint once
func (a Attempt) Next(hint string) Attempt {
	hints := slices.Clone(a.Hints)
	if hint != "" && !slices.Contains(hints, hint) {
		hints = append(hints, hint)
	}
	return Attempt{Number: a.Number + 1, Hints: hints}
}

// IsRetry reports whether an earlier attempt already failed
func (a Attempt) IsRetry() bool {
	return a.Number > 1
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetryable
	outcomeFatal
)

// Outcome is the tagged result of one attempt: Success, Retryable or Fatal
type Outcome[T any] struct {
	kind  outcomeKind
	value T
	err   error
	delay time.Duration
}

// Success ends the retry loop with v
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{kind: outcomeSuccess, value: v}
}

// Retryable marks a failure worth another attempt
func Retryable[T any](err error) Outcome[T] {
	return Outcome[T]{kind: outcomeRetryable, err: err}
}

// Fatal ends the retry loop with err, unwrapped
func Fatal[T any](err error) Outcome[T] {
	return Outcome[T]{kind: outcomeFatal, err: err}
}

// After asks for at least d before the next attempt
func (o Outcome[T]) After(d time.Duration) Outcome[T] {
	o.delay = d
	return o
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy bounds how often an operation is attempted
type RetryPolicy struct {
	Name     string        // operation name used in logs and RetryExhaustedError
	MaxRetry int           // total attempts, default 3
	Delay    time.Duration // wait between attempts
	Hint     string        // correction hint added to the attempt after a retryable failure
	Sleep    Sleeper       // nil uses SleepContext
	Logger   arbor.ILogger // nil uses the global logger
}

// WithName returns a copy of the policy for a named operation
func (p RetryPolicy) WithName(name string) RetryPolicy {
	p.Name = name
	return p
}

// Retry runs fn until it succeeds, fails fatally or the policy is exhausted.
// Intermediate failures are logged; exhaustion returns *RetryExhaustedError
// wrapping the last failure.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context, attempt Attempt) Outcome[T]) (T, error) {
	var zero T

	maxRetry := p.MaxRetry
	if maxRetry <= 0 {
		maxRetry = DefaultMaxRetry
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = common.GetLogger()
	}

	attempt := Attempt{Number: 1}
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		outcome := fn(ctx, attempt)
		switch outcome.kind {
		case outcomeSuccess:
			if attempt.IsRetry() {
				logger.Info().Str("operation", p.Name).Int("attempt", attempt.Number).Msg("Succeeded after retry")
			}
			return outcome.value, nil
		case outcomeFatal:
			return zero, outcome.err
		}

		lastErr = outcome.err
		if lastErr == nil {
			lastErr = errors.New("attempt failed without an error")
		}

		if attempt.Number >= maxRetry {
			logger.Error().Err(lastErr).Str("operation", p.Name).Int("attempts", attempt.Number).Msg("Retries exhausted")
			return zero, &RetryExhaustedError{Operation: p.Name, Attempts: attempt.Number, LastErr: lastErr}
		}

		wait := p.Delay
		if outcome.delay > wait {
			wait = outcome.delay
		}

		logger.Warn().
			Err(lastErr).
			Str("operation", p.Name).
			Int("attempt", attempt.Number).
			Int("max_retry", maxRetry).
			Dur("wait", wait).
			Msg("Attempt failed, retrying")

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}

		attempt = attempt.Next(p.Hint)
	}
}
