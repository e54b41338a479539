package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// recordingSleeper records requested waits without sleeping
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func testPolicy(sleeper *recordingSleeper) RetryPolicy {
	return RetryPolicy{
		Name:     "test",
		MaxRetry: 3,
		Delay:    DefaultDirectRetryDelay,
		Hint:     "strict",
		Sleep:    sleeper.Sleep,
		Logger:   arbor.NewLogger(),
	}
}

func TestRetry_SucceedsOnSecondAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	var seen []Attempt

	got, err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context, a Attempt) Outcome[string] {
		calls++
		seen = append(seen, a)
		if a.Number == 1 {
			return Retryable[string](errors.New("bad json"))
		}
		return Success("ok")
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{DefaultDirectRetryDelay}, sleeper.waits)

	require.Len(t, seen, 2)
	assert.False(t, seen[0].IsRetry())
	assert.Empty(t, seen[0].Hints)
	assert.Equal(t, 2, seen[1].Number)
	assert.Equal(t, []string{"strict"}, seen[1].Hints)
}

func TestRetry_ExhaustsAfterMaxRetry(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	lastErr := errors.New("still broken")

	_, err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context, a Attempt) Outcome[int] {
		calls++
		return Retryable[int](lastErr)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeper.waits, 2)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "test", exhausted.Operation)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, lastErr)
}

func TestRetry_FatalStopsImmediately(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	cfgErr := &ConfigurationError{Strategy: "file", Reason: "business plan required"}

	_, err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context, a Attempt) Outcome[int] {
		calls++
		return Fatal[int](cfgErr)
	})

	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
	assert.Same(t, cfgErr, err)
}

func TestRetry_HonoursRequestedDelay(t *testing.T) {
	sleeper := &recordingSleeper{}

	_, err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context, a Attempt) Outcome[int] {
		if a.Number == 1 {
			return Retryable[int](errors.New("429")).After(30 * time.Second)
		}
		if a.Number == 2 {
			// shorter than the policy delay, policy wins
			return Retryable[int](errors.New("again")).After(time.Millisecond)
		}
		return Success(1)
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second, DefaultDirectRetryDelay}, sleeper.waits)
}

func TestRetry_HintsAreNotDuplicated(t *testing.T) {
	sleeper := &recordingSleeper{}
	var last Attempt

	_, _ = Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context, a Attempt) Outcome[int] {
		last = a
		return Retryable[int](errors.New("x"))
	})

	assert.Equal(t, 3, last.Number)
	assert.Equal(t, []string{"strict"}, last.Hints)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	policy := RetryPolicy{Name: "cancel", MaxRetry: 3, Delay: time.Hour, Logger: arbor.NewLogger()}
	_, err := Retry(ctx, policy, func(ctx context.Context, a Attempt) Outcome[int] {
		calls++
		cancel()
		return Retryable[int](errors.New("x"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestAttempt_NextIsImmutable(t *testing.T) {
	first := Attempt{Number: 1, Hints: []string{"a"}}
	second := first.Next("b")

	assert.Equal(t, []string{"a"}, first.Hints)
	assert.Equal(t, []string{"a", "b"}, second.Hints)
	assert.Equal(t, 2, second.Number)
}
