package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRegisterJob(t *testing.T) {
	s := NewService(arbor.NewLogger())

	require.NoError(t, s.RegisterJob("report", "0 0 6 * * *", func(ctx context.Context) error { return nil }))
	assert.Error(t, s.RegisterJob("report", "@every 1h", func(ctx context.Context) error { return nil }))
	assert.Error(t, s.RegisterJob("bad", "not a cron", func(ctx context.Context) error { return nil }))
	assert.Error(t, s.RegisterJob("five-field", "0 6 * * *", func(ctx context.Context) error { return nil }))
}

func TestTriggerJob_TracksStatus(t *testing.T) {
	s := NewService(arbor.NewLogger())
	calls := 0
	require.NoError(t, s.RegisterJob("report", "@every 1h", func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return errors.New("retrieval unavailable")
		}
		if calls == 3 {
			panic("boom")
		}
		return nil
	}))

	require.NoError(t, s.TriggerJob("report"))
	status, err := s.GetJobStatus("report")
	require.NoError(t, err)
	assert.NotNil(t, status.LastRun)
	assert.Empty(t, status.LastError)
	assert.False(t, status.IsRunning)

	require.NoError(t, s.TriggerJob("report"))
	status, _ = s.GetJobStatus("report")
	assert.Equal(t, "retrieval unavailable", status.LastError)

	require.NoError(t, s.TriggerJob("report"))
	status, _ = s.GetJobStatus("report")
	assert.Equal(t, "panic: boom", status.LastError)

	assert.Error(t, s.TriggerJob("missing"))
	_, err = s.GetJobStatus("missing")
	assert.Error(t, err)
}

func TestExecuteJob_SkipsOverlappingRuns(t *testing.T) {
	s := NewService(arbor.NewLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	require.NoError(t, s.RegisterJob("report", "@every 1h", func(ctx context.Context) error {
		calls++
		close(started)
		<-release
		return nil
	}))

	done := make(chan struct{})
	go func() {
		_ = s.TriggerJob("report")
		close(done)
	}()
	<-started

	require.NoError(t, s.TriggerJob("report"))
	close(release)
	<-done

	assert.Equal(t, 1, calls)
}

func TestStartStop(t *testing.T) {
	s := NewService(arbor.NewLogger())
	var gotCtx context.Context
	require.NoError(t, s.RegisterJob("report", "@every 1h", func(ctx context.Context) error {
		gotCtx = ctx
		return nil
	}))

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	status, err := s.GetJobStatus("report")
	require.NoError(t, err)
	require.NotNil(t, status.NextRun)
	assert.True(t, status.NextRun.After(time.Now()))

	require.NoError(t, s.TriggerJob("report"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Error(t, gotCtx.Err())
}
