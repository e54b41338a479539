package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// JobFunc is a scheduled unit of work
type JobFunc func(ctx context.Context) error

// JobStatus describes the last execution of a job
type JobStatus struct {
	Name      string
	Schedule  string
	IsRunning bool
	LastRun   *time.Time
	NextRun   *time.Time
	LastError string
}

type jobEntry struct {
	name      string
	schedule  string
	handler   JobFunc
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
	lastError string
}

// Service runs report jobs on cron schedules. Runs never overlap: a tick that
// arrives while another run is in progress is skipped.
type Service struct {
	cron     *cron.Cron
	logger   arbor.ILogger
	ctx      context.Context
	cancel   context.CancelFunc
	jobMu    sync.Mutex // protects jobs
	globalMu sync.Mutex // held while a job executes
	jobs     map[string]*jobEntry
	running  bool
}

// NewService creates a scheduler. Cron expressions have six fields (with seconds)
// or use descriptors such as "@every 1h".
func NewService(logger arbor.ILogger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*jobEntry),
	}
}

// RegisterJob adds a job under name
func (s *Service) RegisterJob(name, schedule string, handler JobFunc) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{name: name, schedule: schedule, handler: handler}
	cronID, err := s.cron.AddFunc(schedule, func() { s.executeJob(name) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}
	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().Str("job_name", name).Str("schedule", schedule).Msg("Job registered")
	return nil
}

// Start begins firing scheduled jobs
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return or ctx to expire
func (s *Service) Stop(ctx context.Context) error {
	if !s.running {
		return nil
	}
	s.cancel()
	stopped := s.cron.Stop()
	s.running = false

	select {
	case <-stopped.Done():
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// TriggerJob runs a job immediately in the caller's goroutine
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.executeJob(name)
	return nil
}

// GetJobStatus returns the status of a job
func (s *Service) GetJobStatus(name string) (*JobStatus, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}

	status := &JobStatus{
		Name:      entry.name,
		Schedule:  entry.schedule,
		IsRunning: entry.isRunning,
		LastRun:   entry.lastRun,
		LastError: entry.lastError,
	}
	if s.running {
		next := s.cron.Entry(entry.cronID).Next
		if !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status, nil
}

// executeJob wraps job execution with the overlap guard, panic recovery and status tracking
func (s *Service) executeJob(name string) {
	if !s.globalMu.TryLock() {
		s.logger.Warn().Str("job_name", name).Msg("Previous run still in progress, skipping")
		return
	}
	defer s.globalMu.Unlock()

	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		return
	}
	entry.isRunning = true
	handler := entry.handler
	s.jobMu.Unlock()

	start := time.Now()
	s.logger.Info().Str("job_name", name).Msg("Job execution started")

	err := s.runHandler(handler)

	finished := time.Now()
	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &finished
	entry.lastError = ""
	if err != nil {
		entry.lastError = err.Error()
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().Str("job_name", name).Err(err).Dur("duration", time.Since(start)).Msg("Job execution failed")
		return
	}
	s.logger.Info().Str("job_name", name).Dur("duration", time.Since(start)).Msg("Job execution completed")
}

func (s *Service) runHandler(handler JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(s.ctx)
}
