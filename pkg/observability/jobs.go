package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one run of a scheduled job
type JobFunc func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules. Each run gets its own
// timeout, is recovered from panics and is counted in JobRunsTotal.
type Scheduler struct {
	cron    *cron.Cron
	logger  *Logger
	metrics *Metrics
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler creates a scheduler. metrics may be nil.
func NewScheduler(logger *Logger, metrics *Metrics, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
		entries: make(map[string]cron.EntryID),
	}
}

// Add schedules fn under name. An empty schedule leaves the job disabled.
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	if schedule == "" {
		s.logger.WithField("job", name).Info("job disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already scheduled", name)
	}
	id, err := s.cron.AddFunc(schedule, func() { s.RunNow(context.Background(), name, fn) })
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}
	s.entries[name] = id
	s.logger.WithFields(map[string]interface{}{"job": name, "schedule": schedule}).Info("job scheduled")
	return nil
}

// Jobs returns the names of scheduled jobs
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// RunNow executes fn once, synchronously, with the same bookkeeping as a
// scheduled run.
func (s *Scheduler) RunNow(ctx context.Context, name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := s.logger.WithField("job", name)
	status := "ok"
	defer func() {
		if s.metrics != nil {
			s.metrics.JobRunsTotal.WithLabelValues(name, status).Inc()
		}
	}()
	defer RecoverPanicWithCallback(logger, name, func(interface{}) { status = "panic" })

	start := time.Now()
	if err := fn(ctx); err != nil {
		status = "error"
		logger.WithError(err).Error("job failed")
		return
	}
	logger.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("job complete")
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
