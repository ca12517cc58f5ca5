// Package schedule runs refreshes periodically on cron schedules.
//
// A failed job is logged and left for its next scheduled time; it is never
// retried early, since an overwrite is not known to be safe to repeat.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/logging"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Entry describes a registered job.
type Entry struct {
	ID   cron.EntryID
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

// Scheduler manages cron-based job execution.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	entries map[cron.EntryID]Entry
	running sync.WaitGroup
}

// New creates a scheduler. Jobs receive a context derived from ctx that is
// cancelled by Stop. Overlapping runs of the same job are skipped.
func New(ctx context.Context, opts ...cron.Option) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	opts = append([]cron.Option{
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	}, opts...)
	return &Scheduler{
		cron:    cron.New(opts...),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[cron.EntryID]Entry),
	}
}

// Add registers job under name on the standard five-field cron spec (or a
// descriptor such as "@hourly" or "@every 15m").
func (s *Scheduler) Add(name, spec string, job Job) (cron.EntryID, error) {
	if job == nil {
		return 0, errors.NewValidationError("job", name, "job is required")
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return 0, errors.NewValidationError("schedule", spec, err.Error())
	}

	s.mu.Lock()
	s.entries[id] = Entry{ID: id, Name: name, Spec: spec}
	s.mu.Unlock()

	logging.FromContext(s.ctx).Info().Str("job", name).Str("schedule", spec).Msg("Scheduled job")
	return id, nil
}

func (s *Scheduler) run(name string, job Job) {
	s.running.Add(1)
	defer s.running.Done()

	ctx := logging.WithField(s.ctx, "job", name)
	logger := logging.FromContext(ctx)
	start := time.Now()
	logger.Info().Msg("Running scheduled job")

	if err := job(ctx); err != nil {
		logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled job failed")
		return
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("Scheduled job finished")
}

// Entries returns the registered jobs with their next and previous run
// times.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, ce := range s.cron.Entries() {
		e, ok := s.entries[ce.ID]
		if !ok {
			continue
		}
		e.Next = ce.Next
		e.Prev = ce.Prev
		out = append(out, e)
	}
	return out
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	logging.FromContext(s.ctx).Info().Int("jobs", len(s.Entries())).Msg("Scheduler started")
}

// Stop stops scheduling new runs, cancels running jobs and waits for them
// to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
	case <-ctx.Done():
		return &errors.TimeoutError{Operation: "scheduler stop", Message: "jobs still running"}
	}
	s.running.Wait()
	logging.FromContext(s.ctx).Info().Msg("Scheduler stopped")
	return nil
}
