// Package scheduler runs registered jobs on cron expressions with a seconds field.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/robfig/cron/v3"
)

// ErrDuplicateJob is returned when a job name is registered twice
var ErrDuplicateJob = errors.New("job already registered")

// Job is a unit of scheduled work
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// Entry describes one registered job
type Entry struct {
	Name string
	Spec string
	Next time.Time
}

// Scheduler owns the cron registry.
// A trigger that fires while the previous run of the same job is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  ports.Logger
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]registered
}

type registered struct {
	id   cron.EntryID
	spec string
}

// New creates a scheduler evaluating expressions in UTC. Each run gets timeout.
func New(logger ports.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		timeout: timeout,
		entries: make(map[string]registered),
	}
}

// Register schedules job on spec, e.g. "0 0 6 * * *" for 06:00:00 every day
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name())
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("schedule %s on %q: %w", job.Name(), spec, err)
	}
	s.entries[job.Name()] = registered{id: id, spec: spec}

	s.logger.Info("Job registered",
		ports.String("job", job.Name()),
		ports.String("spec", spec))
	return nil
}

// Entries lists registered jobs sorted by name
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, r := range s.entries {
		out = append(out, Entry{
			Name: name,
			Spec: r.spec,
			Next: s.cron.Entry(r.id).Next,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start begins firing triggers in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", ports.Int("jobs", len(s.Entries())))
}

// Stop prevents new runs and waits for running jobs or ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Info("Job started", ports.String("job", job.Name()))

	if err := job.Execute(ctx); err != nil {
		s.logger.Error("Job failed",
			ports.String("job", job.Name()),
			ports.Duration("elapsed", time.Since(start)),
			ports.Err(err))
		return
	}

	s.logger.Info("Job finished",
		ports.String("job", job.Name()),
		ports.Duration("elapsed", time.Since(start)))
}

// cronLogger routes robfig/cron logs to ports.Logger
type cronLogger struct {
	logger ports.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, toFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(toFields(keysAndValues), ports.Err(err))...)
}

func toFields(keysAndValues []interface{}) []ports.Field {
	fields := make([]ports.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, ports.Any(key, keysAndValues[i+1]))
	}
	return fields
}
