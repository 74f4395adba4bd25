package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

// DefaultSpec regenerates every explanation at 03:00 each day.
const DefaultSpec = "0 0 3 * * *"

// Regenerator rebuilds every stored explanation.
type Regenerator interface {
	RegenerateAndWait(ctx context.Context) (models.RegenerateResult, error)
}

// Scheduler runs the regenerate-all job on a cron schedule.
type Scheduler struct {
	regen   Regenerator
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	entry   cron.EntryID
	started bool
}

// New creates a scheduler. timeout bounds a single run; zero means one hour.
func New(regen Regenerator, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &Scheduler{
		regen:   regen,
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
	}
}

// Start registers the job with a six-field cron spec and starts the clock.
func (s *Scheduler) Start(spec string) error {
	if s.regen == nil {
		return errors.New("scheduler: regenerator is required")
	}
	if spec == "" {
		spec = DefaultSpec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler: already started")
	}

	id, err := s.cron.AddFunc(spec, s.RunNow)
	if err != nil {
		return err
	}
	s.entry = id
	s.started = true
	s.cron.Start()
	s.logger.Info("regeneration scheduler started", slog.String("spec", spec))
	return nil
}

// Next reports when the job fires next. It is zero before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop halts the clock and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("regeneration scheduler stopped")
}

// RunNow regenerates synchronously.
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("scheduled regeneration starting")
	result, err := s.regen.RegenerateAndWait(ctx)
	if errors.Is(err, utils.ErrAlreadyRunning) {
		s.logger.Info("scheduled regeneration skipped, previous run still in flight")
		return
	}
	if err != nil {
		s.logger.Error("scheduled regeneration failed",
			slog.Int("sets", result.Count),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return
	}
	s.logger.Info("scheduled regeneration completed",
		slog.Int("sets", result.Count),
		slog.Duration("duration", time.Since(start)))
}
