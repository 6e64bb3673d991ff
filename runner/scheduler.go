package runner

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/push-dispatcher/models"
)

// Scheduler runs the dispatch job on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc

	mu   sync.RWMutex
	last *models.RunReport
}

// NewScheduler creates a new scheduler instance. Each run is bounded by timeout.
func NewScheduler(runner *Runner, timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		runner:  runner,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the dispatch job with the cron schedule and starts the scheduler
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.processNotifications); err != nil {
		zap.S().Errorw("failed to register notification dispatch job", "schedule", schedule, "error", err)
		return err
	}

	s.cron.Start()
	zap.S().Infow("notification dispatch scheduler started", "schedule", schedule)
	return nil
}

// Stop stops the scheduler. A run in progress is cancelled and Stop waits for
// it to record the notification it is working on.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("notification dispatch scheduler stopped")
}

// LastReport returns the report of the most recent finished run
func (s *Scheduler) LastReport() (models.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.RunReport{}, false
	}
	return *s.last, true
}

func (s *Scheduler) processNotifications() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	report, err := s.runner.Run(ctx)
	if err != nil {
		zap.S().Errorw("notification dispatch run failed", "runId", report.RunID, "error", err)
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
}
