package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/metrics"
	"github.com/dafibh/kredo/kredo-backend/internal/util"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RunLock guards batch accrual across service instances
type RunLock interface {
	// Acquire returns ok=false when another holder owns the lock
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// RunArchiver stores a copy of each recorded run outside the database
type RunArchiver interface {
	ArchiveRun(ctx context.Context, run *domain.AccrualRun) (string, error)
}

// AccrualScheduler is a background worker that accrues all active loans once a day
type AccrualScheduler struct {
	loanService *LoanService
	runRepo     domain.AccrualRunRepository
	runLock     RunLock
	archiver    RunArchiver
	metrics     *metrics.LedgerMetrics
	logger      zerolog.Logger
	runAt       time.Duration
	now         func() time.Time
	runMu       sync.Mutex
	stopCh      chan struct{}
	doneCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// AccrualSchedulerConfig holds configuration for the accrual scheduler
type AccrualSchedulerConfig struct {
	RunAt time.Duration // Offset from UTC midnight
}

// DefaultAccrualSchedulerConfig returns the default daily run at 00:05 UTC
func DefaultAccrualSchedulerConfig() AccrualSchedulerConfig {
	return AccrualSchedulerConfig{
		RunAt: 5 * time.Minute,
	}
}

// NewAccrualScheduler creates a new accrual scheduler
func NewAccrualScheduler(
	loanService *LoanService,
	runRepo domain.AccrualRunRepository,
	logger zerolog.Logger,
	config AccrualSchedulerConfig,
) *AccrualScheduler {
	if config.RunAt < 0 || config.RunAt >= 24*time.Hour {
		config.RunAt = DefaultAccrualSchedulerConfig().RunAt
	}

	return &AccrualScheduler{
		loanService: loanService,
		runRepo:     runRepo,
		logger:      logger.With().Str("component", "accrual_scheduler").Logger(),
		runAt:       config.RunAt,
		now:         time.Now,
	}
}

// SetRunLock enables the cross-instance run lock
func (s *AccrualScheduler) SetRunLock(lock RunLock) {
	s.runLock = lock
}

// SetArchiver enables archiving of run reports
func (s *AccrualScheduler) SetArchiver(archiver RunArchiver) {
	s.archiver = archiver
}

// SetMetrics sets the collectors updated after each run
func (s *AccrualScheduler) SetMetrics(m *metrics.LedgerMetrics) {
	s.metrics = m
}

// SetClock replaces the wall clock used to compute the next run
func (s *AccrualScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the daily schedule
func (s *AccrualScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stopCh, s.doneCh = stop, done
	s.mu.Unlock()

	s.logger.Info().
		Dur("run_at", s.runAt).
		Time("next_run", util.NextDailyRun(s.now(), s.runAt)).
		Msg("Starting accrual scheduler")

	go s.run(ctx, stop, done)
}

// Stop gracefully stops the scheduler, waiting for an in-flight run.
// Concurrent callers all wait for the same shutdown. The scheduler can be
// started again afterwards.
func (s *AccrualScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stop, done := s.stopCh, s.doneCh
	s.stopCh = nil
	s.mu.Unlock()

	if stop == nil {
		<-done
		return
	}

	s.logger.Info().Msg("Stopping accrual scheduler")
	close(stop)
	<-done
	s.logger.Info().Msg("Accrual scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *AccrualScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the main loop for the scheduler
func (s *AccrualScheduler) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.stopCh = nil
		s.mu.Unlock()
	}()

	for {
		now := s.now()
		timer := time.NewTimer(util.NextDailyRun(now, s.runAt).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			s.trigger(ctx)
		}
	}
}

// trigger performs one scheduled run; errors and panics end here
func (s *AccrualScheduler) trigger(ctx context.Context) {
	_, run, err := s.execute(ctx, domain.AccrualTriggerScheduled)
	switch {
	case errors.Is(err, domain.ErrAccrualInProgress):
		s.logger.Warn().Msg("Accrual run already in progress, skipping trigger")
	case err != nil:
		s.logger.Error().Err(err).Msg("Scheduled accrual run failed")
	default:
		s.logger.Info().
			Int("loans_processed", run.LoansProcessed).
			Int("loans_failed", run.LoansFailed).
			Str("total_interest", run.TotalInterest.StringFixed(2)).
			Msg("Scheduled accrual run completed")
	}
}

// RunNow runs the batch immediately. It fails with ErrAccrualInProgress when
// a run is already in flight here or on another instance.
func (s *AccrualScheduler) RunNow(ctx context.Context) ([]domain.AccrualResult, *domain.AccrualRun, error) {
	s.logger.Info().Msg("Manual accrual run triggered")
	return s.execute(ctx, domain.AccrualTriggerManual)
}

// LatestRun returns the most recent recorded run
func (s *AccrualScheduler) LatestRun(ctx context.Context) (*domain.AccrualRun, error) {
	return s.runRepo.GetLatest(ctx)
}

func (s *AccrualScheduler) execute(ctx context.Context, trigger domain.AccrualTrigger) (results []domain.AccrualResult, run *domain.AccrualRun, err error) {
	if !s.runMu.TryLock() {
		return nil, nil, domain.ErrAccrualInProgress
	}
	defer s.runMu.Unlock()

	if s.runLock != nil {
		token, ok, lockErr := s.runLock.Acquire(ctx)
		if lockErr != nil {
			return nil, nil, fmt.Errorf("acquire run lock: %w", lockErr)
		}
		if !ok {
			return nil, nil, domain.ErrAccrualInProgress
		}
		defer func() {
			if relErr := s.runLock.Release(context.WithoutCancel(ctx), token); relErr != nil {
				s.logger.Warn().Err(relErr).Msg("Failed to release run lock")
			}
		}()
	}

	startedAt := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("trigger", string(trigger)).
				Msg("Accrual run panicked")
			s.metrics.ObserveRun(string(trigger), "panicked", s.now().Sub(startedAt))
			results, run, err = nil, nil, fmt.Errorf("accrual run panicked: %v", r)
		}
	}()

	results, err = s.loanService.AccrueAllLoans(ctx)
	run = s.summarize(trigger, startedAt, s.now(), results, err)

	outcome := "completed"
	if err != nil {
		outcome = "failed"
	} else if run.LoansFailed > 0 {
		outcome = "partial"
	}
	s.metrics.ObserveRun(string(trigger), outcome, run.FinishedAt.Sub(run.StartedAt))

	recorded, recErr := s.runRepo.Create(context.WithoutCancel(ctx), run)
	if recErr != nil {
		s.logger.Error().Err(recErr).Msg("Failed to record accrual run")
	} else {
		run = recorded
	}

	if s.archiver != nil {
		key, archErr := s.archiver.ArchiveRun(context.WithoutCancel(ctx), run)
		if archErr != nil {
			s.logger.Warn().Err(archErr).Int64("run_id", run.ID).Msg("Failed to archive accrual run")
		} else {
			s.logger.Debug().Str("key", key).Int64("run_id", run.ID).Msg("Archived accrual run")
		}
	}

	return results, run, err
}

// summarize builds the audit record for a finished batch
func (s *AccrualScheduler) summarize(trigger domain.AccrualTrigger, startedAt, finishedAt time.Time, results []domain.AccrualResult, batchErr error) *domain.AccrualRun {
	total := decimal.Zero
	failures := make(map[string]string)
	overdue := make([]string, 0)

	for _, r := range results {
		if !r.OK() {
			failures[r.LoanID.String()] = r.Err.Error()
			continue
		}
		total = total.Add(r.Interest)
		// The batch only picks ACTIVE loans, so OVERDUE here is a fresh transition
		if r.Loan != nil && r.Loan.Status == domain.LoanStatusOverdue {
			overdue = append(overdue, r.LoanID.String())
		}
	}

	summary := map[string]any{
		"failures":  failures,
		"overdue":   overdue,
		"elapsedMs": finishedAt.Sub(startedAt).Milliseconds(),
	}
	if batchErr != nil {
		summary["error"] = batchErr.Error()
	}

	return &domain.AccrualRun{
		RunDate:        util.StartOfDayUTC(startedAt),
		Trigger:        trigger,
		StartedAt:      startedAt.UTC(),
		FinishedAt:     finishedAt.UTC(),
		LoansProcessed: len(results),
		LoansFailed:    len(failures),
		TotalInterest:  total,
		Summary:        summary,
	}
}
