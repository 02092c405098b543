package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"AlertEngine/internal/domain/repository"
	"AlertEngine/pkg/config"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
)

// CycleExecutor runs one evaluation cycle.
type CycleExecutor interface {
	Execute(ctx context.Context, cycleID string, startedAt time.Time) error
}

// Scheduler drives cycles on a fixed cadence and guarantees at most one
// cycle in flight. Overlapping triggers are dropped, not queued.
type Scheduler struct {
	executor CycleExecutor
	lock     repository.CycleLock
	lockKey  string
	lockTTL  time.Duration
	enabled  bool
	cadence  time.Duration
	cron     *gocron.Scheduler
	metrics  repository.Metrics
	log      *logger.Logger
	now      func() time.Time

	running     atomic.Bool
	lastSuccess atomic.Int64

	// mu orders inflight.Add against Stop's Wait.
	mu       sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}

// NewScheduler builds a scheduler. lock may be nil; it is only consulted
// when scheduler.lock.enabled is set.
func NewScheduler(executor CycleExecutor, lock repository.CycleLock, cfg *config.Config, m repository.Metrics, log *logger.Logger) *Scheduler {
	s := &Scheduler{
		executor: executor,
		lockKey:  cfg.Scheduler.Lock.Key,
		lockTTL:  cfg.Scheduler.Lock.TTL,
		enabled:  cfg.Scheduler.Enabled,
		cadence:  cfg.Scheduler.Cadence,
		cron:     gocron.NewScheduler(time.UTC),
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
	if cfg.Scheduler.Lock.Enabled {
		s.lock = lock
	}
	return s
}

// Start registers the cadence job. It is a no-op when scheduling is disabled.
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.log.Info("alert-scheduler-disabled")
		return nil
	}
	if _, err := s.cron.Every(s.cadence).Do(func() { s.RunCycle(context.Background()) }); err != nil {
		return fmt.Errorf("schedule alert cycle: %w", err)
	}
	s.cron.StartAsync()
	s.log.Info("alert-scheduler-started", logger.Duration("cadence", s.cadence))
	return nil
}

// Stop halts the cadence and waits for an in-flight cycle to finish. Cycles
// requested afterwards are refused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	s.cron.Stop()
	s.inflight.Wait()
	s.log.Info("alert-scheduler-stopped")
}

// RunCycle runs one cycle synchronously. It returns false when the cycle was
// skipped because another one is in flight here or on another replica.
func (s *Scheduler) RunCycle(ctx context.Context) bool {
	if !s.acquire() {
		return false
	}
	defer s.release()
	return s.run(ctx)
}

// Trigger starts one cycle in the background and reports whether it started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.acquire() {
		return false
	}
	go func() {
		defer s.release()
		s.run(ctx)
	}()
	return true
}

func (s *Scheduler) Running() bool { return s.running.Load() }

func (s *Scheduler) Enabled() bool { return s.enabled }

// LastSuccessfulExecution returns the start time of the last cycle that
// completed without error.
func (s *Scheduler) LastSuccessfulExecution() (time.Time, bool) {
	ns := s.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns).UTC(), true
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		s.log.Info("alert-eval-cycle-skipped", logger.String("reason", "stopping"))
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.IncCyclesSkipped()
		s.log.Info("alert-eval-cycle-skipped", logger.String("reason", "in-flight"))
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Scheduler) release() {
	s.running.Store(false)
	s.inflight.Done()
}

func (s *Scheduler) run(ctx context.Context) bool {
	if s.lock != nil {
		ok, err := s.lock.TryLock(ctx, s.lockKey, s.lockTTL)
		switch {
		case err != nil:
			s.log.Warn("cycle-lock-unavailable", logger.Error(err))
		case !ok:
			s.metrics.IncCyclesSkipped()
			s.log.Info("alert-eval-cycle-skipped", logger.String("reason", "locked"))
			return false
		default:
			defer func() {
				if err := s.lock.Unlock(context.Background(), s.lockKey); err != nil {
					s.log.Warn("cycle-unlock-failed", logger.Error(err))
				}
			}()
		}
	}

	cycleID := uuid.NewString()
	startedAt := s.now().UTC()
	log := s.log.With(logger.String("cycle_id", cycleID))
	log.Info("alert-eval-cycle-start")

	err := s.execute(ctx, cycleID, startedAt)
	elapsed := s.now().Sub(startedAt)
	s.metrics.RecordCycleLatency(elapsed)
	if err != nil {
		s.metrics.RecordError(metrics.CategoryCycle)
		log.Error("alert-eval-cycle-error", logger.Error(err), logger.Duration("elapsed", elapsed))
		return true
	}

	s.lastSuccess.Store(startedAt.UnixNano())
	s.metrics.SetLastSuccess(startedAt)
	log.Info("alert-eval-cycle-success", logger.Duration("elapsed", elapsed))
	return true
}

func (s *Scheduler) execute(ctx context.Context, cycleID string, startedAt time.Time) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panic: %v", p)
		}
	}()
	return s.executor.Execute(ctx, cycleID, startedAt)
}
