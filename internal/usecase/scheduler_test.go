package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"AlertEngine/pkg/cache"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
)

type blockingExecutor struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	err     error
}

func (e *blockingExecutor) Execute(context.Context, string, time.Time) error {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.release != nil {
		<-e.release
	}
	return e.err
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(context.Context, string, time.Time) error { panic("cycle") }

func TestRunCycleIsSingleFlight(t *testing.T) {
	exec := &blockingExecutor{started: make(chan struct{}, 1), release: make(chan struct{})}
	m := newCountingMetrics()
	s := NewScheduler(exec, nil, testConfig(), m, logger.Nop())

	if !s.Trigger(context.Background()) {
		t.Fatalf("first trigger should start")
	}
	<-exec.started
	if !s.Running() {
		t.Fatalf("scheduler should report running")
	}
	if s.RunCycle(context.Background()) {
		t.Fatalf("overlapping cycle must be skipped")
	}
	if s.Trigger(context.Background()) {
		t.Fatalf("overlapping trigger must be skipped")
	}
	close(exec.release)
	s.Stop()

	if exec.calls != 1 {
		t.Fatalf("expected one execution, got %d", exec.calls)
	}
	if m.cyclesSkipped != 2 {
		t.Fatalf("cycles skipped = %d", m.cyclesSkipped)
	}
	if s.Running() {
		t.Fatalf("flag must be released")
	}
	if _, ok := s.LastSuccessfulExecution(); !ok {
		t.Fatalf("last success should be recorded")
	}
}

func TestRunCycleSurvivesFailures(t *testing.T) {
	m := newCountingMetrics()
	s := NewScheduler(&blockingExecutor{err: errBoom}, nil, testConfig(), m, logger.Nop())
	if !s.RunCycle(context.Background()) {
		t.Fatalf("cycle should run")
	}
	if _, ok := s.LastSuccessfulExecution(); ok {
		t.Fatalf("failed cycle must not count as success")
	}

	s = NewScheduler(panickingExecutor{}, nil, testConfig(), m, logger.Nop())
	if !s.RunCycle(context.Background()) {
		t.Fatalf("panicking cycle should still be reported as run")
	}
	if s.Running() {
		t.Fatalf("flag must be released after panic")
	}
	if m.errorCount(metrics.CategoryCycle) != 2 {
		t.Fatalf("cycle errors = %d", m.errorCount(metrics.CategoryCycle))
	}
	if !s.RunCycle(context.Background()) {
		t.Fatalf("scheduler must keep running cycles after a failure")
	}
}

func TestRunCycleHonoursDistributedLock(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Lock.Enabled = true
	lock := cache.NewMemoryCache()
	defer lock.Close()

	exec := &blockingExecutor{}
	m := newCountingMetrics()
	s := NewScheduler(exec, lock, cfg, m, logger.Nop())

	if ok, _ := lock.TryLock(context.Background(), cfg.Scheduler.Lock.Key, time.Minute); !ok {
		t.Fatalf("setup lock")
	}
	if s.RunCycle(context.Background()) {
		t.Fatalf("cycle must be skipped while another replica holds the lock")
	}
	_ = lock.Unlock(context.Background(), cfg.Scheduler.Lock.Key)

	if !s.RunCycle(context.Background()) || exec.calls != 1 {
		t.Fatalf("cycle should run once the lock is free")
	}
	if ok, _ := lock.TryLock(context.Background(), cfg.Scheduler.Lock.Key, time.Minute); !ok {
		t.Fatalf("scheduler must release the lock after the cycle")
	}
}

func TestStartDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Enabled = false
	s := NewScheduler(&blockingExecutor{}, nil, cfg, newCountingMetrics(), logger.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	if s.Enabled() {
		t.Fatalf("expected disabled")
	}
}

func TestStopRefusesLaterCycles(t *testing.T) {
	exec := &blockingExecutor{}
	s := NewScheduler(exec, nil, testConfig(), newCountingMetrics(), logger.Nop())
	s.Stop()

	if s.RunCycle(context.Background()) {
		t.Fatalf("cycle after Stop must be refused")
	}
	if s.Trigger(context.Background()) {
		t.Fatalf("trigger after Stop must be refused")
	}
	if exec.calls != 0 {
		t.Fatalf("expected no executions, got %d", exec.calls)
	}
}

func TestStopRacesWithTriggers(t *testing.T) {
	exec := &blockingExecutor{}
	s := NewScheduler(exec, nil, testConfig(), newCountingMetrics(), logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Trigger(context.Background())
		}()
	}
	s.Stop()
	wg.Wait()

	if s.Running() {
		t.Fatalf("no cycle may still be running after Stop returned")
	}
	if s.Trigger(context.Background()) {
		t.Fatalf("trigger after Stop must be refused")
	}
}
