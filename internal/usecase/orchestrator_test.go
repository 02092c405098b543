package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/evaluator"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
)

type orchestratorFixture struct {
	store   *memStore
	source  *stubSource
	eval    *stubEvaluator
	sink    *recordingPersister
	metrics *countingMetrics
	orch    *CycleOrchestrator
}

func newOrchestratorFixture(rules ...models.AlertRule) *orchestratorFixture {
	f := &orchestratorFixture{
		store:   newMemStore(rules...),
		source:  &stubSource{candles: dailyCandles(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 101, 102)},
		eval:    &stubEvaluator{fire: map[uuid.UUID]evaluator.Result{}, panics: map[uuid.UUID]bool{}},
		sink:    &recordingPersister{},
		metrics: newCountingMetrics(),
	}
	cfg := testConfig()
	fetcher := NewGroupFetcher(f.source, cfg, f.metrics, logger.Nop())
	runner := NewRuleRunner(f.eval, f.metrics, logger.Nop())
	f.orch = NewCycleOrchestrator(f.store.Rules(), fetcher, runner, f.sink, cfg, f.metrics, logger.Nop())
	return f
}

func fire(fp string) evaluator.Result {
	return evaluator.Result{Triggered: true, Severity: models.SeverityWarning, Fingerprint: fp}
}

func TestExecuteFetchesEachGroupOnce(t *testing.T) {
	a1, a2 := newRule("AAPL", models.D1), newRule("AAPL", models.D1)
	b := newRule("MSFT", models.D1)
	f := newOrchestratorFixture(a1, a2, b)

	if err := f.orch.Execute(context.Background(), "c1", time.Now()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.source.calls != 2 {
		t.Fatalf("expected one fetch per group, got %d", f.source.calls)
	}
	if f.eval.calls != 3 {
		t.Fatalf("expected every rule evaluated, got %d", f.eval.calls)
	}
	if f.metrics.groupsProcessed != 2 {
		t.Fatalf("groups processed = %d", f.metrics.groupsProcessed)
	}
}

func TestExecuteSkipsUnsupportedTimeframeGroup(t *testing.T) {
	bad1, bad2 := newRule("AAPL", models.Timeframe("W1")), newRule("AAPL", models.Timeframe("W1"))
	f := newOrchestratorFixture(bad1, bad2)
	f.eval.fire[bad1.ID] = fire("x")

	if err := f.orch.Execute(context.Background(), "c1", time.Now()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.eval.calls != 0 {
		t.Fatalf("no evaluator may run for a skipped group, got %d calls", f.eval.calls)
	}
	if f.metrics.errorCount(metrics.CategoryUnsupportedTimeframe) != 1 {
		t.Fatalf("unsupported_timeframe = %d", f.metrics.errorCount(metrics.CategoryUnsupportedTimeframe))
	}
	if len(f.sink.calls) != 0 {
		t.Fatalf("nothing should be persisted")
	}
}

func TestExecuteIsolatesPanickingRule(t *testing.T) {
	bad, good := newRule("AAPL", models.D1), newRule("AAPL", models.D1)
	f := newOrchestratorFixture(bad, good)
	f.eval.panics[bad.ID] = true
	f.eval.fire[good.ID] = fire("good")

	if err := f.orch.Execute(context.Background(), "c1", time.Now()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(f.sink.calls) != 1 || f.sink.calls[0] != good.ID {
		t.Fatalf("sibling rule should still persist, got %v", f.sink.calls)
	}
	if f.metrics.errorCount(metrics.CategoryEvaluation) != 1 {
		t.Fatalf("panic should be counted as evaluation error")
	}
}

func TestExecuteDebounce(t *testing.T) {
	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	debounce := int64(3600)

	cases := []struct {
		name    string
		at      time.Time
		persist bool
	}{
		{"half window", last.Add(30 * time.Minute), false},
		{"exact window", last.Add(time.Hour), true},
		{"one and a half windows", last.Add(90 * time.Minute), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := newRule("AAPL", models.D1)
			rule.DebounceSecs = &debounce
			rule.LastTriggeredAt = &last
			f := newOrchestratorFixture(rule)
			f.eval.fire[rule.ID] = fire("fp")

			if err := f.orch.Execute(context.Background(), "c1", tc.at); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got := len(f.sink.calls) == 1; got != tc.persist {
				t.Fatalf("persisted=%v, want %v", got, tc.persist)
			}
		})
	}
}

func TestExecuteWithoutRules(t *testing.T) {
	f := newOrchestratorFixture()
	if err := f.orch.Execute(context.Background(), "c1", time.Now()); err != nil {
		t.Fatalf("empty cycle must not fail: %v", err)
	}
	if f.source.calls != 0 {
		t.Fatalf("no fetch expected")
	}
}

func TestExecutePropagatesRuleLoadFailure(t *testing.T) {
	f := newOrchestratorFixture(newRule("AAPL", models.D1))
	f.store.findErr = errBoom
	if err := f.orch.Execute(context.Background(), "c1", time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSecondCycleOnSameBarSkipsStorage(t *testing.T) {
	rule := newRule("AAPL", models.D1)
	store := newMemStore(rule)
	m := newCountingMetrics()
	cfg := testConfig()
	bar := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	ev := &stubEvaluator{fire: map[uuid.UUID]evaluator.Result{}}
	source := &stubSource{candles: dailyCandles(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 101, 102)}
	sink := NewEventSink(store, &recordingNotifier{}, newMemoryState(), m, logger.Nop())
	orch := NewCycleOrchestrator(store.Rules(), NewGroupFetcher(source, cfg, m, logger.Nop()),
		NewRuleRunner(ev, m, logger.Nop()), sink, cfg, m, logger.Nop())

	for i, fp := range []string{"fp-cycle-1", "fp-cycle-2"} {
		ev.fire[rule.ID] = evaluator.Result{
			Triggered:   true,
			Severity:    models.SeverityInfo,
			Fingerprint: fp,
			Payload:     evaluator.NewPayload().PutTime("asOf", &bar),
		}
		if err := orch.Execute(context.Background(), "c", bar.Add(time.Duration(i+1)*time.Hour)); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	if store.inserts != 1 {
		t.Fatalf("second cycle should short-circuit before storage, got %d inserts", store.inserts)
	}
}
