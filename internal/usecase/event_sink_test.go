package usecase

import (
	"context"
	"testing"
	"time"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/evaluator"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
)

var sinkNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func firedResult(fp string, bar time.Time, sev models.Severity) evaluator.Result {
	return evaluator.Result{
		Triggered:   true,
		Severity:    sev,
		Fingerprint: fp,
		Payload:     evaluator.NewPayload().PutFloat("close", 102).PutTime("asOf", &bar),
	}
}

func TestPersistIsIdempotentPerFingerprint(t *testing.T) {
	rule := newRule("AAPL", models.D1)
	store := newMemStore(rule)
	notifier := &recordingNotifier{}
	m := newCountingMetrics()
	bar := sinkNow.Add(-time.Hour)
	res := firedResult("fp-1", bar, models.SeverityWarning)

	first := NewEventSink(store, notifier, newMemoryState(), m, logger.Nop()).
		Persist(context.Background(), "c1", &rule, sinkNow, res)
	if first.Outcome != SinkPersisted || first.Event == nil {
		t.Fatalf("first persist: %+v", first)
	}
	if rule.LastTriggeredAt == nil || !rule.LastTriggeredAt.Equal(sinkNow) {
		t.Fatalf("lastTriggeredAt not updated: %v", rule.LastTriggeredAt)
	}

	// A fresh cache forces the storage-level guard.
	second := NewEventSink(store, notifier, newMemoryState(), m, logger.Nop()).
		Persist(context.Background(), "c2", &rule, sinkNow.Add(time.Minute), res)
	if second.Outcome != SinkIdempotent {
		t.Fatalf("second persist: %+v", second)
	}

	if len(store.events) != 1 {
		t.Fatalf("expected one stored event, got %d", len(store.events))
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
	if m.alertsTriggered != 1 {
		t.Fatalf("alerts triggered = %d", m.alertsTriggered)
	}
	stored := store.events[eventKey(rule.ID, "fp-1")]
	if !stored.Sent || store.markedSent != 1 {
		t.Fatalf("event should be marked sent once, got sent=%v marks=%d", stored.Sent, store.markedSent)
	}
	if store.rules[rule.ID].LastTriggeredAt == nil {
		t.Fatalf("rule was not saved with lastTriggeredAt")
	}
}

func TestPersistShortCircuitsOnKnownBar(t *testing.T) {
	rule := newRule("AAPL", models.D1)
	store := newMemStore(rule)
	sink := NewEventSink(store, &recordingNotifier{}, newMemoryState(), newCountingMetrics(), logger.Nop())
	bar := sinkNow.Add(-time.Hour)

	if got := sink.Persist(context.Background(), "c1", &rule, sinkNow, firedResult("fp-1", bar, models.SeverityInfo)); got.Outcome != SinkPersisted {
		t.Fatalf("first persist: %+v", got)
	}
	// Different fingerprint, same bar: the cache answers without touching storage.
	if got := sink.Persist(context.Background(), "c2", &rule, sinkNow, firedResult("fp-2", bar, models.SeverityInfo)); got.Outcome != SinkIdempotent {
		t.Fatalf("second persist: %+v", got)
	}
	if store.inserts != 1 {
		t.Fatalf("expected a single insert attempt, got %d", store.inserts)
	}
}

func TestPersistSeverityGate(t *testing.T) {
	rule := newRule("AAPL", models.D1)
	rule.NotifyMinSeverity = models.SeverityCritical
	store := newMemStore(rule)
	notifier := &recordingNotifier{}
	sink := NewEventSink(store, notifier, newMemoryState(), newCountingMetrics(), logger.Nop())

	got := sink.Persist(context.Background(), "c1", &rule, sinkNow, firedResult("fp", sinkNow, models.SeverityWarning))
	if got.Outcome != SinkPersisted {
		t.Fatalf("persist: %+v", got)
	}
	if notifier.count() != 0 {
		t.Fatalf("below-threshold severity must not notify")
	}
	if got.Event.Sent {
		t.Fatalf("event must remain unsent")
	}
}

func TestPersistNotificationFailureKeepsEvent(t *testing.T) {
	rule := newRule("AAPL", models.D1)
	store := newMemStore(rule)
	m := newCountingMetrics()
	sink := NewEventSink(store, &recordingNotifier{err: errBoom}, newMemoryState(), m, logger.Nop())

	got := sink.Persist(context.Background(), "c1", &rule, sinkNow, firedResult("fp", sinkNow, models.SeverityCritical))
	if got.Outcome != SinkPersisted || got.Event.Sent {
		t.Fatalf("expected persisted unsent event, got %+v", got)
	}
	if m.errorCount(metrics.CategoryNotification) != 1 {
		t.Fatalf("notification error not counted")
	}
	if store.markedSent != 0 {
		t.Fatalf("failed delivery must not mark sent")
	}
}

func TestPersistFailure(t *testing.T) {
	rule := newRule("AAPL", models.D1)
	store := newMemStore(rule)
	store.insertErr = errBoom
	m := newCountingMetrics()
	sink := NewEventSink(store, &recordingNotifier{}, newMemoryState(), m, logger.Nop())

	got := sink.Persist(context.Background(), "c1", &rule, sinkNow, firedResult("fp", sinkNow, models.SeverityInfo))
	if got.Outcome != SinkFailure || got.Err == nil {
		t.Fatalf("expected failure, got %+v", got)
	}
	if m.errorCount(metrics.CategoryPersistence) != 1 {
		t.Fatalf("persistence error not counted")
	}
	if rule.LastTriggeredAt != nil {
		t.Fatalf("rule must not be touched on failure")
	}
}

func TestPersistWithoutBarAlwaysHitsStorage(t *testing.T) {
	rule := newRule("AAPL", models.D1)
	store := newMemStore(rule)
	sink := NewEventSink(store, nil, newMemoryState(), newCountingMetrics(), logger.Nop())
	res := evaluator.Result{Triggered: true, Severity: models.SeverityInfo, Fingerprint: "fp"}

	if got := sink.Persist(context.Background(), "c1", &rule, sinkNow, res); got.Outcome != SinkPersisted {
		t.Fatalf("first: %+v", got)
	}
	if got := sink.Persist(context.Background(), "c2", &rule, sinkNow, res); got.Outcome != SinkIdempotent {
		t.Fatalf("second: %+v", got)
	}
	if store.inserts != 2 {
		t.Fatalf("expected two insert attempts, got %d", store.inserts)
	}
}
