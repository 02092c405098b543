package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/domain/repository"
	"AlertEngine/internal/evaluator"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
	"AlertEngine/pkg/util"
)

// SinkOutcome tags the result of persisting a fired rule.
type SinkOutcome int

const (
	SinkPersisted SinkOutcome = iota
	SinkIdempotent
	SinkFailure
)

func (o SinkOutcome) String() string {
	switch o {
	case SinkPersisted:
		return "PERSISTED"
	case SinkIdempotent:
		return "IDEMPOTENT"
	default:
		return "FAILURE"
	}
}

// SinkResult carries the stored event for Persisted and the cause for Failure.
type SinkResult struct {
	Outcome SinkOutcome
	Event   *models.AlertEvent
	Err     error
}

// barKeys are the payload fields naming the bar a result was computed on.
var barKeys = []string{"toTs", "asOf", "barTs"}

// EventSink stores fired results at most once per (rule, fingerprint) and
// hands stored events to the notification sink.
type EventSink struct {
	store    repository.Store
	notifier repository.NotificationSink
	state    repository.RuleStateCache
	metrics  repository.Metrics
	log      *logger.Logger
	newID    func() uuid.UUID
}

// NewEventSink builds a sink. A nil notifier disables delivery.
func NewEventSink(store repository.Store, notifier repository.NotificationSink, state repository.RuleStateCache, m repository.Metrics, log *logger.Logger) *EventSink {
	return &EventSink{
		store:    store,
		notifier: notifier,
		state:    state,
		metrics:  m,
		log:      log,
		newID:    uuid.New,
	}
}

func (s *EventSink) Persist(ctx context.Context, cycleID string, rule *models.AlertRule, triggeredAt time.Time, res evaluator.Result) SinkResult {
	log := s.log.With(
		logger.String("cycle_id", cycleID),
		logger.String("rule_id", rule.ID.String()),
		logger.String("fingerprint", res.Fingerprint),
	)

	bar, hasBar := governingBar(res.Payload)
	if hasBar {
		if last, ok := s.state.LastBar(ctx, rule.ID); ok && last.Equal(bar) {
			log.Debug("alert-event-duplicate", logger.String("guard", "cache"), logger.Time("bar", bar))
			return SinkResult{Outcome: SinkIdempotent}
		}
	}

	event, inserted, err := s.insert(ctx, rule, triggeredAt, res)
	if err != nil {
		s.metrics.RecordError(metrics.CategoryPersistence)
		log.Error("persist-failed", logger.Error(err))
		return SinkResult{Outcome: SinkFailure, Err: err}
	}
	if !inserted {
		log.Debug("alert-event-duplicate", logger.String("guard", "storage"))
		return SinkResult{Outcome: SinkIdempotent}
	}

	if hasBar {
		s.state.SetLastBar(ctx, rule.ID, bar)
	}
	s.metrics.IncAlertsTriggered()
	log.Info("alert-event-persisted",
		logger.String("event_id", event.ID.String()),
		logger.String("severity", string(event.Severity)))

	s.notify(ctx, log, rule, event)
	return SinkResult{Outcome: SinkPersisted, Event: event}
}

// insert writes the event and the rule's new lastTriggeredAt in one
// transaction. inserted is false when the fingerprint was already stored.
func (s *EventSink) insert(ctx context.Context, rule *models.AlertRule, triggeredAt time.Time, res evaluator.Result) (*models.AlertEvent, bool, error) {
	payload, err := json.Marshal(res.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("encode payload: %w", err)
	}

	event := &models.AlertEvent{
		ID:          s.newID(),
		RuleID:      rule.ID,
		TriggeredAt: triggeredAt,
		Payload:     datatypes.JSON(payload),
		Fingerprint: res.Fingerprint,
		Severity:    res.Severity,
	}

	at := triggeredAt
	inserted := false
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		n, err := tx.Events().InsertIfAbsent(ctx, event)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if n == 0 {
			return nil
		}
		updated := *rule
		updated.LastTriggeredAt = &at
		if err := tx.Rules().Save(ctx, &updated); err != nil {
			return fmt.Errorf("save rule: %w", err)
		}
		inserted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if inserted {
		rule.LastTriggeredAt = &at
	}
	return event, inserted, nil
}

func (s *EventSink) notify(ctx context.Context, log *logger.Logger, rule *models.AlertRule, event *models.AlertEvent) {
	if event.Severity.Rank() < rule.NotifyMinSeverity.Rank() {
		log.Debug("notification-skipped",
			logger.String("severity", string(event.Severity)),
			logger.String("min_severity", string(rule.NotifyMinSeverity)))
		return
	}
	if s.notifier == nil {
		return
	}

	event.Rule = rule
	if err := s.notifier.Send(ctx, event); err != nil {
		s.metrics.RecordError(metrics.CategoryNotification)
		log.Error("notification-failed", logger.Error(err))
		return
	}

	event.Sent = true
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		return tx.Events().MarkSent(ctx, event)
	})
	if err != nil {
		event.Sent = false
		s.metrics.RecordError(metrics.CategoryPersistence)
		log.Error("mark-sent-failed", logger.Error(err))
	}
}

func governingBar(p *evaluator.Payload) (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	for _, k := range barKeys {
		if v, ok := p.Get(k); ok {
			if t, ok := util.ParseTimeValue(v); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
