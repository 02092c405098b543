package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"AlertEngine/internal/domain/models"
)

type RuleStore interface {
	FindAllActive(ctx context.Context) ([]models.AlertRule, error)
	Save(ctx context.Context, rule *models.AlertRule) error
}

type EventStore interface {
	// InsertIfAbsent inserts e unless (rule_id, fingerprint) exists and returns rows affected.
	InsertIfAbsent(ctx context.Context, e *models.AlertEvent) (int64, error)
	FindByRuleAndFingerprint(ctx context.Context, ruleID uuid.UUID, fingerprint string) (*models.AlertEvent, error)
	MarkSent(ctx context.Context, e *models.AlertEvent) error
}

// Store is the unit of work over rules and events.
type Store interface {
	Rules() RuleStore
	Events() EventStore
	// Transaction runs fn against a transactional Store; a returned error rolls back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// NotificationSink delivers a persisted event downstream. The core only inspects success.
type NotificationSink interface {
	Send(ctx context.Context, e *models.AlertEvent) error
}

// CycleLock guards a cycle across replicas.
type CycleLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RuleStateCache remembers the last bar timestamp processed per rule.
type RuleStateCache interface {
	LastBar(ctx context.Context, ruleID uuid.UUID) (time.Time, bool)
	SetLastBar(ctx context.Context, ruleID uuid.UUID, bar time.Time)
}

type Metrics interface {
	RecordCycleLatency(d time.Duration)
	SetLastSuccess(t time.Time)
	IncGroupsProcessed(n int)
	IncRulesEvaluated()
	IncAlertsTriggered()
	RecordFetchLatency(d time.Duration)
	RecordRuleLatency(d time.Duration)
	RecordError(category string)
	IncCyclesSkipped()
	RecordClientLatency(endpoint string, d time.Duration)
}
