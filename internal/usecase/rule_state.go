package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"AlertEngine/internal/domain/repository"
	"AlertEngine/pkg/cache"
	"AlertEngine/pkg/logger"
)

const (
	ruleStatePrefix = "rule-state"
	ruleStateTTL    = 7 * 24 * time.Hour
)

// RuleStateStore remembers the last bar persisted for each rule. It is an
// optimization only; a lost or stale entry just costs one storage round trip.
type RuleStateStore struct {
	cache cache.Service
	log   *logger.Logger
}

var _ repository.RuleStateCache = (*RuleStateStore)(nil)

func NewRuleStateStore(c cache.Service, log *logger.Logger) *RuleStateStore {
	return &RuleStateStore{cache: c, log: log}
}

func (s *RuleStateStore) LastBar(ctx context.Context, ruleID uuid.UUID) (time.Time, bool) {
	var raw string
	if err := s.cache.Get(ctx, s.key(ruleID), &raw); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("rule-state-read-failed", logger.String("rule_id", ruleID.String()), logger.Error(err))
		}
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *RuleStateStore) SetLastBar(ctx context.Context, ruleID uuid.UUID, bar time.Time) {
	if err := s.cache.Set(ctx, s.key(ruleID), bar.UTC().Format(time.RFC3339Nano), ruleStateTTL); err != nil {
		s.log.Warn("rule-state-write-failed", logger.String("rule_id", ruleID.String()), logger.Error(err))
	}
}

func (s *RuleStateStore) key(ruleID uuid.UUID) string {
	return cache.GenerateKeyWithParams(ruleStatePrefix, ruleID, "last-bar")
}
