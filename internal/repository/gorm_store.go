package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"AlertEngine/internal/domain/models"
	domrepo "AlertEngine/internal/domain/repository"
)

// GormStore implements domrepo.Store on Postgres.
type GormStore struct {
	db *gorm.DB
}

var _ domrepo.Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Rules() domrepo.RuleStore { return gormRules{db: s.db} }

func (s *GormStore) Events() domrepo.EventStore { return gormEvents{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx domrepo.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

type gormRules struct {
	db *gorm.DB
}

func (r gormRules) FindAllActive(ctx context.Context) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	err := r.db.WithContext(ctx).
		Where("status = ?", models.RuleActive).
		Order("symbol, timeframe, id").
		Find(&rules).Error
	return rules, err
}

// Save writes back last_triggered_at only; every other rule column belongs
// to the rule management service.
func (r gormRules) Save(ctx context.Context, rule *models.AlertRule) error {
	return r.db.WithContext(ctx).
		Model(&models.AlertRule{ID: rule.ID}).
		Update("last_triggered_at", rule.LastTriggeredAt).Error
}

type gormEvents struct {
	db *gorm.DB
}

func (e gormEvents) InsertIfAbsent(ctx context.Context, ev *models.AlertEvent) (int64, error) {
	res := e.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rule_id"}, {Name: "fingerprint"}},
			DoNothing: true,
		}).
		Create(ev)
	return res.RowsAffected, res.Error
}

func (e gormEvents) FindByRuleAndFingerprint(ctx context.Context, ruleID uuid.UUID, fingerprint string) (*models.AlertEvent, error) {
	var ev models.AlertEvent
	err := e.db.WithContext(ctx).
		Where("rule_id = ? AND fingerprint = ?", ruleID, fingerprint).
		First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (e gormEvents) MarkSent(ctx context.Context, ev *models.AlertEvent) error {
	return e.db.WithContext(ctx).
		Model(&models.AlertEvent{}).
		Where("id = ?", ev.ID).
		Update("sent", true).Error
}
