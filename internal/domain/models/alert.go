package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AlertRule is a user-defined condition evaluated every cycle.
type AlertRule struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	Symbol            string         `gorm:"size:20;not null;index:idx_alert_rule_symbol_tf" json:"symbol"`
	Kind              AlertKind      `gorm:"size:40;not null" json:"kind"`
	Params            datatypes.JSON `gorm:"type:jsonb;not null" json:"params"`
	Timeframe         Timeframe      `gorm:"size:8;not null;default:D1;index:idx_alert_rule_symbol_tf" json:"timeframe"`
	Status            RuleStatus     `gorm:"size:16;not null;default:ACTIVE;index" json:"status"`
	DebounceSecs      *int64         `gorm:"column:debounce_secs" json:"debounceSecs,omitempty"`
	LastTriggeredAt   *time.Time     `json:"lastTriggeredAt,omitempty"`
	NotifyMinSeverity Severity       `gorm:"size:16;not null;default:INFO" json:"notifyMinSeverity"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func (AlertRule) TableName() string { return "alert_rule" }

// Debounce returns the minimum interval between accepted triggers, if any.
func (r *AlertRule) Debounce() (time.Duration, bool) {
	if r.DebounceSecs == nil {
		return 0, false
	}
	return time.Duration(*r.DebounceSecs) * time.Second, true
}

// GroupKey identifies the (symbol, timeframe) fetch group of a rule.
type GroupKey struct {
	Symbol    string
	Timeframe Timeframe
}

func (r *AlertRule) GroupKey() GroupKey {
	return GroupKey{Symbol: r.Symbol, Timeframe: r.Timeframe}
}

// AlertEvent is created once per (rule, fingerprint) and only ever flips Sent.
type AlertEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RuleID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:ux_alert_event_rule_fingerprint,priority:1" json:"ruleId"`
	Rule        *AlertRule     `gorm:"foreignKey:RuleID" json:"-"`
	TriggeredAt time.Time      `gorm:"not null" json:"triggeredAt"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Fingerprint string         `gorm:"size:120;not null;uniqueIndex:ux_alert_event_rule_fingerprint,priority:2" json:"fingerprint"`
	Severity    Severity       `gorm:"size:16;not null" json:"severity"`
	Sent        bool           `gorm:"not null;default:false" json:"sent"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (AlertEvent) TableName() string { return "alert_event" }
