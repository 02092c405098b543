package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"AlertEngine/internal/domain/models"
)

var errEventWithoutRule = errors.New("alert event has no rule attached")

// RejectedError is returned when the notification service declines an alert.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "notification rejected"
	}
	return "notification rejected: " + e.Reason
}

type alertEnvelope struct {
	UserID       string          `json:"userId"`
	Fingerprint  string          `json:"fingerprint"`
	OccurredAt   string          `json:"occurredAt"`
	Severity     models.Severity `json:"severity"`
	TemplateKey  string          `json:"templateKey"`
	TemplateData templateData    `json:"templateData"`
}

type templateData struct {
	EventID     string           `json:"eventId"`
	RuleID      string           `json:"ruleId"`
	RuleKind    models.AlertKind `json:"ruleKind"`
	Symbol      string           `json:"symbol"`
	TriggeredAt string           `json:"triggeredAt"`
	Severity    models.Severity  `json:"severity"`
	Fingerprint string           `json:"fingerprint"`
	Payload     json.RawMessage  `json:"payload"`
	RuleParams  json.RawMessage  `json:"ruleParams,omitempty"`
}

func newEnvelope(e *models.AlertEvent, templateKey string) (alertEnvelope, error) {
	rule := e.Rule
	if rule == nil {
		return alertEnvelope{}, errEventWithoutRule
	}
	at := e.TriggeredAt.UTC().Format(time.RFC3339Nano)

	payload := json.RawMessage(e.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	return alertEnvelope{
		UserID:      rule.UserID.String(),
		Fingerprint: e.Fingerprint,
		OccurredAt:  at,
		Severity:    e.Severity,
		TemplateKey: resolveTemplateKey(templateKey, rule.Kind),
		TemplateData: templateData{
			EventID:     e.ID.String(),
			RuleID:      rule.ID.String(),
			RuleKind:    rule.Kind,
			Symbol:      rule.Symbol,
			TriggeredAt: at,
			Severity:    e.Severity,
			Fingerprint: e.Fingerprint,
			Payload:     payload,
			RuleParams:  nonEmptyParams(rule.Params),
		},
	}, nil
}

// resolveTemplateKey falls back to alert-<kind> when no key is configured.
func resolveTemplateKey(configured string, kind models.AlertKind) string {
	if k := strings.TrimSpace(configured); k != "" {
		return k
	}
	return "alert-" + strings.ReplaceAll(strings.ToLower(string(kind)), "_", "-")
}

func nonEmptyParams(p []byte) json.RawMessage {
	t := bytes.TrimSpace(p)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("{}")) {
		return nil
	}
	return json.RawMessage(t)
}
