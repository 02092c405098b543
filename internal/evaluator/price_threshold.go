package evaluator

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"AlertEngine/internal/domain/models"
)

var (
	warningOvershoot  = decimal.RequireFromString("0.005")
	criticalOvershoot = decimal.RequireFromString("0.015")
)

type PriceThresholdParams struct {
	Operator Comparison      `json:"operator" validate:"required,oneof=GTE LTE GT LT"`
	Value    decimal.Decimal `json:"value"`
}

// PriceThreshold compares the last close against a fixed price level.
type PriceThreshold struct{}

func (PriceThreshold) Kind() models.AlertKind { return models.KindPriceThreshold }

func (PriceThreshold) Schema() Schema {
	return Schema{
		Description: "Last close crosses a fixed price level",
		Params: []ParamSpec{
			{Name: "operator", Type: ParamEnum, Required: true, Values: comparisonValues, Description: "Comparison against the threshold"},
			{Name: "value", Type: ParamNumber, Required: true, Description: "Price level"},
		},
		Examples: []map[string]any{{"operator": "GTE", "value": 100}},
	}
}

func (e PriceThreshold) Evaluate(ec Context, rule *models.AlertRule, series *models.PriceSeries, p PriceThresholdParams) Result {
	last, ok := series.Last()
	if !ok {
		return e.noTrigger(rule, nil, p)
	}
	bar := last.OpenTime
	if math.IsNaN(last.Close) || math.IsInf(last.Close, 0) || isStale(bar, ec.EvaluatedAt, rule.Timeframe) {
		return e.noTrigger(rule, &bar, p)
	}

	lastPrice := decimal.NewFromFloat(last.Close)
	triggered := p.Operator.apply(lastPrice.Cmp(p.Value))

	payload := NewPayload().
		PutDecimal("lastPrice", lastPrice).
		PutDecimal("threshold", p.Value).
		Put("operator", string(p.Operator)).
		PutDecimal("delta", lastPrice.Sub(p.Value)).
		Put("symbol", rule.Symbol).
		Put("timeframe", string(rule.Timeframe)).
		PutTime("asOf", &bar)

	severity := models.SeverityInfo
	if triggered {
		severity = severityFromOvershoot(lastPrice, p.Value)
	}

	return Result{
		Triggered:   triggered,
		Severity:    severity,
		Fingerprint: e.fingerprint(rule, p, &bar),
		Payload:     payload,
	}
}

func (e PriceThreshold) noTrigger(rule *models.AlertRule, bar *time.Time, p PriceThresholdParams) Result {
	payload := NewPayload().
		Put("lastPrice", nil).
		PutDecimal("threshold", p.Value).
		Put("operator", string(p.Operator)).
		Put("delta", nil).
		Put("symbol", rule.Symbol).
		Put("timeframe", string(rule.Timeframe)).
		PutTime("asOf", bar)
	return Result{
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, bar),
		Payload:     payload,
	}
}

func (e PriceThreshold) fingerprint(rule *models.AlertRule, p PriceThresholdParams, bar *time.Time) string {
	barPart := "no-bar"
	if bar != nil {
		barPart = barMillis(bar)
	}
	return Fingerprint(
		string(e.Kind()),
		string(p.Operator),
		p.Value.String(),
		rule.Symbol,
		string(rule.Timeframe),
		barPart,
	)
}

// severityFromOvershoot grades |last-threshold| relative to |threshold|,
// or to max(|last|, 1) when the threshold is zero.
func severityFromOvershoot(last, threshold decimal.Decimal) models.Severity {
	diff := last.Sub(threshold).Abs()
	basis := threshold.Abs()
	if threshold.IsZero() {
		basis = decimal.Max(last.Abs(), decimal.NewFromInt(1))
	}
	ratio := diff.Div(basis)
	switch {
	case ratio.GreaterThanOrEqual(criticalOvershoot):
		return models.SeverityCritical
	case ratio.GreaterThanOrEqual(warningOvershoot):
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// isStale reports whether the bar is older than twice the timeframe.
func isStale(bar, now time.Time, tf models.Timeframe) bool {
	window := tf.Duration()
	if window == 0 {
		return false
	}
	return now.Sub(bar) > 2*window
}
