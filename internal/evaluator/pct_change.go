package evaluator

import (
	"fmt"
	"math"
	"time"

	"AlertEngine/internal/domain/models"
)

const minDenominator = 1e-9

// PctBasis selects the per-candle value compared by PctChange.
type PctBasis string

const (
	BasisClose PctBasis = "CLOSE"
	BasisHL2   PctBasis = "HL2"
	BasisHLC3  PctBasis = "HLC3"
)

func (b PctBasis) valueOf(c models.Candle) float64 {
	switch b {
	case BasisHL2:
		return (c.High + c.Low) / 2
	case BasisHLC3:
		return (c.High + c.Low + c.Close) / 3
	default:
		return c.Close
	}
}

type PctChangeParams struct {
	Operator     Comparison `json:"operator" validate:"required,oneof=GTE LTE GT LT"`
	Pct          float64    `json:"pct"`
	LookbackBars int        `json:"lookbackBars" validate:"gte=1"`
	Basis        PctBasis   `json:"basis" default:"CLOSE" validate:"oneof=CLOSE HL2 HLC3"`
}

// PctChange compares the percent move over a lookback window against a signed threshold.
type PctChange struct{}

func (PctChange) Kind() models.AlertKind { return models.KindPctChange }

func (PctChange) Schema() Schema {
	return Schema{
		Description: "Percent change over the last N bars",
		Params: []ParamSpec{
			{Name: "operator", Type: ParamEnum, Required: true, Values: comparisonValues},
			{Name: "pct", Type: ParamNumber, Required: true, Description: "Signed threshold in percent"},
			{Name: "lookbackBars", Type: ParamInt, Required: true, Min: bound(1)},
			{Name: "basis", Type: ParamEnum, Values: []string{string(BasisClose), string(BasisHL2), string(BasisHLC3)}, Default: string(BasisClose)},
		},
		Examples: []map[string]any{{"operator": "GTE", "pct": 5, "lookbackBars": 1}},
	}
}

func (e PctChange) Evaluate(ec Context, rule *models.AlertRule, series *models.PriceSeries, p PctChangeParams) Result {
	basis := p.resolvedBasis()
	n := series.Len()
	if n < p.LookbackBars+1 {
		return e.noTrigger(rule, p, nil, nil)
	}

	latest := series.Candles[n-1]
	past := series.Candles[n-1-p.LookbackBars]
	toTs, fromTs := latest.OpenTime, past.OpenTime

	latestValue := basis.valueOf(latest)
	pastValue := basis.valueOf(past)
	if !isFinite(latestValue) || !isFinite(pastValue) || math.Abs(pastValue) < minDenominator {
		return e.noTrigger(rule, p, &toTs, &fromTs)
	}

	pct := (latestValue - pastValue) / pastValue * 100
	if !isFinite(pct) {
		return e.noTrigger(rule, p, &toTs, &fromTs)
	}

	triggered := p.Operator.apply(compareFloat(pct, p.Pct))
	payload := NewPayload().
		Put("symbol", rule.Symbol).
		Put("timeframe", string(rule.Timeframe)).
		Put("operator", string(p.Operator)).
		PutFloat("thresholdPct", p.Pct).
		PutFloat("actualPct", pct).
		Put("lookbackBars", p.LookbackBars).
		Put("basis", string(basis)).
		PutTime("fromTs", &fromTs).
		PutTime("toTs", &toTs).
		PutTime("evaluatedAt", &ec.EvaluatedAt)

	res := Result{
		Triggered:   triggered,
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, &fromTs, &toTs),
		Payload:     payload,
	}
	if triggered {
		res.Reason = fmt.Sprintf("PCT_CHANGE %+.2f%% %s %+.2f%%", pct, p.Operator, p.Pct)
	}
	return res
}

func (e PctChange) noTrigger(rule *models.AlertRule, p PctChangeParams, toTs, fromTs *time.Time) Result {
	payload := NewPayload().
		Put("symbol", rule.Symbol).
		Put("timeframe", string(rule.Timeframe)).
		Put("operator", string(p.Operator)).
		PutFloat("thresholdPct", p.Pct).
		Put("actualPct", nil).
		Put("lookbackBars", p.LookbackBars).
		Put("basis", string(p.resolvedBasis())).
		PutTime("toTs", toTs).
		PutTime("fromTs", fromTs)
	return Result{
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, fromTs, toTs),
		Payload:     payload,
	}
}

func (e PctChange) fingerprint(rule *models.AlertRule, p PctChangeParams, fromTs, toTs *time.Time) string {
	return Fingerprint(
		string(e.Kind()),
		rule.Symbol,
		string(rule.Timeframe),
		string(p.Operator),
		formatFloat(p.Pct),
		formatInt(p.LookbackBars),
		string(p.resolvedBasis()),
		barMillis(fromTs),
		barMillis(toTs),
	)
}

func (p PctChangeParams) resolvedBasis() PctBasis {
	if p.Basis == "" {
		return BasisClose
	}
	return p.Basis
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
