package evaluator

import (
	"fmt"
	"time"

	"AlertEngine/internal/domain/models"
)

// rsiWarmupBars is the number of smoothing steps run before the reported value.
const rsiWarmupBars = 100

type RSIOperator string

const (
	RSIAbove        RSIOperator = "ABOVE"
	RSIBelow        RSIOperator = "BELOW"
	RSICrossingUp   RSIOperator = "CROSSING_UP"
	RSICrossingDown RSIOperator = "CROSSING_DOWN"
)

func (o RSIOperator) requiresPrevious() bool {
	return o == RSICrossingUp || o == RSICrossingDown
}

type RSIParams struct {
	Period    int              `json:"period" default:"14" validate:"gte=1"`
	Threshold float64          `json:"threshold" validate:"gte=0,lte=100"`
	Operator  RSIOperator      `json:"operator" validate:"required,oneof=ABOVE BELOW CROSSING_UP CROSSING_DOWN"`
	Timeframe models.Timeframe `json:"timeframe,omitempty" validate:"omitempty,oneof=M1 M5 M15 H1 D1"`
}

func (p RSIParams) requiredCandles() int {
	return p.Period + rsiWarmupBars + 1
}

func (p RSIParams) resolvedTimeframe(ruleTF models.Timeframe) models.Timeframe {
	if p.Timeframe != "" {
		return p.Timeframe
	}
	return ruleTF
}

// RSI evaluates Wilder-smoothed RSI against a level or a level crossing.
type RSI struct{}

func (RSI) Kind() models.AlertKind { return models.KindRSI }

func (RSI) Schema() Schema {
	return Schema{
		Description: "Relative strength index against a level",
		Params: []ParamSpec{
			{Name: "period", Type: ParamInt, Min: bound(1), Default: 14},
			{Name: "threshold", Type: ParamNumber, Required: true, Min: bound(0), Max: bound(100)},
			{Name: "operator", Type: ParamEnum, Required: true, Values: []string{
				string(RSIAbove), string(RSIBelow), string(RSICrossingUp), string(RSICrossingDown),
			}},
			{Name: "timeframe", Type: ParamEnum, Values: timeframeValues(), Description: "Defaults to the rule timeframe"},
		},
		Examples: []map[string]any{{"period": 14, "threshold": 70, "operator": "CROSSING_UP"}},
	}
}

func (e RSI) Evaluate(ec Context, rule *models.AlertRule, series *models.PriceSeries, p RSIParams) Result {
	tf := p.resolvedTimeframe(rule.Timeframe)
	last, ok := series.Last()
	if !ok {
		return e.noTrigger(rule, p, tf, nil, nil, nil, "price_series_empty")
	}
	bar := last.OpenTime
	if series.Timeframe != tf {
		return e.noTrigger(rule, p, tf, &bar, nil, nil, "timeframe_mismatch")
	}
	if series.Len() < p.requiredCandles() {
		return e.noTrigger(rule, p, tf, &bar, nil, nil, "insufficient_candles")
	}

	prev, curr, ok := rsiPair(series.Candles, p.Period, series.Len())
	if !ok {
		return e.noTrigger(rule, p, tf, &bar, nil, nil, "indicator_unavailable")
	}
	if !isFinite(curr) || (p.Operator.requiresPrevious() && !isFinite(prev)) {
		return e.noTrigger(rule, p, tf, &bar, &curr, &prev, "indicator_unavailable")
	}

	var triggered bool
	switch p.Operator {
	case RSIAbove:
		triggered = curr > p.Threshold
	case RSIBelow:
		triggered = curr < p.Threshold
	case RSICrossingUp:
		triggered = prev <= p.Threshold && curr > p.Threshold
	case RSICrossingDown:
		triggered = prev >= p.Threshold && curr < p.Threshold
	}

	res := Result{
		Triggered:   triggered,
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, tf, &bar),
		Payload:     e.payload(rule, p, tf, &bar, &curr, &prev, &ec.EvaluatedAt, ""),
	}
	if triggered {
		if p.Operator.requiresPrevious() {
			res.Reason = fmt.Sprintf("RSI %.2f->%.2f %s %.2f", prev, curr, p.Operator, p.Threshold)
		} else {
			res.Reason = fmt.Sprintf("RSI %.2f %s %.2f", curr, p.Operator, p.Threshold)
		}
	}
	return res
}

func (e RSI) noTrigger(rule *models.AlertRule, p RSIParams, tf models.Timeframe, bar *time.Time, curr, prev *float64, note string) Result {
	return Result{
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, tf, bar),
		Payload:     e.payload(rule, p, tf, bar, curr, prev, nil, note),
	}
}

func (e RSI) payload(rule *models.AlertRule, p RSIParams, tf models.Timeframe, bar *time.Time, curr, prev *float64, evaluatedAt *time.Time, note string) *Payload {
	pl := NewPayload().
		Put("symbol", rule.Symbol).
		Put("timeframe", string(tf)).
		Put("operator", string(p.Operator)).
		PutFloat("threshold", p.Threshold).
		Put("period", p.Period).
		PutFloatPtr("rsi", curr).
		PutFloatPtr("previousRsi", prev).
		PutTime("barTs", bar).
		PutTime("evaluatedAt", evaluatedAt)
	if note != "" {
		pl.Put("note", note)
	}
	return pl
}

func (e RSI) fingerprint(rule *models.AlertRule, p RSIParams, tf models.Timeframe, bar *time.Time) string {
	return Fingerprint(
		string(e.Kind()),
		rule.Symbol,
		string(tf),
		string(p.Operator),
		formatFloat(p.Threshold),
		formatInt(p.Period),
		barMillis(bar),
	)
}

// rsiPair returns the RSI of the bar before end-1 and of end-1.
// The window is seeded with a simple average over period changes and then
// Wilder-smoothed over the warm-up bars.
func rsiPair(candles []models.Candle, period, end int) (prev, curr float64, ok bool) {
	required := period + rsiWarmupBars + 1
	if period <= 0 || end > len(candles) || end < required {
		return 0, 0, false
	}
	start := end - required
	seedFrom, seedTo := start+1, start+period
	if seedFrom <= 0 {
		return 0, 0, false
	}

	var gainSum, lossSum float64
	for i := seedFrom; i <= seedTo; i++ {
		change, ok := closeChange(candles, i)
		if !ok {
			return 0, 0, false
		}
		if change > 0 {
			gainSum += change
		} else if change < 0 {
			lossSum -= change
		}
	}

	p := float64(period)
	avgGain, avgLoss := gainSum/p, lossSum/p
	curr, ok = rsiValue(avgGain, avgLoss)
	if !ok {
		return 0, 0, false
	}
	havePrev := false
	for i := seedTo + 1; i < end; i++ {
		change, ok := closeChange(candles, i)
		if !ok {
			return 0, 0, false
		}
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		next, ok := rsiValue(avgGain, avgLoss)
		if !ok {
			return 0, 0, false
		}
		prev, curr, havePrev = curr, next, true
	}
	if !havePrev {
		return 0, 0, false
	}
	return prev, curr, true
}

func closeChange(candles []models.Candle, i int) (float64, bool) {
	c, pc := candles[i].Close, candles[i-1].Close
	if !isFinite(c) || !isFinite(pc) {
		return 0, false
	}
	return c - pc, true
}

// rsiValue maps smoothed averages to RSI: flat is 50, no losses 100, no gains 0.
func rsiValue(avgGain, avgLoss float64) (float64, bool) {
	if !isFinite(avgGain) || !isFinite(avgLoss) {
		return 0, false
	}
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50, true
	case avgLoss == 0:
		return 100, true
	case avgGain == 0:
		return 0, true
	}
	rs := avgGain / avgLoss
	if !isFinite(rs) {
		return 0, false
	}
	return 100 - 100/(1+rs), true
}

func timeframeValues() []string {
	out := make([]string, len(models.Timeframes))
	for i, tf := range models.Timeframes {
		out[i] = string(tf)
	}
	return out
}
