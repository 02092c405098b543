package evaluator

import (
	"fmt"
	"time"

	"AlertEngine/internal/domain/models"
)

type CrossDirection string

const (
	CrossUp   CrossDirection = "UP"
	CrossDown CrossDirection = "DOWN"
)

type MaCrossParams struct {
	Fast      int            `json:"fast" validate:"gte=1"`
	Slow      int            `json:"slow" validate:"gte=2,gtfield=Fast"`
	Direction CrossDirection `json:"direction" validate:"required,oneof=UP DOWN"`
}

func (p MaCrossParams) requiredCandles() int {
	return max(p.Fast, p.Slow) + 1
}

// MaCross detects a fast/slow simple moving average crossover on the last bar.
type MaCross struct{}

func (MaCross) Kind() models.AlertKind { return models.KindMaCross }

func (MaCross) Schema() Schema {
	return Schema{
		Description: "Fast SMA crosses the slow SMA",
		Params: []ParamSpec{
			{Name: "fast", Type: ParamInt, Required: true, Min: bound(1)},
			{Name: "slow", Type: ParamInt, Required: true, Min: bound(2), Description: "Must be greater than fast"},
			{Name: "direction", Type: ParamEnum, Required: true, Values: []string{string(CrossUp), string(CrossDown)}},
		},
		Examples: []map[string]any{{"fast": 20, "slow": 50, "direction": "UP"}},
	}
}

func (e MaCross) Evaluate(ec Context, rule *models.AlertRule, series *models.PriceSeries, p MaCrossParams) Result {
	n := series.Len()
	if n < p.requiredCandles() {
		var bar *time.Time
		if last, ok := series.Last(); ok {
			bar = &last.OpenTime
		}
		return e.noTrigger(rule, p, bar, nil, nil, nil, nil)
	}

	candles := series.Candles
	fastNow := sma(candles, p.Fast, n)
	slowNow := sma(candles, p.Slow, n)
	fastPrev := sma(candles, p.Fast, n-1)
	slowPrev := sma(candles, p.Slow, n-1)

	last := candles[n-1]
	bar := last.OpenTime
	if fastNow == nil || slowNow == nil || fastPrev == nil || slowPrev == nil {
		return e.noTrigger(rule, p, &bar, fastNow, slowNow, fastPrev, slowPrev)
	}

	var triggered bool
	switch p.Direction {
	case CrossUp:
		triggered = *fastPrev <= *slowPrev && *fastNow > *slowNow
	case CrossDown:
		triggered = *fastPrev >= *slowPrev && *fastNow < *slowNow
	}

	payload := NewPayload().
		Put("symbol", rule.Symbol).
		Put("timeframe", string(rule.Timeframe)).
		Put("direction", string(p.Direction)).
		Put("fastPeriod", p.Fast).
		Put("slowPeriod", p.Slow).
		PutFloat("fastMa", *fastNow).
		PutFloat("slowMa", *slowNow).
		PutFloat("previousFastMa", *fastPrev).
		PutFloat("previousSlowMa", *slowPrev).
		PutFloat("close", last.Close).
		PutTime("barTs", &bar).
		PutTime("evaluatedAt", &ec.EvaluatedAt)

	res := Result{
		Triggered:   triggered,
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, &bar),
		Payload:     payload,
	}
	if triggered {
		res.Reason = fmt.Sprintf("MA_CROSS %s fast=%.4f slow=%.4f", p.Direction, *fastNow, *slowNow)
	}
	return res
}

func (e MaCross) noTrigger(rule *models.AlertRule, p MaCrossParams, bar *time.Time, fastNow, slowNow, fastPrev, slowPrev *float64) Result {
	payload := NewPayload().
		Put("symbol", rule.Symbol).
		Put("timeframe", string(rule.Timeframe)).
		Put("direction", string(p.Direction)).
		Put("fastPeriod", p.Fast).
		Put("slowPeriod", p.Slow).
		PutFloatPtr("fastMa", fastNow).
		PutFloatPtr("slowMa", slowNow).
		PutFloatPtr("previousFastMa", fastPrev).
		PutFloatPtr("previousSlowMa", slowPrev).
		PutTime("barTs", bar)
	return Result{
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, bar),
		Payload:     payload,
	}
}

func (e MaCross) fingerprint(rule *models.AlertRule, p MaCrossParams, bar *time.Time) string {
	return Fingerprint(
		string(e.Kind()),
		rule.Symbol,
		string(rule.Timeframe),
		string(p.Direction),
		formatInt(p.Fast),
		formatInt(p.Slow),
		barMillis(bar),
	)
}

// sma averages the closes of candles[end-length:end]; nil if out of range or any close is not finite.
func sma(candles []models.Candle, length, end int) *float64 {
	if length <= 0 || end > len(candles) {
		return nil
	}
	start := end - length
	if start < 0 {
		return nil
	}
	var sum float64
	for i := start; i < end; i++ {
		c := candles[i].Close
		if !isFinite(c) {
			return nil
		}
		sum += c
	}
	avg := sum / float64(length)
	return &avg
}
