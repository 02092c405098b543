package evaluator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"AlertEngine/internal/domain/models"
)

type VolumeOperator string

const (
	VolumeAboveMA   VolumeOperator = "ABOVE_MA"
	VolumeAbovePctl VolumeOperator = "ABOVE_PCTL"
)

type VolumeSpikeParams struct {
	Lookback   int            `json:"lookback" default:"20" validate:"gte=2"`
	Multiplier float64        `json:"multiplier" default:"2"`
	Percentile float64        `json:"percentile" default:"0.95"`
	Operator   VolumeOperator `json:"operator" validate:"required,oneof=ABOVE_MA ABOVE_PCTL"`
}

// Validate checks the knob that applies to the selected operator.
func (p VolumeSpikeParams) Validate() error {
	switch p.Operator {
	case VolumeAboveMA:
		if !isFinite(p.Multiplier) || p.Multiplier <= 0 {
			return errors.New("multiplier must be > 0")
		}
	case VolumeAbovePctl:
		if !isFinite(p.Percentile) || p.Percentile <= 0 || p.Percentile >= 1 {
			return errors.New("percentile must be between 0 and 1")
		}
	}
	return nil
}

func (p VolumeSpikeParams) multiplier() *float64 {
	if p.Operator != VolumeAboveMA {
		return nil
	}
	v := p.Multiplier
	return &v
}

func (p VolumeSpikeParams) percentile() *float64 {
	if p.Operator != VolumeAbovePctl {
		return nil
	}
	v := p.Percentile
	return &v
}

// VolumeSpike compares the last bar volume against a baseline of the preceding window.
type VolumeSpike struct{}

func (VolumeSpike) Kind() models.AlertKind { return models.KindVolumeSpike }

func (VolumeSpike) Schema() Schema {
	return Schema{
		Description: "Volume of the last bar spikes above its recent baseline",
		Params: []ParamSpec{
			{Name: "lookback", Type: ParamInt, Min: bound(2), Default: 20},
			{Name: "operator", Type: ParamEnum, Required: true, Values: []string{string(VolumeAboveMA), string(VolumeAbovePctl)}},
			{Name: "multiplier", Type: ParamNumber, Min: bound(0), ExclusiveMin: true, Default: 2.0, Description: "ABOVE_MA only"},
			{Name: "percentile", Type: ParamNumber, Min: bound(0), Max: bound(1), ExclusiveMin: true, ExclusiveMax: true, Default: 0.95, Description: "ABOVE_PCTL only"},
		},
		Examples: []map[string]any{{"lookback": 20, "operator": "ABOVE_MA", "multiplier": 2.5}},
	}
}

type volumeFigures struct {
	current, baseline, threshold *float64
}

func (e VolumeSpike) Evaluate(ec Context, rule *models.AlertRule, series *models.PriceSeries, p VolumeSpikeParams) Result {
	n := series.Len()
	if n < p.Lookback+1 {
		var bar *time.Time
		if last, ok := series.Last(); ok {
			bar = &last.OpenTime
		}
		return e.noTrigger(rule, p, bar, volumeFigures{}, "insufficient_candles")
	}

	last := series.Candles[n-1]
	bar := last.OpenTime
	if !validVolume(last.Volume) {
		return e.noTrigger(rule, p, &bar, volumeFigures{current: last.Volume}, "current_volume_unavailable")
	}
	current := *last.Volume

	history, ok := volumes(series.Candles[n-1-p.Lookback : n-1])
	if !ok {
		return e.noTrigger(rule, p, &bar, volumeFigures{current: &current}, "history_volume_unavailable")
	}

	var baseline, threshold float64
	switch p.Operator {
	case VolumeAbovePctl:
		baseline = percentile(history, p.Percentile)
		threshold = baseline
	default:
		baseline = mean(history)
		threshold = p.Multiplier * baseline
	}
	if !isFinite(baseline) || baseline <= 0 {
		return e.noTrigger(rule, p, &bar, volumeFigures{current: &current, baseline: &baseline}, "baseline_non_positive")
	}

	triggered := current >= threshold
	res := Result{
		Triggered:   triggered,
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, &bar),
		Payload: e.payload(rule, p, &bar, &ec.EvaluatedAt,
			volumeFigures{current: &current, baseline: &baseline, threshold: &threshold}, ""),
	}
	if triggered {
		res.Reason = fmt.Sprintf("VOLUME_SPIKE %s volume=%.2f threshold=%.2f", p.Operator, current, threshold)
	}
	return res
}

func (e VolumeSpike) noTrigger(rule *models.AlertRule, p VolumeSpikeParams, bar *time.Time, f volumeFigures, note string) Result {
	return Result{
		Severity:    models.SeverityInfo,
		Fingerprint: e.fingerprint(rule, p, bar),
		Payload:     e.payload(rule, p, bar, nil, f, note),
	}
}

func (e VolumeSpike) payload(rule *models.AlertRule, p VolumeSpikeParams, bar, evaluatedAt *time.Time, f volumeFigures, note string) *Payload {
	pl := NewPayload().
		Put("symbol", rule.Symbol).
		Put("timeframe", string(rule.Timeframe)).
		Put("operator", string(p.Operator)).
		Put("lookback", p.Lookback).
		PutFloatPtr("multiplier", p.multiplier()).
		PutFloatPtr("percentile", p.percentile()).
		PutFloatPtr("currentVolume", f.current).
		PutFloatPtr("baselineVolume", f.baseline).
		PutFloatPtr("thresholdVolume", f.threshold).
		PutTime("barTs", bar).
		PutTime("evaluatedAt", evaluatedAt)
	if note != "" {
		pl.Put("note", note)
	}
	return pl
}

func (e VolumeSpike) fingerprint(rule *models.AlertRule, p VolumeSpikeParams, bar *time.Time) string {
	optional := func(v *float64) string {
		if v == nil {
			return ""
		}
		return formatFloat(*v)
	}
	return Fingerprint(
		string(e.Kind()),
		rule.Symbol,
		string(rule.Timeframe),
		string(p.Operator),
		formatInt(p.Lookback),
		optional(p.multiplier()),
		optional(p.percentile()),
		barMillis(bar),
	)
}

func validVolume(v *float64) bool {
	return v != nil && isFinite(*v) && *v >= 0
}

func volumes(candles []models.Candle) ([]float64, bool) {
	out := make([]float64, 0, len(candles))
	for _, c := range candles {
		if !validVolume(c.Volume) {
			return nil, false
		}
		out = append(out, *c.Volume)
	}
	return out, true
}

func mean(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

// percentile interpolates linearly between the closest ranks at p*(n-1).
func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	p = min(max(p, 0), 1)
	pos := p * float64(len(sorted)-1)
	lower := int(pos)
	upper := min(lower+1, len(sorted)-1)
	if upper == lower {
		return sorted[lower]
	}
	weight := pos - float64(lower)
	return sorted[lower] + weight*(sorted[upper]-sorted[lower])
}
