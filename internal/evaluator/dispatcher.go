package evaluator

import (
	"bytes"
	"encoding/json"

	"AlertEngine/internal/domain/models"
)

// Dispatcher routes a rule to its evaluator after validating and converting params.
type Dispatcher struct {
	registry  *Registry
	validator *ParamsValidator
}

func NewDispatcher(registry *Registry, validator *ParamsValidator) *Dispatcher {
	return &Dispatcher{registry: registry, validator: validator}
}

// Evaluate returns MissingEvaluatorError or InvalidParamsError for rule-level
// problems; any other outcome is carried by Result.
func (d *Dispatcher) Evaluate(ec Context, rule *models.AlertRule, series *models.PriceSeries) (Result, error) {
	b, err := d.registry.Require(rule.Kind)
	if err != nil {
		return Result{}, err
	}

	raw := []byte(rule.Params)
	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Result{}, &InvalidParamsError{Kind: rule.Kind, Detail: "params must be a JSON object", Err: err}
		}
	} else {
		raw = nil
	}
	if err := d.validator.Validate(rule.Kind, b.Schema(), fields); err != nil {
		return Result{}, err
	}

	params := b.NewParams()
	if err := d.validator.Convert(rule.Kind, raw, params); err != nil {
		return Result{}, err
	}
	return b.Run(ec, rule, series, params), nil
}
