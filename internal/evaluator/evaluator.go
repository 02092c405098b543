package evaluator

import (
	"encoding/json"
	"time"

	"AlertEngine/internal/domain/models"
)

// Context is shared by every rule of a group within one cycle.
type Context struct {
	EvaluatedAt time.Time
	Timeframe   models.Timeframe
}

// Result is the outcome of evaluating one rule against one price series.
type Result struct {
	Triggered   bool
	Severity    models.Severity
	Fingerprint string
	Reason      string
	Payload     *Payload
	// NewState is reserved for stateful indicators; no evaluator sets it yet.
	NewState json.RawMessage
}

// Evaluator is a pure, deterministic indicator over typed params P.
type Evaluator[P any] interface {
	Kind() models.AlertKind
	Schema() Schema
	Evaluate(ec Context, rule *models.AlertRule, series *models.PriceSeries, params P) Result
}

// Binding is an Evaluator with its params type erased, as held by the Registry.
type Binding interface {
	Kind() models.AlertKind
	Schema() Schema
	// NewParams returns a pointer to a zero params value to decode into.
	NewParams() any
	// Run evaluates with params previously obtained from NewParams.
	Run(ec Context, rule *models.AlertRule, series *models.PriceSeries, params any) Result
}

// Bind adapts a typed Evaluator into a Binding.
func Bind[P any](e Evaluator[P]) Binding {
	return binding[P]{e: e}
}

type binding[P any] struct {
	e Evaluator[P]
}

func (b binding[P]) Kind() models.AlertKind { return b.e.Kind() }

func (b binding[P]) Schema() Schema { return b.e.Schema() }

func (b binding[P]) NewParams() any { return new(P) }

func (b binding[P]) Run(ec Context, rule *models.AlertRule, series *models.PriceSeries, params any) Result {
	return b.e.Evaluate(ec, rule, series, *params.(*P))
}

// Comparison is the operator set shared by threshold-style evaluators.
type Comparison string

const (
	GTE Comparison = "GTE"
	LTE Comparison = "LTE"
	GT  Comparison = "GT"
	LT  Comparison = "LT"
)

var comparisonValues = []string{string(GTE), string(LTE), string(GT), string(LT)}

func (c Comparison) apply(cmp int) bool {
	switch c {
	case GTE:
		return cmp >= 0
	case LTE:
		return cmp <= 0
	case GT:
		return cmp > 0
	case LT:
		return cmp < 0
	}
	return false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func timePtr(t time.Time) *time.Time { return &t }
