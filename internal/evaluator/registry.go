package evaluator

import (
	"sort"

	"AlertEngine/internal/domain/models"
)

// Registry maps alert kinds to their evaluator. It is immutable after construction.
type Registry struct {
	byKind map[models.AlertKind]Binding
}

// NewRegistry indexes bindings by kind. Registering the same kind twice is a
// ConfigurationError and must abort startup.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	byKind := make(map[models.AlertKind]Binding, len(bindings))
	for _, b := range bindings {
		kind := b.Kind()
		if _, dup := byKind[kind]; dup {
			return nil, &ConfigurationError{Kind: kind, Msg: "registered more than once"}
		}
		byKind[kind] = b
	}
	return &Registry{byKind: byKind}, nil
}

// DefaultBindings returns every built-in evaluator.
func DefaultBindings() []Binding {
	return []Binding{
		Bind[PriceThresholdParams](PriceThreshold{}),
		Bind[PctChangeParams](PctChange{}),
		Bind[MaCrossParams](MaCross{}),
		Bind[RSIParams](RSI{}),
		Bind[VolumeSpikeParams](VolumeSpike{}),
	}
}

// Require returns the binding for kind or a MissingEvaluatorError.
func (r *Registry) Require(kind models.AlertKind) (Binding, error) {
	b, ok := r.byKind[kind]
	if !ok {
		return nil, &MissingEvaluatorError{Kind: kind}
	}
	return b, nil
}

// Kinds returns the registered kinds sorted by name.
func (r *Registry) Kinds() []models.AlertKind {
	out := make([]models.AlertKind, 0, len(r.byKind))
	for k := range r.byKind {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
