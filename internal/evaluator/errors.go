package evaluator

import (
	"fmt"

	"AlertEngine/internal/domain/models"
)

// ConfigurationError means the evaluator set is inconsistent and boot must halt.
type ConfigurationError struct {
	Kind models.AlertKind
	Msg  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("evaluator configuration error for %s: %s", e.Kind, e.Msg)
}

// MissingEvaluatorError is returned when no evaluator is registered for a rule kind.
type MissingEvaluatorError struct {
	Kind models.AlertKind
}

func (e *MissingEvaluatorError) Error() string {
	return fmt.Sprintf("no evaluator registered for kind %s", e.Kind)
}

// InvalidParamsError reports rule params that failed validation or conversion.
type InvalidParamsError struct {
	Kind   models.AlertKind
	Path   string
	Detail string
	Err    error
}

func (e *InvalidParamsError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid params for %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("invalid params for %s at %s: %s", e.Kind, e.Path, e.Detail)
}

func (e *InvalidParamsError) Unwrap() error { return e.Err }
