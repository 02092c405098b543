package usecase

import (
	"fmt"
	"runtime/debug"
	"time"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/domain/repository"
	"AlertEngine/internal/evaluator"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
)

// Outcome tags a per-rule evaluation.
type Outcome int

const (
	OutcomeNoOp Outcome = iota
	OutcomeFired
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFired:
		return "FIRED"
	case OutcomeError:
		return "ERROR"
	default:
		return "NOOP"
	}
}

// RunResult is the outcome of one rule within one cycle.
type RunResult struct {
	Rule    *models.AlertRule
	Outcome Outcome
	Result  evaluator.Result
	Err     error
}

// RuleEvaluator resolves a rule to its evaluator and runs it.
type RuleEvaluator interface {
	Evaluate(ec evaluator.Context, rule *models.AlertRule, series *models.PriceSeries) (evaluator.Result, error)
}

// RuleRunner evaluates a single rule, isolating failures and panics.
type RuleRunner struct {
	evaluator RuleEvaluator
	metrics   repository.Metrics
	log       *logger.Logger
}

func NewRuleRunner(ev RuleEvaluator, m repository.Metrics, log *logger.Logger) *RuleRunner {
	return &RuleRunner{evaluator: ev, metrics: m, log: log}
}

func (r *RuleRunner) Run(cycleID string, ec evaluator.Context, rule *models.AlertRule, series *models.PriceSeries) (out RunResult) {
	out.Rule = rule
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.Outcome = OutcomeError
			out.Err = fmt.Errorf("evaluator panic: %v", p)
			r.log.Error("alert-eval-rule-panic",
				logger.String("cycle_id", cycleID),
				logger.String("rule_id", rule.ID.String()),
				logger.String("kind", string(rule.Kind)),
				logger.Any("panic", p),
				logger.String("stack", string(debug.Stack())))
		}
		if out.Outcome == OutcomeError {
			r.metrics.RecordError(metrics.CategoryEvaluation)
		}
		r.metrics.IncRulesEvaluated()
		r.metrics.RecordRuleLatency(time.Since(start))
	}()

	res, err := r.evaluator.Evaluate(ec, rule, series)
	if err != nil {
		r.log.Warn("alert-eval-rule-error",
			logger.String("cycle_id", cycleID),
			logger.String("rule_id", rule.ID.String()),
			logger.String("kind", string(rule.Kind)),
			logger.Error(err))
		return RunResult{Rule: rule, Outcome: OutcomeError, Err: err}
	}
	if !res.Triggered {
		return RunResult{Rule: rule, Outcome: OutcomeNoOp, Result: res}
	}
	return RunResult{Rule: rule, Outcome: OutcomeFired, Result: res}
}
