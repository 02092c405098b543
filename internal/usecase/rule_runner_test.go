package usecase

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/evaluator"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
)

func TestRuleRunnerOutcomes(t *testing.T) {
	fired, quiet, failing, panicking := newRule("A", models.D1), newRule("A", models.D1), newRule("A", models.D1), newRule("A", models.D1)
	ev := &stubEvaluator{
		fire:   map[uuid.UUID]evaluator.Result{fired.ID: {Triggered: true, Severity: models.SeverityWarning, Fingerprint: "fp"}},
		fail:   map[uuid.UUID]error{failing.ID: errBoom},
		panics: map[uuid.UUID]bool{panicking.ID: true},
	}
	m := newCountingMetrics()
	r := NewRuleRunner(ev, m, logger.Nop())
	ec := evaluator.Context{EvaluatedAt: time.Now(), Timeframe: models.D1}
	series := &models.PriceSeries{Symbol: "A", Timeframe: models.D1}

	cases := []struct {
		rule *models.AlertRule
		want Outcome
	}{
		{&fired, OutcomeFired},
		{&quiet, OutcomeNoOp},
		{&failing, OutcomeError},
		{&panicking, OutcomeError},
	}
	for _, tc := range cases {
		got := r.Run("c1", ec, tc.rule, series)
		if got.Outcome != tc.want {
			t.Fatalf("rule %s: outcome %s, want %s", tc.rule.ID, got.Outcome, tc.want)
		}
		if got.Rule != tc.rule {
			t.Fatalf("result must carry its rule")
		}
		if tc.want == OutcomeError && got.Err == nil {
			t.Fatalf("error outcome without cause")
		}
	}
	if m.rulesEvaluated != 4 {
		t.Fatalf("rules evaluated = %d, want 4", m.rulesEvaluated)
	}
	if m.errorCount(metrics.CategoryEvaluation) != 2 {
		t.Fatalf("evaluation errors = %d, want 2", m.errorCount(metrics.CategoryEvaluation))
	}
}
