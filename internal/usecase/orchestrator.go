package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/domain/repository"
	"AlertEngine/internal/evaluator"
	"AlertEngine/pkg/config"
	"AlertEngine/pkg/logger"
)

// SeriesLoader returns the price series of a group or nil to skip it.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, cycleID, symbol string, tf models.Timeframe) *models.PriceSeries
}

// Persister stores a fired result.
type Persister interface {
	Persist(ctx context.Context, cycleID string, rule *models.AlertRule, triggeredAt time.Time, res evaluator.Result) SinkResult
}

// CycleOrchestrator runs one evaluation cycle over all active rules.
type CycleOrchestrator struct {
	rules       repository.RuleStore
	fetcher     SeriesLoader
	runner      *RuleRunner
	sink        Persister
	parallelism int
	metrics     repository.Metrics
	log         *logger.Logger
}

func NewCycleOrchestrator(
	rules repository.RuleStore,
	fetcher SeriesLoader,
	runner *RuleRunner,
	sink Persister,
	cfg *config.Config,
	m repository.Metrics,
	log *logger.Logger,
) *CycleOrchestrator {
	p := cfg.Scheduler.MaxParallelEvaluations
	if p < 1 {
		p = 1
	}
	return &CycleOrchestrator{
		rules:       rules,
		fetcher:     fetcher,
		runner:      runner,
		sink:        sink,
		parallelism: p,
		metrics:     m,
		log:         log,
	}
}

type ruleGroup struct {
	key   models.GroupKey
	rules []*models.AlertRule
}

// Execute evaluates every active rule. Groups are fetched once and processed
// in order; rules inside a group are evaluated on a bounded pool while fired
// results are persisted one at a time on the calling goroutine.
func (o *CycleOrchestrator) Execute(ctx context.Context, cycleID string, startedAt time.Time) error {
	rules, err := o.rules.FindAllActive(ctx)
	if err != nil {
		return fmt.Errorf("load active rules: %w", err)
	}

	groups := groupRules(rules)
	if len(groups) == 0 {
		o.log.Info("alert-eval-cycle-empty", logger.String("cycle_id", cycleID))
		return nil
	}

	processed := 0
	for _, g := range groups {
		series := o.fetcher.LoadSeries(ctx, cycleID, g.key.Symbol, g.key.Timeframe)
		if series == nil {
			continue
		}
		ec := evaluator.Context{EvaluatedAt: startedAt, Timeframe: g.key.Timeframe}
		o.evaluateGroup(ctx, cycleID, ec, g.rules, series)
		processed++
	}
	o.metrics.IncGroupsProcessed(processed)
	return nil
}

func (o *CycleOrchestrator) evaluateGroup(ctx context.Context, cycleID string, ec evaluator.Context, rules []*models.AlertRule, series *models.PriceSeries) {
	jobs := make(chan *models.AlertRule)
	results := make(chan RunResult, len(rules))

	workers := o.parallelism
	if workers > len(rules) {
		workers = len(rules)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rule := range jobs {
				results <- o.runner.Run(cycleID, ec, rule, series)
			}
		}()
	}
	go func() {
		for _, r := range rules {
			jobs <- r
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.Outcome != OutcomeFired {
			continue
		}
		if debounced(res.Rule, ec.EvaluatedAt) {
			o.log.Info("alert-eval-rule-debounced",
				logger.String("cycle_id", cycleID),
				logger.String("rule_id", res.Rule.ID.String()),
				logger.Time("last_triggered_at", *res.Rule.LastTriggeredAt))
			continue
		}
		o.sink.Persist(ctx, cycleID, res.Rule, ec.EvaluatedAt, res.Result)
	}
}

// debounced reports whether at falls strictly within the rule's debounce
// window after its last trigger.
func debounced(rule *models.AlertRule, at time.Time) bool {
	d, ok := rule.Debounce()
	if !ok || rule.LastTriggeredAt == nil {
		return false
	}
	return at.Sub(*rule.LastTriggeredAt) < d
}

// groupRules buckets active rules by (symbol, timeframe) keeping first-seen order.
func groupRules(rules []models.AlertRule) []ruleGroup {
	index := make(map[models.GroupKey]int)
	var groups []ruleGroup
	for i := range rules {
		r := &rules[i]
		if r.Status != models.RuleActive {
			continue
		}
		k := r.GroupKey()
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, ruleGroup{key: k})
		}
		groups[pos].rules = append(groups[pos].rules, r)
	}
	return groups
}
