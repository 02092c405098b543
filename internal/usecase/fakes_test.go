package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/domain/repository"
	"AlertEngine/internal/evaluator"
	"AlertEngine/pkg/cache"
	"AlertEngine/pkg/config"
	"AlertEngine/pkg/logger"
)

type countingMetrics struct {
	mu              sync.Mutex
	errors          map[string]int
	rulesEvaluated  int
	alertsTriggered int
	groupsProcessed int
	cyclesSkipped   int
	lastSuccess     time.Time
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: make(map[string]int)}
}

func (m *countingMetrics) RecordCycleLatency(time.Duration) {}
func (m *countingMetrics) SetLastSuccess(t time.Time) {
	m.mu.Lock()
	m.lastSuccess = t
	m.mu.Unlock()
}
func (m *countingMetrics) IncGroupsProcessed(n int) {
	m.mu.Lock()
	m.groupsProcessed += n
	m.mu.Unlock()
}
func (m *countingMetrics) IncRulesEvaluated() {
	m.mu.Lock()
	m.rulesEvaluated++
	m.mu.Unlock()
}
func (m *countingMetrics) IncAlertsTriggered() {
	m.mu.Lock()
	m.alertsTriggered++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordFetchLatency(time.Duration) {}
func (m *countingMetrics) RecordRuleLatency(time.Duration)  {}
func (m *countingMetrics) RecordError(category string) {
	m.mu.Lock()
	m.errors[category]++
	m.mu.Unlock()
}
func (m *countingMetrics) IncCyclesSkipped() {
	m.mu.Lock()
	m.cyclesSkipped++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordClientLatency(string, time.Duration) {}

func (m *countingMetrics) errorCount(category string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[category]
}

var _ repository.Metrics = (*countingMetrics)(nil)

// memStore is an in-memory Store. Transactions are applied directly; failing
// operations are injected through the err fields.
type memStore struct {
	mu          sync.Mutex
	rules       map[uuid.UUID]models.AlertRule
	events      map[string]*models.AlertEvent
	inserts     int
	saves       int
	markedSent  int
	insertErr   error
	findErr     error
	markSentErr error
}

func newMemStore(rules ...models.AlertRule) *memStore {
	s := &memStore{rules: make(map[uuid.UUID]models.AlertRule), events: make(map[string]*models.AlertEvent)}
	for _, r := range rules {
		s.rules[r.ID] = r
	}
	return s
}

func (s *memStore) Rules() repository.RuleStore   { return (*memRules)(s) }
func (s *memStore) Events() repository.EventStore { return (*memEvents)(s) }
func (s *memStore) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(s)
}

type memRules memStore

func (r *memRules) FindAllActive(context.Context) ([]models.AlertRule, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AlertRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.Status == models.RuleActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRules) Save(_ context.Context, rule *models.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.rules[rule.ID] = *rule
	return nil
}

type memEvents memStore

func eventKey(ruleID uuid.UUID, fp string) string { return ruleID.String() + "|" + fp }

func (e *memEvents) InsertIfAbsent(_ context.Context, ev *models.AlertEvent) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inserts++
	if e.insertErr != nil {
		return 0, e.insertErr
	}
	k := eventKey(ev.RuleID, ev.Fingerprint)
	if _, ok := e.events[k]; ok {
		return 0, nil
	}
	cp := *ev
	e.events[k] = &cp
	return 1, nil
}

func (e *memEvents) FindByRuleAndFingerprint(_ context.Context, ruleID uuid.UUID, fp string) (*models.AlertEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.events[eventKey(ruleID, fp)]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (e *memEvents) MarkSent(_ context.Context, ev *models.AlertEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.markSentErr != nil {
		return e.markSentErr
	}
	e.markedSent++
	if stored, ok := e.events[eventKey(ev.RuleID, ev.Fingerprint)]; ok {
		stored.Sent = true
	}
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.AlertEvent
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, e *models.AlertEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, e)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type stubSource struct {
	mu      sync.Mutex
	calls   int
	candles []models.Candle
	err     error
}

func (s *stubSource) GetHistorical(context.Context, string, repository.Timeframe, *time.Time, *time.Time, int) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Candle, len(s.candles))
	copy(out, s.candles)
	return out, nil
}

// stubEvaluator fires or fails per rule id.
type stubEvaluator struct {
	mu     sync.Mutex
	calls  int
	fire   map[uuid.UUID]evaluator.Result
	fail   map[uuid.UUID]error
	panics map[uuid.UUID]bool
}

func (s *stubEvaluator) Evaluate(_ evaluator.Context, rule *models.AlertRule, _ *models.PriceSeries) (evaluator.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics[rule.ID] {
		panic("boom")
	}
	if err := s.fail[rule.ID]; err != nil {
		return evaluator.Result{}, err
	}
	if res, ok := s.fire[rule.ID]; ok {
		return res, nil
	}
	return evaluator.Result{Severity: models.SeverityInfo}, nil
}

type recordingPersister struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (p *recordingPersister) Persist(_ context.Context, _ string, rule *models.AlertRule, _ time.Time, _ evaluator.Result) SinkResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, rule.ID)
	return SinkResult{Outcome: SinkPersisted}
}

var errBoom = errors.New("boom")

func testConfig() *config.Config {
	cfg, err := config.Default()
	if err != nil {
		panic(err)
	}
	return cfg
}

func newRule(symbol string, tf models.Timeframe) models.AlertRule {
	return models.AlertRule{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Symbol:            symbol,
		Kind:              models.KindPriceThreshold,
		Timeframe:         tf,
		Status:            models.RuleActive,
		NotifyMinSeverity: models.SeverityInfo,
	}
}

func newMemoryState() *RuleStateStore {
	return NewRuleStateStore(cache.NewMemoryCache(), logger.Nop())
}

func dailyCandles(start time.Time, closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{OpenTime: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}
