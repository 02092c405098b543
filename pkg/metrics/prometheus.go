package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alertengine"

// Error categories recorded under scheduler_errors_total.
const (
	CategoryUnsupportedTimeframe = "unsupported_timeframe"
	CategoryEmptySeries          = "empty_series"
	CategoryPriceFetch           = "price_fetch"
	CategoryEvaluation           = "evaluation"
	CategoryPersistence          = "persistence"
	CategoryNotification         = "notification"
	CategoryCycle                = "cycle"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycleLatency    prometheus.Histogram
	lastSuccess     prometheus.Gauge
	groupsProcessed prometheus.Counter
	rulesEvaluated  prometheus.Counter
	alertsTriggered prometheus.Counter
	fetchLatency    prometheus.Histogram
	ruleLatency     prometheus.Histogram
	errorsTotal     *prometheus.CounterVec
	cyclesSkipped   prometheus.Counter
	clientLatency   *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycleLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_cycle_latency_seconds",
			Help:      "Duration of a full evaluation cycle in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_last_success_epoch_seconds",
			Help:      "Unix time of the last successful cycle",
		}),
		groupsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_groups_processed_total",
			Help:      "Total number of (symbol, timeframe) groups processed",
		}),
		rulesEvaluated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_rules_evaluated_total",
			Help:      "Total number of rule evaluations",
		}),
		alertsTriggered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_alerts_triggered_total",
			Help:      "Total number of alert events persisted",
		}),
		fetchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_fetch_latency_seconds",
			Help:      "Duration of per-group price history fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ruleLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_rule_latency_seconds",
			Help:      "Duration of a single rule evaluation in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_errors_total",
			Help:      "Total number of errors encountered by category",
		}, []string{"category"}),
		cyclesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_cycles_skipped_total",
			Help:      "Total number of cycle triggers dropped because a cycle was in flight",
		}),
		clientLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricedata_client_latency_seconds",
			Help:      "Duration of price data requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (r *Recorder) RecordCycleLatency(d time.Duration) { r.cycleLatency.Observe(d.Seconds()) }

func (r *Recorder) SetLastSuccess(t time.Time) { r.lastSuccess.Set(float64(t.Unix())) }

func (r *Recorder) IncGroupsProcessed(n int) { r.groupsProcessed.Add(float64(n)) }

func (r *Recorder) IncRulesEvaluated() { r.rulesEvaluated.Inc() }

func (r *Recorder) IncAlertsTriggered() { r.alertsTriggered.Inc() }

func (r *Recorder) RecordFetchLatency(d time.Duration) { r.fetchLatency.Observe(d.Seconds()) }

func (r *Recorder) RecordRuleLatency(d time.Duration) { r.ruleLatency.Observe(d.Seconds()) }

// RecordError records an error occurrence under the given category.
func (r *Recorder) RecordError(category string) {
	r.errorsTotal.WithLabelValues(category).Inc()
}

func (r *Recorder) IncCyclesSkipped() { r.cyclesSkipped.Inc() }

// RecordClientLatency records the latency of one outbound price data call.
func (r *Recorder) RecordClientLatency(endpoint string, d time.Duration) {
	r.clientLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Nop is a Metrics implementation that discards everything.
type Nop struct{}

func (Nop) RecordCycleLatency(time.Duration)          {}
func (Nop) SetLastSuccess(time.Time)                  {}
func (Nop) IncGroupsProcessed(int)                    {}
func (Nop) IncRulesEvaluated()                        {}
func (Nop) IncAlertsTriggered()                       {}
func (Nop) RecordFetchLatency(time.Duration)          {}
func (Nop) RecordRuleLatency(time.Duration)           {}
func (Nop) RecordError(string)                        {}
func (Nop) IncCyclesSkipped()                         {}
func (Nop) RecordClientLatency(string, time.Duration) {}
