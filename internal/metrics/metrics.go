package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for zapdrip
type Metrics struct {
	// Dispatch counters
	MessagesSentTotal   *prometheus.CounterVec
	MessagesFailedTotal prometheus.Counter
	FallbacksTotal      *prometheus.CounterVec
	ChunksSentTotal     prometheus.Counter

	// Campaign gauges
	ActiveCampaigns prometheus.Gauge
	LeadsPending    prometheus.Gauge

	// Iteration timing
	IterationDurationSeconds prometheus.Histogram

	// API metrics
	APIRequestsTotal *prometheus.CounterVec

	// Rate limiting
	BudgetExceededTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zapdrip_messages_sent_total",
				Help: "Total number of leads successfully messaged",
			},
			[]string{"outcome"}, // personalizado | padrao
		),
		MessagesFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "zapdrip_messages_failed_total",
				Help: "Total number of leads that ended in error",
			},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zapdrip_fallbacks_total",
				Help: "Total number of personalization fallbacks by reason",
			},
			[]string{"reason"},
		),
		ChunksSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "zapdrip_chunks_sent_total",
				Help: "Total number of message chunks delivered to the gateway",
			},
		),

		ActiveCampaigns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "zapdrip_active_campaigns",
				Help: "Number of campaigns with a live dispatch timer",
			},
		),
		LeadsPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "zapdrip_leads_pending",
				Help: "Number of pending leads across running campaigns",
			},
		),

		IterationDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zapdrip_iteration_duration_seconds",
				Help:    "Duration of one dispatch iteration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zapdrip_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),

		BudgetExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zapdrip_budget_exceeded_total",
				Help: "Total number of sends deferred by the instance budget",
			},
			[]string{"instance"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.MessagesSentTotal,
		m.MessagesFailedTotal,
		m.FallbacksTotal,
		m.ChunksSentTotal,
		m.ActiveCampaigns,
		m.LeadsPending,
		m.IterationDurationSeconds,
		m.APIRequestsTotal,
		m.BudgetExceededTotal,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncMessagesSent increments the sent counter for an outcome
func IncMessagesSent(outcome string) {
	m := Global()
	if m != nil {
		m.MessagesSentTotal.WithLabelValues(outcome).Inc()
	}
}

// IncMessagesFailed increments the failed lead counter
func IncMessagesFailed() {
	m := Global()
	if m != nil {
		m.MessagesFailedTotal.Inc()
	}
}

// IncFallbacks increments the fallback counter for a reason
func IncFallbacks(reason string) {
	m := Global()
	if m != nil {
		m.FallbacksTotal.WithLabelValues(reason).Inc()
	}
}

// IncChunksSent increments the delivered chunk counter
func IncChunksSent() {
	m := Global()
	if m != nil {
		m.ChunksSentTotal.Inc()
	}
}

// IncBudgetExceeded increments the budget deferral counter
func IncBudgetExceeded(instance string) {
	m := Global()
	if m != nil {
		m.BudgetExceededTotal.WithLabelValues(instance).Inc()
	}
}

// ObserveIteration records one iteration duration
func ObserveIteration(seconds float64) {
	m := Global()
	if m != nil {
		m.IterationDurationSeconds.Observe(seconds)
	}
}
