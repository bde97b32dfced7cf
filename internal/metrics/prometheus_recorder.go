package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	cycleDuration prom.Histogram
	cycleOutcome  *prom.CounterVec
	conversions   prom.Counter
	patchPlans    *prom.CounterVec
	batchCount    prom.Histogram
	requestCount  prom.Histogram
	queueMessages *prom.CounterVec
	stackedChars  *prom.GaugeVec
	retries       prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.cycleDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "archivist",
			Name:      "update_cycle_duration_seconds",
			Help:      "Duration of full update cycles",
			Buckets:   prom.DefBuckets,
		})
		pr.cycleOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "archivist",
			Name:      "update_cycle_outcomes_total",
			Help:      "Update cycle outcomes by final status",
		}, []string{"outcome"})
		pr.conversions = prom.NewCounter(prom.CounterOpts{
			Namespace: "archivist",
			Name:      "conversions_total",
			Help:      "Markup conversions performed",
		})
		pr.patchPlans = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "archivist",
			Name:      "patch_plans_total",
			Help:      "Patch plans assembled, partitioned by fallback",
		}, []string{"fallback"})
		pr.batchCount = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "archivist",
			Name:      "plan_batches",
			Help:      "Batches per submitted plan",
			Buckets:   []float64{1, 2, 3, 5, 10, 20},
		})
		pr.requestCount = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "archivist",
			Name:      "plan_requests",
			Help:      "Requests per submitted plan",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		})
		pr.queueMessages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "archivist",
			Name:      "queue_messages_total",
			Help:      "Queue messages by processing result",
		}, []string{"result"})
		pr.stackedChars = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "archivist",
			Name:      "stacked_chars",
			Help:      "Characters accumulated per document awaiting flush",
		}, []string{"doc"})
		pr.retries = prom.NewCounter(prom.CounterOpts{
			Namespace: "archivist",
			Name:      "cycle_retries_total",
			Help:      "Update cycle retries (transient failures)",
		})
		reg.MustRegister(pr.cycleDuration, pr.cycleOutcome, pr.conversions, pr.patchPlans,
			pr.batchCount, pr.requestCount, pr.queueMessages, pr.stackedChars, pr.retries)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCycleDuration(d time.Duration) {
	if p == nil || p.cycleDuration == nil {
		return
	}
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCycleOutcome(outcome OutcomeLabel) {
	if p == nil || p.cycleOutcome == nil {
		return
	}
	p.cycleOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncConversions() {
	if p == nil || p.conversions == nil {
		return
	}
	p.conversions.Inc()
}

func (p *PrometheusRecorder) IncPatchPlans(fallback bool) {
	if p == nil || p.patchPlans == nil {
		return
	}
	label := "false"
	if fallback {
		label = "true"
	}
	p.patchPlans.WithLabelValues(label).Inc()
}

func (p *PrometheusRecorder) ObserveBatchCount(n int) {
	if p == nil || p.batchCount == nil {
		return
	}
	p.batchCount.Observe(float64(n))
}

func (p *PrometheusRecorder) ObserveRequestCount(n int) {
	if p == nil || p.requestCount == nil {
		return
	}
	p.requestCount.Observe(float64(n))
}

func (p *PrometheusRecorder) IncQueueMessages(result string) {
	if p == nil || p.queueMessages == nil {
		return
	}
	p.queueMessages.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetStackedChars(docID string, n int) {
	if p == nil || p.stackedChars == nil {
		return
	}
	p.stackedChars.WithLabelValues(docID).Set(float64(n))
}

func (p *PrometheusRecorder) IncRetries() {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.Inc()
}
