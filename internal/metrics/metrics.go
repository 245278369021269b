// Package metrics provides the Prometheus counters the enrichment pipeline
// reports through /health and /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/model"
)

const namespace = "suplook"

// Pipeline holds the process-wide enrichment counters. A nil *Pipeline is
// valid and records nothing.
type Pipeline struct {
	Analyzed       prometheus.Counter
	Corrected      prometheus.Counter
	Enriched       *prometheus.CounterVec
	VisionResults  *prometheus.CounterVec
	SourceFailures *prometheus.CounterVec
	EnrichDuration prometheus.Histogram

	registry *prometheus.Registry
}

// Stats is the counter snapshot reported by the health endpoint.
type Stats struct {
	Analyzed  int `json:"analyzed"`
	Corrected int `json:"corrected"`
}

// New creates the pipeline metrics and registers them with registry. A nil
// registry gets a fresh one.
func New(registry *prometheus.Registry) (*Pipeline, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Pipeline{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, eris.Wrap(err, "metrics: register pipeline metrics")
	}
	return m, nil
}

func (m *Pipeline) initMetrics() {
	m.Analyzed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vision_analyzed_total",
		Help:      "Total number of successful vision classifications.",
	})
	m.Corrected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "corrections_recorded_total",
		Help:      "Total number of recorded correction events.",
	})
	m.Enriched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_enriched_total",
		Help:      "Total number of enriched leads by photo tier.",
	}, []string{"tier"})
	m.VisionResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vision_results_total",
		Help:      "Vision classifier results by status.",
	}, []string{"status"})
	m.SourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photo_source_failures_total",
		Help:      "Photo source lookups that degraded to an empty result.",
	}, []string{"source"})
	m.EnrichDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "lead_enrich_duration_seconds",
		Help:      "Duration of a single lead enrichment in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	})
}

// IncAnalyzed records a successful vision call.
func (m *Pipeline) IncAnalyzed() {
	if m == nil {
		return
	}
	m.Analyzed.Inc()
}

// IncCorrected records a correction event.
func (m *Pipeline) IncCorrected() {
	if m == nil {
		return
	}
	m.Corrected.Inc()
}

// ObserveEnriched records one finished lead and how long it took.
func (m *Pipeline) ObserveEnriched(tier model.Tier, seconds float64) {
	if m == nil {
		return
	}
	m.Enriched.WithLabelValues(strconv.Itoa(int(tier))).Inc()
	m.EnrichDuration.Observe(seconds)
}

// ObserveVision records a classifier result status.
func (m *Pipeline) ObserveVision(status string) {
	if m == nil {
		return
	}
	m.VisionResults.WithLabelValues(status).Inc()
}

// IncSourceFailure records a photo source that degraded to empty.
func (m *Pipeline) IncSourceFailure(source string) {
	if m == nil {
		return
	}
	m.SourceFailures.WithLabelValues(source).Inc()
}

// Snapshot reads the analyzed and corrected counters.
func (m *Pipeline) Snapshot() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		Analyzed:  counterValue(m.Analyzed),
		Corrected: counterValue(m.Corrected),
	}
}

// EnrichedByTier reads the per-tier enrichment counters.
func (m *Pipeline) EnrichedByTier() map[model.Tier]int {
	out := map[model.Tier]int{}
	if m == nil {
		return out
	}
	for _, t := range []model.Tier{model.TierDirectory, model.TierSecondary, model.TierRuleOnly} {
		out[t] = counterValue(m.Enriched.WithLabelValues(strconv.Itoa(int(t))))
	}
	return out
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Collect implements the prometheus.Collector interface.
func (m *Pipeline) Collect(ch chan<- prometheus.Metric) {
	m.Analyzed.Collect(ch)
	m.Corrected.Collect(ch)
	m.Enriched.Collect(ch)
	m.VisionResults.Collect(ch)
	m.SourceFailures.Collect(ch)
	m.EnrichDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *Pipeline) Describe(ch chan<- *prometheus.Desc) {
	m.Analyzed.Describe(ch)
	m.Corrected.Describe(ch)
	m.Enriched.Describe(ch)
	m.VisionResults.Describe(ch)
	m.SourceFailures.Describe(ch)
	m.EnrichDuration.Describe(ch)
}

func counterValue(c prometheus.Counter) int {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return int(metric.GetCounter().GetValue())
}
