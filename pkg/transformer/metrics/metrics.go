// Package metrics exposes Prometheus instrumentation for pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tc_transformer"

// Group outcomes.
const (
	OutcomeEnriched    = "enriched"
	OutcomeNoActions   = "no_actions"
	OutcomeParseFailed = "parse_failed"
	OutcomeMismatch    = "mismatch"
	OutcomeUnmatched   = "unmatched"
	OutcomeFailed      = "failed"
)

// Recorder records pipeline metrics. A nil *Recorder is a valid no-op.
type Recorder struct {
	groups        *prometheus.CounterVec
	rowsEnriched  prometheus.Counter
	parseFailures prometheus.Counter
	stageDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_total",
			Help:      "Groups processed, by outcome.",
		}, []string{"outcome"}),
		rowsEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_enriched_total",
			Help:      "Rows that received locator data.",
		}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_parse_failures_total",
			Help:      "Extraction responses that could not be parsed after repair.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{r.groups, r.rowsEnriched, r.parseFailures, r.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Group counts one processed group.
func (r *Recorder) Group(outcome string) {
	if r == nil {
		return
	}
	r.groups.WithLabelValues(outcome).Inc()
}

// RowsEnriched adds n enriched rows.
func (r *Recorder) RowsEnriched(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rowsEnriched.Add(float64(n))
}

// ParseFailure counts one unparseable extraction response.
func (r *Recorder) ParseFailure() {
	if r == nil {
		return
	}
	r.parseFailures.Inc()
}

// ObserveStage records how long a stage took since start.
func (r *Recorder) ObserveStage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
