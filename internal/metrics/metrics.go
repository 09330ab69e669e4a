// Package metrics exposes Prometheus collectors for the snapshot pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// outcomeSuccess is the outcome label for successful runs; failures use
// their blocked reason as the label value.
const outcomeSuccess = "success"

// Pipeline holds the pipeline's Prometheus collectors.
type Pipeline struct {
	snapshots *prometheus.CounterVec
	fetchSize prometheus.Histogram
	duration  prometheus.Histogram
}

// NewPipeline creates and registers the pipeline collectors on reg. Pass
// prometheus.DefaultRegisterer outside tests.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagekeep_snapshots_total",
			Help: "Snapshot pipeline runs by outcome (success or blocked reason).",
		}, []string{"outcome"}),
		fetchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagekeep_fetch_bytes",
			Help:    "Size of fetched page bodies in bytes.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1 KB .. 16 MB
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagekeep_pipeline_duration_seconds",
			Help:    "End-to-end snapshot pipeline duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(p.snapshots, p.fetchSize, p.duration)
	}

	return p
}

// RecordSuccess counts a successful run.
func (p *Pipeline) RecordSuccess(elapsed time.Duration) {
	p.snapshots.WithLabelValues(outcomeSuccess).Inc()
	p.duration.Observe(elapsed.Seconds())
}

// RecordBlocked counts a failed run under its blocked reason.
func (p *Pipeline) RecordBlocked(reason string, elapsed time.Duration) {
	p.snapshots.WithLabelValues(reason).Inc()
	p.duration.Observe(elapsed.Seconds())
}

// RecordFetchBytes observes the size of a fetched body.
func (p *Pipeline) RecordFetchBytes(size int) {
	p.fetchSize.Observe(float64(size))
}
