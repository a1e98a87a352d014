// Package metrics records ingestion run counters and pushes them to a
// Prometheus Pushgateway. An ingest run is a batch job with nothing to
// scrape, so results are pushed once at the end.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/stwalsh4118/picregistry/internal/ingest"
)

// DefaultJob is the Pushgateway job name for ingest runs.
const DefaultJob = "pic_ingest"

// Row kinds used as the "kind" label.
const (
	KindInserted = "inserted"
	KindUpdated  = "updated"
	KindSkipped  = "skipped"
	KindBlank    = "blank"
)

// Recorder holds the metrics of one ingest run in its own registry.
type Recorder struct {
	reg         *prometheus.Registry
	rows        *prometheus.CounterVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() (*Recorder, error) {
	reg := prometheus.NewRegistry()

	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pic_ingest_rows_total",
			Help: "Data rows handled by the last PIC ingest run, by outcome.",
		},
		[]string{"kind"},
	)
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pic_ingest_duration_seconds",
		Help: "Wall time of the last PIC ingest run.",
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pic_ingest_last_success_timestamp_seconds",
		Help: "Unix time the last successful PIC ingest run finished.",
	})

	for _, c := range []prometheus.Collector{rows, duration, lastSuccess} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register ingest metric: %w", err)
		}
	}

	// Pre-create every kind so zero counts are pushed too.
	for _, k := range []string{KindInserted, KindUpdated, KindSkipped, KindBlank} {
		rows.WithLabelValues(k)
	}

	return &Recorder{
		reg:         reg,
		rows:        rows,
		duration:    duration,
		lastSuccess: lastSuccess,
	}, nil
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Observe records a committed run's summary.
func (r *Recorder) Observe(sum ingest.Summary, elapsed time.Duration, finished time.Time) {
	r.rows.WithLabelValues(KindInserted).Add(float64(sum.Inserted))
	r.rows.WithLabelValues(KindUpdated).Add(float64(sum.Updated))
	r.rows.WithLabelValues(KindSkipped).Add(float64(sum.Skipped))
	r.rows.WithLabelValues(KindBlank).Add(float64(sum.Blank))
	r.duration.Set(elapsed.Seconds())
	r.lastSuccess.Set(float64(finished.Unix()))
}

// Push replaces the metrics grouped under job and jurisdiction on the
// gateway at gatewayURL.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job, jurisdiction string) error {
	if gatewayURL == "" {
		return fmt.Errorf("pushgateway URL is required")
	}
	if job == "" {
		job = DefaultJob
	}

	p := push.New(gatewayURL, job).Gatherer(r.reg)
	if jurisdiction != "" {
		p = p.Grouping("jurisdiction", jurisdiction)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
