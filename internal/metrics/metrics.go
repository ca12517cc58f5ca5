// Package metrics records refresh runs as Prometheus metrics. layersync runs
// as a short-lived command, so metrics are exported by writing a
// node-exporter textfile or pushing to a Pushgateway rather than serving an
// endpoint.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/agentstation/layersync/pkg/errors"
)

// Manager owns the refresh metrics and their private registry.
type Manager struct {
	namespace   string
	buckets     []float64
	constLabels map[string]string
	registry    *prometheus.Registry

	batchesRead     prometheus.Counter
	recordsIn       prometheus.Counter
	recordsOut      prometheus.Gauge
	recordsReplaced prometheus.Counter
	recordsSkipped  prometheus.Counter
	overwrites      *prometheus.CounterVec
	runs            *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	lastSuccess     prometheus.Gauge
}

// NewManager creates a metrics manager on a fresh registry unless one is
// supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "layersync",
		buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 300, 900},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.batchesRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "batches_read_total",
		Help:        "Batches read for merging",
		ConstLabels: m.constLabels,
	})
	m.recordsIn = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "records_in_total",
		Help:        "Records read across all batches",
		ConstLabels: m.constLabels,
	})
	m.recordsOut = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "records_out",
		Help:        "Records in the most recent merged output",
		ConstLabels: m.constLabels,
	})
	m.recordsReplaced = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "records_replaced_total",
		Help:        "Records superseded by a later batch",
		ConstLabels: m.constLabels,
	})
	m.recordsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "records_skipped_total",
		Help:        "Malformed records dropped under the skip policy",
		ConstLabels: m.constLabels,
	})
	m.overwrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "overwrites_total",
		Help:        "Overwrite attempts by final job status",
		ConstLabels: m.constLabels,
	}, []string{"status"})
	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        "runs_total",
		Help:        "Refresh runs by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})
	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        "stage_duration_seconds",
		Help:        "Duration of each refresh stage",
		Buckets:     m.buckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})
	m.lastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last successful refresh",
		ConstLabels: m.constLabels,
	})
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// RecordMerge records the counts of one merge.
func (m *Manager) RecordMerge(batches, in, out, replaced, skipped int) {
	m.batchesRead.Add(float64(batches))
	m.recordsIn.Add(float64(in))
	m.recordsOut.Set(float64(out))
	m.recordsReplaced.Add(float64(replaced))
	m.recordsSkipped.Add(float64(skipped))
}

// RecordOverwrite counts an overwrite by its final status.
func (m *Manager) RecordOverwrite(status string) {
	if status == "" {
		status = "unknown"
	}
	m.overwrites.WithLabelValues(status).Inc()
}

// ObserveStage records how long a stage took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished run and, on success, stamps its time.
func (m *Manager) RecordRun(success bool, at time.Time) {
	if success {
		m.runs.WithLabelValues("success").Inc()
		m.lastSuccess.Set(float64(at.Unix()))
		return
	}
	m.runs.WithLabelValues("failure").Inc()
}

// WriteTextfile writes all metrics to path in the text exposition format
// for the node-exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Push sends all metrics to a Pushgateway under job, replacing the
// previous push for that job.
func (m *Manager) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return &errors.APIError{Service: "pushgateway", Endpoint: url, Message: "push failed", Err: err}
	}
	return nil
}
