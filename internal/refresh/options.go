package refresh

import (
	"github.com/agentstation/layersync/internal/metrics"
	"github.com/agentstation/layersync/pkg/csvio"
	"github.com/agentstation/layersync/pkg/reconcile"
)

// Option configures a Runner.
type Option func(*Runner)

// WithReader sets the reader used to decode batches.
func WithReader(r *csvio.Reader) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.reader = r
		}
	}
}

// WithWriter sets the writer used for the merged output.
func WithWriter(w *csvio.Writer) Option {
	return func(rn *Runner) {
		if w != nil {
			rn.writer = w
		}
	}
}

// WithReconciler sets the reconciler that merges the batches.
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.reconciler = r
		}
	}
}

// WithPublisher sets the portal the output is published to. Without one
// the runner works offline and every request must be a dry run.
func WithPublisher(p Publisher) Option {
	return func(rn *Runner) {
		rn.publisher = p
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(rn *Runner) {
		rn.metrics = m
	}
}

// WithHistory records each run in the ledger.
func WithHistory(h Recorder) Option {
	return func(rn *Runner) {
		rn.history = h
	}
}

// WithMetricsTextfile writes metrics to path after each run.
func WithMetricsTextfile(path string) Option {
	return func(rn *Runner) {
		rn.textfile = path
	}
}

// WithPushgateway pushes metrics to url under job after each run.
func WithPushgateway(url, job string) Option {
	return func(rn *Runner) {
		rn.pushURL = url
		rn.pushJob = job
	}
}
