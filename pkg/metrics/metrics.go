// Package metrics exposes Prometheus instruments for backend calls and form
// rendering. Each Recorder owns its registry so tests and embedded servers
// do not collide on the default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formblocks"

// Recorder collects formblocks metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	formsRendered   *prometheus.CounterVec
	submissions     *prometheus.CounterVec
}

// New registers the formblocks collectors plus the Go and process
// collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Backend POST calls by endpoint and outcome category.",
		}, []string{"endpoint", "category"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Backend POST latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		formsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forms_rendered_total",
			Help:      "Rendered forms by variant and result.",
		}, []string{"variant", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Form submissions by action and outcome category.",
		}, []string{"action", "category"}),
	}
	r.registry.MustRegister(
		r.backendCalls,
		r.backendDuration,
		r.formsRendered,
		r.submissions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// BackendCall records one backend call.
func (r *Recorder) BackendCall(endpoint, category string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.backendCalls.WithLabelValues(endpoint, category).Inc()
	r.backendDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// FormRendered records a form render.
func (r *Recorder) FormRendered(variant, result string) {
	if r == nil {
		return
	}
	r.formsRendered.WithLabelValues(variant, result).Inc()
}

// Submission records a submit, delete or restore.
func (r *Recorder) Submission(action, category string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(action, category).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
