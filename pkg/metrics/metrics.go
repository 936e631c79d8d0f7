// Package metrics exposes Prometheus counters for the console and its
// pipeline calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pipeview"

// Pipeline call outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	reg *prometheus.Registry

	PipelineRequests *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	Submissions      *prometheus.CounterVec
	HTTPResponses    *prometheus.CounterVec
	HTTPDuration     prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		PipelineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_requests_total",
			Help:      "Pipeline requests by outcome",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_request_duration_seconds",
			Help:      "Pipeline request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 3, 5, 10, 30, 60, 120},
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Console submissions by result",
		}, []string{"result"}),
		HTTPResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP responses by status code",
		}, []string{"code"}),
		HTTPDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.reg.MustRegister(m.PipelineRequests, m.PipelineDuration, m.Submissions, m.HTTPResponses, m.HTTPDuration)
	return m
}

// ObservePipeline records one finished pipeline call.
func (m *Metrics) ObservePipeline(outcome string, duration time.Duration) {
	m.PipelineRequests.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(duration.Seconds())
}

// ObserveSubmission counts a console submission; result is "ok", "empty",
// "busy" or "error".
func (m *Metrics) ObserveSubmission(result string) {
	m.Submissions.WithLabelValues(result).Inc()
}

// ObserveHTTP records a served response.
func (m *Metrics) ObserveHTTP(status int, duration time.Duration) {
	m.HTTPResponses.WithLabelValues(strconv.Itoa(status)).Inc()
	m.HTTPDuration.Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
