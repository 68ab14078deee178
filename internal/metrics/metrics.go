package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seattle_events"

// Metrics owns a private registry so several instances (tests, embedded
// servers) never collide on registration. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	pipelineRuns *prometheus.CounterVec
	resultSize   prometheus.Histogram
	warnings     prometheus.Counter
	ingested     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status",
	}, []string{"route", "method", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	m.pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Filter and aggregation runs by kind",
	}, []string{"kind"})
	m.resultSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_result_events",
		Help:      "Number of events returned by a filter run",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
	m.warnings = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_warnings_total",
		Help:      "Warnings attached to filter results",
	})
	m.ingested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_messages_total",
		Help:      "Ingested event messages by source and outcome",
	}, []string{"source", "outcome"})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.pipelineRuns, m.resultSize, m.warnings,
		m.ingested,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveFilter records one filter run.
func (m *Metrics) ObserveFilter(events, warnings int) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues("filter").Inc()
	m.resultSize.Observe(float64(events))
	m.warnings.Add(float64(warnings))
}

func (m *Metrics) ObserveAggregate() {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues("aggregate").Inc()
}

func (m *Metrics) IngestOutcome(source, outcome string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(source, outcome).Inc()
}
