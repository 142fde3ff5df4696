// Package metrics exposes Prometheus collectors for rule evaluations,
// alerts, uploads and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amlguard/internal/services/risk"
)

// Collector is what services record into.
type Collector interface {
	ObserveEvaluation(status risk.Status, flags []string, took time.Duration)
	ObserveAlert(status string)
	ObserveUploadRows(created, failed int)
	ObserveHTTP(method, route string, code int, took time.Duration)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) ObserveEvaluation(risk.Status, []string, time.Duration) {}
func (Noop) ObserveAlert(string)                                   {}
func (Noop) ObserveUploadRows(int, int)                            {}
func (Noop) ObserveHTTP(string, string, int, time.Duration)        {}

// Prometheus keeps its own registry so tests can build independent instances.
type Prometheus struct {
	registry *prometheus.Registry

	evaluations   *prometheus.CounterVec
	ruleHits      *prometheus.CounterVec
	evalDuration  prometheus.Histogram
	alerts        *prometheus.CounterVec
	uploadRows    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "evaluations_total",
			Help:      "Risk evaluations by resulting status.",
		}, []string{"status"}),
		ruleHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "rule_hits_total",
			Help:      "Rule triggers by flag.",
		}, []string{"flag"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "amlguard",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating and persisting one transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "alerts_total",
			Help:      "Alert transitions by target status.",
		}, []string{"status"}),
		uploadRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "upload_rows_total",
			Help:      "CSV upload rows by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amlguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.evaluations,
		p.ruleHits,
		p.evalDuration,
		p.alerts,
		p.uploadRows,
		p.httpRequests,
		p.httpDurations,
	)
	return p
}

func (p *Prometheus) ObserveEvaluation(status risk.Status, flags []string, took time.Duration) {
	p.evaluations.WithLabelValues(string(status)).Inc()
	for _, f := range flags {
		p.ruleHits.WithLabelValues(f).Inc()
	}
	p.evalDuration.Observe(took.Seconds())
}

func (p *Prometheus) ObserveAlert(status string) {
	p.alerts.WithLabelValues(status).Inc()
}

func (p *Prometheus) ObserveUploadRows(created, failed int) {
	p.uploadRows.WithLabelValues("created").Add(float64(created))
	p.uploadRows.WithLabelValues("failed").Add(float64(failed))
}

func (p *Prometheus) ObserveHTTP(method, route string, code int, took time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	p.httpDurations.WithLabelValues(method, route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry is exposed for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
