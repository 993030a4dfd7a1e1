// Package metrics exports container events as Prometheus metrics.
//
// Install the observer when building the application context and mount the handler:
//
//	obs := metrics.NewObserver("ioc")
//	app := ioc.New(ioc.WithObserver(obs))
//	r.Get("/metrics", obs.Handler())
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ioc "github.com/plumeink/cullinan-ioc"
)

// Observer implements ioc.Observer on top of a private Prometheus registry.
type Observer struct {
	registry *prometheus.Registry

	resolutions    *prometheus.CounterVec
	resolveLatency *prometheus.HistogramVec
	creations      *prometheus.CounterVec
	createLatency  *prometheus.HistogramVec
	hookFailures   *prometheus.CounterVec
	activeRequests prometheus.Gauge
	requestScoped  prometheus.Histogram
}

var _ ioc.Observer = (*Observer)(nil)

// NewObserver creates an observer whose metrics live under namespace.
func NewObserver(namespace string) *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "resolutions_total",
			Help:      "Total Get calls by component, scope and result.",
		}, []string{"component", "scope", "result"}),
		resolveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of Get calls in seconds, including waits and construction.",
			Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		}, []string{"scope"}),
		creations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "instances_created_total",
			Help:      "Total instances built by factories.",
		}, []string{"component", "scope"}),
		createLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "creation_duration_seconds",
			Help:      "Duration of factory plus post-construct in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		hookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "hook_failures_total",
			Help:      "Total lifecycle hook failures.",
		}, []string{"component", "hook"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "contexts_active",
			Help:      "Request contexts entered and not yet exited.",
		}),
		requestScoped: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "instances_per_context",
			Help:      "Request-scoped instances released per exited request context.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25},
		}),
	}

	o.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		o.resolutions,
		o.resolveLatency,
		o.creations,
		o.createLatency,
		o.hookFailures,
		o.activeRequests,
		o.requestScoped,
	)
	return o
}

// Registry returns the registry holding the observer's metrics.
func (o *Observer) Registry() *prometheus.Registry { return o.registry }

// Register adds an application collector to the observer's registry.
func (o *Observer) Register(c prometheus.Collector) error {
	return o.registry.Register(c)
}

func (o *Observer) Resolved(name string, scope ioc.Scope, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = string(ioc.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	o.resolutions.WithLabelValues(name, string(scope), result).Inc()
	o.resolveLatency.WithLabelValues(string(scope)).Observe(elapsed.Seconds())
}

func (o *Observer) Created(name string, scope ioc.Scope, elapsed time.Duration) {
	o.creations.WithLabelValues(name, string(scope)).Inc()
	o.createLatency.WithLabelValues(string(scope)).Observe(elapsed.Seconds())
}

func (o *Observer) HookFailed(name, hook string, _ int, _ error) {
	o.hookFailures.WithLabelValues(name, hook).Inc()
}

func (o *Observer) RequestEntered(string) {
	o.activeRequests.Inc()
}

func (o *Observer) RequestExited(_ string, instances int) {
	o.activeRequests.Dec()
	o.requestScoped.Observe(float64(instances))
}

// Handler exposes the registry in the Prometheus text and OpenMetrics formats.
func (o *Observer) Handler() http.HandlerFunc {
	h := promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return h.ServeHTTP
}
