// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the planning engine on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/stowage/internal/planner"
)

const namespace = "stowage"

// Metrics holds the registry and the collectors used by the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ItemsPlaced         prometheus.Counter
	ItemsUnplaced       prometheus.Counter
	RearrangementSteps  *prometheus.CounterVec
	PlanningDuration    prometheus.Histogram
	ContainerOccupancy  *prometheus.GaugeVec
	ReturnItemsAccepted prometheus.Counter
	ReturnMassAccepted  prometheus.Counter
}

// New creates a registry with Go runtime and process collectors and the
// service collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.ItemsPlaced = m.newCounter("planner_items_placed_total", "Items given a placement by the planner")
	m.ItemsUnplaced = m.newCounter("planner_items_unplaced_total", "Items the planner could not place")
	m.RearrangementSteps = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "planner_rearrangement_steps_total",
		Help:      "Rearrangement steps emitted, by strategy and action",
	}, []string{"strategy", "action"})

	m.PlanningDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "planner_placement_duration_seconds",
		Help:      "Time spent planning a placement request",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	reg.MustRegister(m.PlanningDuration)

	m.ContainerOccupancy = m.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "container_occupied_volume",
		Help:      "Raw occupied volume per container after the last placement plan",
	}, []string{"container"})

	m.ReturnItemsAccepted = m.newCounter("return_items_accepted_total", "Waste items accepted into return manifests")
	m.ReturnMassAccepted = m.newCounter("return_mass_accepted_total", "Mass of waste accepted into return manifests")

	return m
}

// NewCounterVec creates and registers a counter vector.
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec creates and registers a gauge vector.
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec creates and registers a histogram vector.
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

func (m *Metrics) newCounter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	m.registry.MustRegister(c)
	return c
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePlacement records the outcome of a placement plan.
func (m *Metrics) ObservePlacement(result planner.PlacementResult, elapsed time.Duration) {
	m.ItemsPlaced.Add(float64(len(result.Placements)))
	m.ItemsUnplaced.Add(float64(len(result.Unplaced)))
	for _, step := range result.Rearrangements {
		m.RearrangementSteps.WithLabelValues(string(step.Strategy), string(step.Action)).Inc()
	}
	for id, volume := range result.Utilization {
		m.ContainerOccupancy.WithLabelValues(id).Set(volume)
	}
	m.PlanningDuration.Observe(elapsed.Seconds())
}

// ObserveReturn records the outcome of a return plan.
func (m *Metrics) ObserveReturn(result planner.ReturnResult) {
	m.ReturnItemsAccepted.Add(float64(len(result.Manifest.ReturnItems)))
	m.ReturnMassAccepted.Add(result.Manifest.TotalWeight)
}

var _ planner.Observer = (*Metrics)(nil)

// Middleware records request counts and latency. Paths are labelled by the
// matched route pattern so ids in URLs do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
