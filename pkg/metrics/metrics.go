package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/service"
)

const namespace = "kbase"

// DefaultBuckets are latency buckets in seconds for in-memory operations
// that may write a snapshot.
var DefaultBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// Registry holds the server's collectors.
type Registry struct {
	reg *prometheus.Registry

	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	WarningsTotal      prometheus.Counter
	Records            *prometheus.GaugeVec
	AdminRequestsTotal *prometheus.CounterVec
}

var _ service.Observer = (*Registry)(nil)

// New creates a Registry with the kbase collectors plus the Go runtime and
// process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of knowledge-base operations.",
		}, []string{"operation", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of knowledge-base operations in seconds.",
			Buckets:   DefaultBuckets,
		}, []string{"operation"}),
		WarningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_warnings_total",
			Help:      "Records saved with a reference to an unknown location.",
		}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Number of records per collection.",
		}, []string{"collection"}),
		AdminRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_requests_total",
			Help:      "Total number of HTTP API requests.",
		}, []string{"method", "path", "status"}),
	}

	r.reg.MustRegister(
		r.OperationsTotal,
		r.OperationDuration,
		r.WarningsTotal,
		r.Records,
		r.AdminRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, k := range entity.Kinds {
		r.Records.WithLabelValues(string(k)).Set(0)
	}
	return r
}

// OnOperation implements service.Observer.
func (r *Registry) OnOperation(op service.Operation, status types.Status, warnings int, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(string(op), status.String()).Inc()
	r.OperationDuration.WithLabelValues(string(op)).Observe(duration.Seconds())
	if warnings > 0 {
		r.WarningsTotal.Add(float64(warnings))
	}
}

// OnState implements service.Observer.
func (r *Registry) OnState(counts map[entity.Kind]int) {
	for _, k := range entity.Kinds {
		r.Records.WithLabelValues(string(k)).Set(float64(counts[k]))
	}
}

// ObserveAdminRequest counts one HTTP request.
func (r *Registry) ObserveAdminRequest(method, path string, status int) {
	r.AdminRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Gatherer returns the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
