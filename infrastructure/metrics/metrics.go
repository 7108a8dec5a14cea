package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// BatchesIssued counts committed ledger appends.
	BatchesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchledger_batches_issued_total",
		Help: "Batches committed to the ledger",
	})

	// QuantityIssued sums the quantity of committed batches.
	QuantityIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchledger_quantity_issued_total",
		Help: "Quantity recorded across committed batches",
	})

	// AllocationRetries counts allocation attempts rolled back because of a race.
	AllocationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchledger_allocation_retries_total",
		Help: "Allocation attempts retried after a sequence race or busy database",
	})

	// AllocationFailures counts Issue calls that returned an error, by error kind.
	AllocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchledger_allocation_failures_total",
		Help: "Issue calls that failed, by error kind",
	}, []string{"kind"})

	// ExportsServed counts export downloads by format.
	ExportsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchledger_exports_served_total",
		Help: "Export downloads served, by format",
	}, []string{"format"})
)

// Middleware records request count, latency and in-flight requests.
// The route label uses the chi route pattern to keep cardinality low.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
