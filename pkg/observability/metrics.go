package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "masthead"

// Metrics holds the HTTP and connection pool metrics of the server
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	DBConnectionsActive       prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge
}

// NewMetrics creates the server metrics and registers them with registerer
// when it is not nil
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	routeLabels := []string{"method", "route"}

	histogram := func(name, help string, buckets []float64) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, routeLabels)
	}
	dbGauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, append(routeLabels, "status")),
		HTTPRequestDuration: histogram("request_duration_seconds",
			"HTTP request duration in seconds", prometheus.DefBuckets),
		HTTPRequestSize: histogram("request_size_bytes",
			"HTTP request size in bytes", prometheus.ExponentialBuckets(100, 10, 6)),
		HTTPResponseSize: histogram("response_size_bytes",
			"HTTP response size in bytes", prometheus.ExponentialBuckets(100, 10, 8)),

		DBConnectionsActive:       dbGauge("connections_active", "Number of database connections in use"),
		DBConnectionsIdle:         dbGauge("connections_idle", "Number of idle database connections"),
		DBConnectionsWaitCount:    dbGauge("connections_wait_count", "Total number of connections waited for"),
		DBConnectionsWaitDuration: dbGauge("connections_wait_duration_seconds", "Total time spent waiting for connections"),
	}
}

// RecordDBStats copies connection pool statistics into the gauges
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
	m.DBConnectionsWaitDuration.Set(stats.WaitDuration.Seconds())
}

// countingWriter records the status code and body size of a response
type countingWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (cw *countingWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.size += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled with their mux route template so that IDs in the
// path do not create new series.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			cw := &countingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			labels := prometheus.Labels{"method": r.Method, "route": routeLabel(r)}
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.With(labels).Observe(float64(r.ContentLength))
			}
			metrics.HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseSize.With(labels).Observe(float64(cw.size))

			labels["status"] = strconv.Itoa(cw.status)
			metrics.HTTPRequestsTotal.With(labels).Inc()
		})
	}
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
