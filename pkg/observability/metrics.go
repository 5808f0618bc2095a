package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Plugin pipeline metrics
	LibrariesLoaded       prometheus.Gauge
	LoadErrorsTotal       prometheus.Counter
	BindFailuresTotal     *prometheus.CounterVec
	FunctionTables        *prometheus.GaugeVec
	RegistryBuildDuration prometheus.Histogram

	// Plugin runtime metrics
	HookPanicsTotal      *prometheus.CounterVec
	SelftestResultsTotal *prometheus.CounterVec
	PluginDirEventsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resetd_http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resetd_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resetd_http_response_size_bytes",
				Help:    "Admin HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Plugin pipeline metrics
		LibrariesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "resetd_plugin_libraries_loaded",
				Help: "Number of plugin libraries held open",
			},
		),
		LoadErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "resetd_plugin_load_errors_total",
				Help: "Total number of files that could not be opened as plugin libraries",
			},
		),
		BindFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resetd_plugin_bind_failures_total",
				Help: "Total number of plugin contracts that failed to bind",
			},
			[]string{"role"},
		),
		FunctionTables: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "resetd_plugin_function_tables",
				Help: "Number of bound plugin function tables",
			},
			[]string{"role"},
		),
		RegistryBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "resetd_plugin_registry_build_duration_seconds",
				Help:    "Time spent scanning and binding plugin libraries",
				Buckets: []float64{.001, .01, .05, .1, .5, 1, 5},
			},
		),

		// Plugin runtime metrics
		HookPanicsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resetd_plugin_hook_panics_total",
				Help: "Total number of panics recovered from plugin hooks",
			},
			[]string{"plugin", "hook"},
		),
		SelftestResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resetd_plugin_selftest_results_total",
				Help: "Total number of plugin self-test outcomes",
			},
			[]string{"plugin", "outcome"},
		),
		PluginDirEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resetd_plugin_dir_events_total",
				Help: "Total number of plugin directory change events",
			},
			[]string{"op"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.LibrariesLoaded,
		m.LoadErrorsTotal,
		m.BindFailuresTotal,
		m.FunctionTables,
		m.RegistryBuildDuration,
		m.HookPanicsTotal,
		m.SelftestResultsTotal,
		m.PluginDirEventsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
