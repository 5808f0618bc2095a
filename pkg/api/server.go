package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/resetd/pkg/flags"
	"github.com/platinummonkey/resetd/pkg/httputil"
	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/plugins"
	"github.com/platinummonkey/resetd/pkg/selftest"
)

// RegistryCheck is the readiness check name of the plugin registry
const RegistryCheck = "plugin_registry"

// SelftestResultHeader is "ok" when every test of a POST /plugins/{name}/selftest passed
const SelftestResultHeader = "X-Selftest-Result"

// Config holds the collaborators of the admin server. Registry is required.
type Config struct {
	Registry   Registry
	Runner     *selftest.Runner
	Flags      flags.Flags
	Health     *observability.HealthChecker
	Metrics    *observability.Metrics
	Prometheus *prometheus.Registry
	Logger     *logrus.Logger
}

// Server represents the admin API server
type Server struct {
	registry   Registry
	runner     *selftest.Runner
	flags      flags.Flags
	health     *observability.HealthChecker
	metrics    *observability.Metrics
	prometheus *prometheus.Registry
	log        *logrus.Logger

	router  *mux.Router
	handler http.Handler
}

// NewServer creates the admin server and registers the registry readiness check
func NewServer(cfg Config) *Server {
	s := &Server{
		registry:   cfg.Registry,
		runner:     cfg.Runner,
		flags:      cfg.Flags,
		health:     cfg.Health,
		metrics:    cfg.Metrics,
		prometheus: cfg.Prometheus,
		log:        cfg.Logger,
		router:     mux.NewRouter(),
	}
	if s.log == nil {
		s.log = logrus.New()
	}
	if s.health == nil {
		s.health = observability.NewHealthChecker("")
	}
	if s.runner == nil {
		s.runner = selftest.NewRunner(s.log, s.metrics, nil)
		s.runner.History = selftest.NewHistory(0, 0)
	}

	s.health.AddCheck(RegistryCheck, true, func(context.Context) observability.DependencyStatus {
		state := s.registry.State()
		if state != plugins.StateLoaded {
			return observability.Unhealthy("plugin registry " + state.String())
		}
		return observability.Healthy(fmt.Sprintf("%d backends, %d frontends",
			len(s.registry.Backends()), len(s.registry.Frontends())))
	})

	s.setupRoutes()

	middlewares := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(s.log),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.log),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(s.metrics))
	}
	s.handler = otelhttp.NewHandler(httputil.Chain(middlewares...)(s.router), "resetd.admin")
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.health.Liveness).Methods("GET")
	s.router.HandleFunc("/readyz", s.health.Readiness).Methods("GET")
	if s.prometheus != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.prometheus)).Methods("GET")
	}

	s.router.HandleFunc("/plugins", s.listPlugins).Methods("GET")
	s.router.HandleFunc("/plugins/{name}/selftest", s.runSelftest).Methods("POST")
	s.router.HandleFunc("/plugins/{name}/selftest", s.lastSelftest).Methods("GET")
	s.router.HandleFunc("/flags", s.listFlags).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// listPlugins handles GET /plugins
func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	if s.registry.State() != plugins.StateLoaded {
		httputil.WriteServiceUnavailable(w, "plugin registry is not loaded yet")
		return
	}
	httputil.WriteSuccess(w, Listing(s.registry))
}

// runSelftest handles POST /plugins/{name}/selftest
func (s *Server) runSelftest(w http.ResponseWriter, r *http.Request) {
	if s.registry.State() != plugins.StateLoaded {
		httputil.WriteServiceUnavailable(w, "plugin registry is not loaded yet")
		return
	}

	name := mux.Vars(r)["name"]
	suites := selftest.Suites(s.registry.Backends(), s.registry.Frontends(), name)
	if len(suites) == 0 {
		httputil.WriteNotFoundError(w, "unknown plugin "+name)
		return
	}

	var (
		body strings.Builder
		ok   = true
	)
	for _, suite := range suites {
		report := s.runner.RunSuite(r.Context(), suite)
		body.WriteString(report.String())
		ok = ok && report.OK()
	}

	result := "ok"
	if !ok {
		result = "failed"
	}
	w.Header().Set(SelftestResultHeader, result)
	httputil.WriteText(w, http.StatusOK, body.String())
}

// lastSelftest handles GET /plugins/{name}/selftest. Frontend suites are stored under
// "<name> (frontend)", so both are looked up.
func (s *Server) lastSelftest(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var (
		body  strings.Builder
		ok    = true
		found bool
		at    time.Time
	)
	for _, key := range []string{name, name + selftest.FrontendSuffix} {
		entry, exists := s.runner.History.Last(key)
		if !exists {
			continue
		}
		found = true
		body.WriteString(entry.Report.String())
		ok = ok && entry.Report.OK()
		if entry.At.After(at) {
			at = entry.At
		}
	}
	if !found {
		httputil.WriteNotFoundError(w, "no self-test report for plugin "+name)
		return
	}

	result := "ok"
	if !ok {
		result = "failed"
	}
	w.Header().Set(SelftestResultHeader, result)
	w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	httputil.WriteText(w, http.StatusOK, body.String())
}

// listFlags handles GET /flags
func (s *Server) listFlags(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.flags.Data())
}
