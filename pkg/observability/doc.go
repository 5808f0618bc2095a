// Package observability provides logrus logging, Prometheus metrics, OpenTelemetry
// tracing, panic recovery, health checks and graceful shutdown for resetd.
//
// # Overview
//
// Every resetd component logs through a *logrus.Logger and records into a shared
// Metrics value. Plugin code is foreign to the daemon, so every call into it goes
// through RecoverPanic or SafeCall.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger("debug", observability.TextFormat, os.Stderr)
//	logger.WithField("plugin", "wifi").Info("Plugin started")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.SelftestResultsTotal.WithLabelValues("wifi", "failed").Inc()
//
// # Panic Isolation
//
//	if err := observability.SafeCall(backend.Startup); err != nil {
//		logger.WithError(err).Error("Plugin startup panicked")
//	}
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("plugins", true, func(ctx context.Context) observability.DependencyStatus {
//		return observability.Healthy("loaded")
//	})
//
// # OpenTelemetry
//
//	tel, err := observability.StartTelemetry(ctx, observability.OTelConfig{
//		Enabled:     true,
//		ServiceName: "resetd",
//		Endpoint:    "localhost:4317",
//		SampleRatio: 0.1,
//	}, logger)
//	defer tel.Shutdown(ctx)
//
// # Related Packages
//
//   - pkg/daemon: wires all of the above
//   - pkg/api: serves health and metrics
package observability
