// Package daemon wires the plugin runtime, the bus and the admin surface into the
// resetd process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/resetd/pkg/api"
	"github.com/platinummonkey/resetd/pkg/bus"
	"github.com/platinummonkey/resetd/pkg/config"
	"github.com/platinummonkey/resetd/pkg/flags"
	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/plugins"
	"github.com/platinummonkey/resetd/pkg/selftest"
)

// DataName is the DataStore entry holding the daemon's pass-through flags
const DataName = "resetd"

// Hook names used in logs and metrics
const (
	HookStartup       = "startup"
	HookDBusInterface = "dbus_interface"
	HookShutdown      = "shutdown"
)

// Option customizes a Daemon
type Option func(*Daemon)

// WithOpener replaces the native plugin opener
func WithOpener(o plugins.Opener) Option {
	return func(d *Daemon) { d.opener = o }
}

// WithDispatcher skips the bus connection and exports on dispatcher instead
func WithDispatcher(dispatcher bus.Dispatcher) Option {
	return func(d *Daemon) { d.dispatcher = dispatcher }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(d *Daemon) { d.log = log }
}

// WithSelftestOutput sets where self-test reports are written, os.Stdout by default
func WithSelftestOutput(w io.Writer) Option {
	return func(d *Daemon) { d.selftestOut = w }
}

// WithVersion sets the version reported by health checks and telemetry
func WithVersion(version string) Option {
	return func(d *Daemon) { d.version = version }
}

// WithConfigHome sets the config root used to resolve the default plugin directory
func WithConfigHome(fn func() (string, error)) Option {
	return func(d *Daemon) { d.configHome = fn }
}

// Daemon is one resetd process
type Daemon struct {
	cfg         *config.Config
	flags       flags.Flags
	log         *logrus.Logger
	version     string
	opener      plugins.Opener
	configHome  func() (string, error)
	selftestOut io.Writer

	prometheus  *prometheus.Registry
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics
	health      *observability.HealthChecker
	shutdown    *observability.ShutdownManager

	runtime    *plugins.Runtime
	runner     *selftest.Runner
	store      *bus.DataStore
	dispatcher bus.Dispatcher

	started   atomic.Bool
	mu        sync.Mutex
	running   []*plugins.BackendFunctions
	adminAddr string

	stopAdmin     observability.ShutdownFunc
	stopWatcher   observability.ShutdownFunc
	stopScheduler observability.ShutdownFunc
	stopTelemetry observability.ShutdownFunc
}

// New creates a daemon. Nothing is loaded or connected until Start.
func New(cfg *config.Config, passthrough flags.Flags, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:         cfg,
		flags:       passthrough,
		version:     "dev",
		configHome:  config.Home,
		selftestOut: os.Stdout,
		prometheus:  prometheus.NewRegistry(),
		store:       bus.NewDataStore(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logrus.New()
	}

	d.prometheus.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.metrics = observability.NewMetrics(d.prometheus)
	d.health = observability.NewHealthChecker(d.version)
	d.shutdown = observability.NewShutdownManager(d.log, cfg.ShutdownTimeout)

	names, set := cfg.AllowList()
	allow := plugins.AllowAll()
	if set {
		allow = plugins.AllowOnly(names...)
	}

	runtimeOpts := []plugins.RuntimeOption{
		plugins.WithLogger(d.log),
		plugins.WithMetrics(d.metrics),
	}
	if d.opener != nil {
		runtimeOpts = append(runtimeOpts, plugins.WithOpener(d.opener))
	}
	d.runtime = plugins.NewRuntime(plugins.Options{
		PluginPath: cfg.PluginPath,
		AllowList:  allow,
		ConfigHome: d.configHome,
	}, runtimeOpts...)

	return d
}

// Runtime returns the plugin runtime
func (d *Daemon) Runtime() *plugins.Runtime {
	return d.runtime
}

// Store returns the plugin data served on the bus
func (d *Daemon) Store() *bus.DataStore {
	return d.store
}

// Dispatcher returns the dispatcher plugins export on, nil before Start unless set with WithDispatcher
func (d *Daemon) Dispatcher() bus.Dispatcher {
	return d.dispatcher
}

// AdminAddr returns the address the admin server listens on, empty when disabled
func (d *Daemon) AdminAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adminAddr
}

// Start brings the daemon up: telemetry, bus, plugin registry, backend hooks,
// optional self-tests, directory watcher and admin server.
func (d *Daemon) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return errors.New("daemon already started")
	}
	defer d.registerShutdown()

	d.startTelemetry(ctx)
	d.runner = selftest.NewRunner(d.log, d.metrics, d.otelMetrics)
	d.runner.History = selftest.NewHistory(0, 0)

	d.connectBus()
	if err := d.dispatcher.Export(bus.PluginObjectPath, d.store.Spec()); err != nil {
		d.log.WithFields(logrus.Fields{
			"severity": plugins.SeverityPartial,
			"error":    err,
		}).Error("Failed to export plugin data interface")
	}
	if len(d.flags) > 0 {
		d.store.Put(DataName, d.flags.Data())
		d.log.WithField("flags", d.flags.Names()).Info("Pass-through flags")
	}

	d.runtime.Load(ctx)
	d.startBackends(ctx)

	if d.cfg.SelftestOnStart {
		d.runSelftests(ctx)
	}

	if d.cfg.SelftestSchedule != "" {
		if err := d.startScheduler(); err != nil {
			return err
		}
	}

	if d.cfg.WatchPlugins && d.runtime.PluginDir() != "" {
		d.startWatcher()
	}

	if d.cfg.AdminAddr != "" {
		if err := d.startAdmin(); err != nil {
			return err
		}
	}

	d.log.WithFields(logrus.Fields{
		"backends":  len(d.runtime.Backends()),
		"frontends": len(d.runtime.Frontends()),
		"version":   d.version,
	}).Info("resetd started")
	return nil
}

// registerShutdown orders the shutdown steps of whatever Start brought up
func (d *Daemon) registerShutdown() {
	if d.stopAdmin != nil {
		d.shutdown.RegisterShutdownFunc("admin server", d.stopAdmin)
	}
	if d.stopWatcher != nil {
		d.shutdown.RegisterShutdownFunc("plugin watcher", d.stopWatcher)
	}
	if d.stopScheduler != nil {
		d.shutdown.RegisterShutdownFunc("selftest scheduler", d.stopScheduler)
	}
	d.shutdown.RegisterShutdownFunc("plugin backends", d.stopBackends)
	if d.dispatcher != nil {
		d.shutdown.RegisterShutdownFunc("bus", func(context.Context) error {
			return d.dispatcher.Close()
		})
	}
	if d.stopTelemetry != nil {
		d.shutdown.RegisterShutdownFunc("telemetry", d.stopTelemetry)
	}
}

// Stop shuts down the admin server, calls every started backend's shutdown hook and
// closes the bus, in that order
func (d *Daemon) Stop(ctx context.Context) error {
	return d.shutdown.Shutdown(ctx)
}

// Run starts the daemon and blocks until SIGINT, SIGTERM or ctx cancellation, then
// stops it
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		_ = d.Stop(context.Background())
		return err
	}
	return d.shutdown.WaitForShutdown(ctx)
}

func (d *Daemon) startTelemetry(ctx context.Context) {
	tel, err := observability.StartTelemetry(ctx, observability.OTelConfig{
		Enabled:        d.cfg.OTel.Enabled,
		Endpoint:       d.cfg.OTel.Endpoint,
		ServiceName:    d.cfg.OTel.ServiceName,
		ServiceVersion: d.version,
		Insecure:       d.cfg.OTel.Insecure,
		SampleRatio:    d.cfg.OTel.SampleRatio,
		Attributes: map[string]string{
			"resetd.bus":         d.cfg.Bus,
			"resetd.plugin_path": d.cfg.PluginPath,
		},
	}, d.log)
	if err != nil {
		d.log.WithError(err).Warn("OpenTelemetry disabled")
	}
	if tel != nil {
		d.stopTelemetry = tel.Shutdown
	}

	if d.otelMetrics, err = observability.NewOTelMetrics(); err != nil {
		d.log.WithError(err).Warn("Hook timing metrics disabled")
	}
}

func (d *Daemon) connectBus() {
	if d.dispatcher != nil {
		return
	}

	if d.cfg.Bus != bus.KindNone {
		conn, err := bus.Connect(d.cfg.Bus, d.log)
		if err == nil {
			d.dispatcher = conn
			d.health.AddCheck("bus", false, func(context.Context) observability.DependencyStatus {
				return observability.Healthy("connected to the " + d.cfg.Bus + " bus")
			})
			return
		}
		d.log.WithFields(logrus.Fields{
			"severity": plugins.SeverityCritical,
			"bus":      d.cfg.Bus,
			"error":    err,
		}).Error("Failed to connect to the bus, plugin interfaces stay in memory")
	}

	d.dispatcher = bus.NewMemoryDispatcher()
	d.health.AddCheck("bus", false, func(context.Context) observability.DependencyStatus {
		return observability.DependencyStatus{Status: observability.StatusDegraded, Message: "no bus connection"}
	})
}

// callHook runs one plugin hook with panic isolation and timing
func (d *Daemon) callHook(ctx context.Context, plugin, hook string, fn func()) error {
	start := time.Now()
	err := observability.SafeCall(fn)
	d.otelMetrics.RecordHook(ctx, plugin, hook, time.Since(start), err != nil)

	if err != nil {
		d.metrics.HookPanicsTotal.WithLabelValues(plugin, hook).Inc()
		d.log.WithFields(logrus.Fields{
			"severity": plugins.SeverityCritical,
			"plugin":   plugin,
			"hook":     hook,
			"error":    err,
		}).Error("Plugin hook panicked")
	}
	return err
}

func (d *Daemon) startBackends(ctx context.Context) {
	for _, b := range d.runtime.Backends() {
		if err := d.callHook(ctx, b.PluginName, HookStartup, b.Startup); err != nil {
			continue
		}
		d.mu.Lock()
		d.running = append(d.running, b)
		d.mu.Unlock()

		wrapper := bus.NewCrossWrapper(b.PluginName, d.dispatcher, d.store, d.log)
		_ = d.callHook(ctx, b.PluginName, HookDBusInterface, func() { b.DBusInterface(wrapper) })
	}
}

func (d *Daemon) stopBackends(ctx context.Context) error {
	d.mu.Lock()
	running := d.running
	d.running = nil
	d.mu.Unlock()

	var errs []error
	for _, b := range running {
		if err := d.callHook(ctx, b.PluginName, HookShutdown, b.Shutdown); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.PluginName, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Daemon) runSelftests(ctx context.Context) {
	suites := selftest.Suites(d.runtime.Backends(), d.runtime.Frontends())
	reports, err := d.runner.RunAll(ctx, suites, d.selftestOut)
	if err != nil {
		d.log.WithError(err).Warn("Start-up self-tests interrupted")
	}

	failing := 0
	for _, r := range reports {
		if r != nil && !r.OK() {
			failing++
		}
	}
	d.log.WithFields(logrus.Fields{
		"suites":  len(suites),
		"failing": failing,
	}).Info("Start-up self-tests finished")
}

func (d *Daemon) startScheduler() error {
	scheduler, err := selftest.NewScheduler(d.cfg.SelftestSchedule, d.runner, func() []selftest.Suite {
		return selftest.Suites(d.runtime.Backends(), d.runtime.Frontends())
	}, d.selftestOut, d.log)
	if err != nil {
		return err
	}
	scheduler.Start()
	d.log.WithField("schedule", d.cfg.SelftestSchedule).Info("Self-test scheduler started")

	d.stopScheduler = scheduler.Stop
	return nil
}

func (d *Daemon) startWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	names, set := d.cfg.AllowList()
	allow := plugins.AllowAll()
	if set {
		allow = plugins.AllowOnly(names...)
	}

	w := plugins.NewWatcher(d.runtime.PluginDir(), allow, d.log, nil)
	w.SetMetrics(d.metrics)
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			d.log.WithError(err).Warn("Plugin directory watcher stopped")
		}
	}()

	d.stopWatcher = func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Daemon) startAdmin() error {
	ln, err := net.Listen("tcp", d.cfg.AdminAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.cfg.AdminAddr, err)
	}

	server := &http.Server{
		Handler: api.NewServer(api.Config{
			Registry:   d.runtime,
			Runner:     d.runner,
			Flags:      d.flags,
			Health:     d.health,
			Metrics:    d.metrics,
			Prometheus: d.prometheus,
			Logger:     d.log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	d.mu.Lock()
	d.adminAddr = ln.Addr().String()
	d.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.WithError(err).Error("Admin server failed")
		}
	}()
	d.log.WithField("addr", ln.Addr().String()).Info("Admin server listening")

	d.stopAdmin = server.Shutdown
	return nil
}
