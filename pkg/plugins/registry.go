package plugins

import (
	"context"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/resetd/pkg/observability"
)

const tracerName = "github.com/platinummonkey/resetd/pkg/plugins"

// Options configures plugin discovery
type Options struct {
	// PluginPath overrides the plugin directory when it names an existing directory
	PluginPath string
	// AllowList restricts loaded file names; nil loads every file
	AllowList AllowList
	// ConfigHome returns the user config root; nil uses os.UserConfigDir
	ConfigHome func() (string, error)
}

// RuntimeOption customizes a Runtime
type RuntimeOption func(*Runtime)

// WithOpener replaces the native plugin opener
func WithOpener(o Opener) RuntimeOption {
	return func(r *Runtime) { r.opener = o }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) RuntimeOption {
	return func(r *Runtime) { r.log = log }
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *observability.Metrics) RuntimeOption {
	return func(r *Runtime) { r.metrics = m }
}

// WithTracer sets the tracer used for the registry build span
func WithTracer(t trace.Tracer) RuntimeOption {
	return func(r *Runtime) { r.tracer = t }
}

// Runtime is the process-wide plugin context. The plugin registry is built on first
// access, exactly once, no matter how many goroutines ask concurrently. After that the
// collections are read-only.
type Runtime struct {
	opts    Options
	opener  Opener
	arena   *Arena
	log     *logrus.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	state atomic.Int32
	scans atomic.Int32

	// written once before state becomes StateLoaded
	pluginDir string
	backends  []*BackendFunctions
	frontends []*FrontendFunctions
	errs      []error
}

// NewRuntime creates an unloaded Runtime
func NewRuntime(opts Options, options ...RuntimeOption) *Runtime {
	r := &Runtime{
		opts:  opts,
		arena: NewArena(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.log == nil {
		r.log = logrus.New()
	}
	if r.opener == nil {
		r.opener = NativeOpener()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// Load builds the registry if no other caller has. Callers that arrive while the build
// is running wait for it to finish.
func (r *Runtime) Load(ctx context.Context) {
	if r.State() == StateLoaded {
		return
	}

	if r.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) {
		defer r.state.Store(int32(StateLoaded))
		defer observability.RecoverPanic(r.log, "plugin registry build")
		// the one-time build always scans the whole directory, even for a cancelled caller
		r.build(context.WithoutCancel(ctx))
		return
	}

	for r.State() != StateLoaded {
		runtime.Gosched()
	}
}

// State returns the current lifecycle state without triggering a build
func (r *Runtime) State() State {
	return State(r.state.Load())
}

// Backends returns the bound backend tables in load order
func (r *Runtime) Backends() []*BackendFunctions {
	r.Load(context.Background())
	return slices.Clone(r.backends)
}

// Frontends returns the bound frontend tables in load order
func (r *Runtime) Frontends() []*FrontendFunctions {
	r.Load(context.Background())
	return slices.Clone(r.frontends)
}

// Backend finds a backend table by plugin name
func (r *Runtime) Backend(name string) (*BackendFunctions, bool) {
	for _, b := range r.Backends() {
		if b.PluginName == name {
			return b, true
		}
	}
	return nil, false
}

// Frontend finds a frontend table by plugin name
func (r *Runtime) Frontend(name string) (*FrontendFunctions, bool) {
	for _, f := range r.Frontends() {
		if f.PluginName == name {
			return f, true
		}
	}
	return nil, false
}

// Errors returns the load and bind failures of the build
func (r *Runtime) Errors() []error {
	r.Load(context.Background())
	return slices.Clone(r.errs)
}

// Libraries returns every opened library, including ones that bound nothing
func (r *Runtime) Libraries() []*Handle {
	r.Load(context.Background())
	return r.arena.Handles()
}

// PluginDir returns the scanned directory, empty when resolution failed
func (r *Runtime) PluginDir() string {
	r.Load(context.Background())
	return r.pluginDir
}

// Scans returns how many times the registry was built; never more than one
func (r *Runtime) Scans() int {
	return int(r.scans.Load())
}

func (r *Runtime) build(ctx context.Context) {
	r.scans.Add(1)
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "plugins.build")
	defer span.End()

	resolver := NewResolver(r.opts.PluginPath, r.opts.ConfigHome, r.log)
	dir, err := resolver.Resolve()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "plugin directory unavailable")
		r.errs = append(r.errs, err)
		return
	}
	r.pluginDir = dir
	span.SetAttributes(attribute.String("plugin.dir", dir))

	loader := NewLoader(r.opener, r.arena, r.log)
	loader.SetMetrics(r.metrics)

	handles, loadErrs, err := loader.LoadAll(ctx, dir, r.opts.AllowList)
	r.errs = append(r.errs, loadErrs...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"severity": SeverityCritical,
			"dir":      dir,
			"error":    err,
		}).Error("Failed to scan plugin directory, plugins disabled")
		span.RecordError(err)
		span.SetStatus(codes.Error, "plugin directory scan failed")
		r.errs = append(r.errs, err)
		return
	}

	for _, h := range handles {
		r.bind(h)
	}

	span.SetAttributes(
		attribute.Int("plugin.libraries", len(handles)),
		attribute.Int("plugin.backends", len(r.backends)),
		attribute.Int("plugin.frontends", len(r.frontends)),
	)

	if r.metrics != nil {
		r.metrics.FunctionTables.WithLabelValues(RoleBackend.String()).Set(float64(len(r.backends)))
		r.metrics.FunctionTables.WithLabelValues(RoleFrontend.String()).Set(float64(len(r.frontends)))
		r.metrics.RegistryBuildDuration.Observe(time.Since(start).Seconds())
	}

	observability.LoggerWithTraceContext(ctx, r.log).WithFields(logrus.Fields{
		"dir":       dir,
		"libraries": len(handles),
		"backends":  len(r.backends),
		"frontends": len(r.frontends),
	}).Info("Plugin registry loaded")
}

func (r *Runtime) bind(h *Handle) {
	result := Bind(h)

	for _, err := range result.Errors {
		fields := logrus.Fields{
			"severity": SeverityCritical,
			"path":     h.Path,
			"error":    err,
		}
		if bindErr, ok := err.(*BindError); ok {
			fields["role"] = bindErr.Role.String()
			if r.metrics != nil {
				r.metrics.BindFailuresTotal.WithLabelValues(bindErr.Role.String()).Inc()
			}
		}
		r.log.WithFields(fields).Error("Plugin failed to bind")
	}
	r.errs = append(r.errs, result.Errors...)

	if !result.Recognized {
		if len(result.Errors) == 0 {
			r.log.WithField("path", h.Path).Debug("Library exports no capabilities, not a plugin")
		}
		return
	}

	if result.Backend != nil {
		r.backends = append(r.backends, result.Backend)
	}
	if result.Frontend != nil {
		r.frontends = append(r.frontends, result.Frontend)
	}
	if len(result.Errors) > 0 && (result.Backend != nil || result.Frontend != nil) {
		r.log.WithFields(logrus.Fields{
			"severity": SeverityPartial,
			"path":     h.Path,
		}).Warn("Plugin bound partially")
	}

	r.log.WithFields(logrus.Fields{
		"path":         h.Path,
		"implements":   result.Capabilities.Implements().String(),
		"capabilities": result.Capabilities.Names(),
	}).Info("Plugin bound")
}
