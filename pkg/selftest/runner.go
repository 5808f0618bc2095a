package selftest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

// EnumerateTestName names the synthetic result of a test list that could not be built
const EnumerateTestName = "enumerate tests"

// Suite is the test list of one plugin. Tests is called lazily and may panic.
type Suite struct {
	Plugin string
	Tests  pluginapi.TestsFunc
}

// Runner runs suites of several plugins concurrently
type Runner struct {
	// Limit bounds concurrently running suites; zero or less means unbounded
	Limit int
	// History receives every finished report when set
	History *History

	log     *logrus.Logger
	metrics *observability.Metrics
	otel    *observability.OTelMetrics
	tracer  trace.Tracer
}

// NewRunner creates a runner
func NewRunner(log *logrus.Logger, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Runner {
	if log == nil {
		log = logrus.New()
	}
	return &Runner{
		log:     log,
		metrics: metrics,
		otel:    otelMetrics,
		tracer:  otel.Tracer("github.com/platinummonkey/resetd/pkg/selftest"),
	}
}

// RunSuite enumerates and runs one plugin's tests
func (r *Runner) RunSuite(ctx context.Context, suite Suite) *Report {
	ctx, span := r.tracer.Start(ctx, "selftest.suite",
		trace.WithAttributes(attribute.String("plugin", suite.Plugin)))
	defer span.End()

	start := time.Now()
	report := runSuite(suite)
	r.otel.RecordSelftest(ctx, suite.Plugin, time.Since(start))
	r.History.Record(report)

	running, crashed, failed, successful := report.Counts()
	span.SetAttributes(
		attribute.Int("tests.running", running),
		attribute.Int("tests.crashed", crashed),
		attribute.Int("tests.failed", failed),
	)

	if r.metrics != nil {
		for _, res := range report.Results {
			r.metrics.SelftestResultsTotal.WithLabelValues(suite.Plugin, res.Outcome.String()).Inc()
		}
	}

	observability.LoggerWithTraceContext(ctx, r.log).WithFields(logrus.Fields{
		"plugin":     suite.Plugin,
		"crashed":    crashed,
		"failed":     failed,
		"successful": successful,
	}).Info("Plugin self-tests finished")

	return report
}

// RunAll runs every suite and writes each report to w as soon as it is complete.
// Reports are returned in suite order. Only context cancellation produces an error.
func (r *Runner) RunAll(ctx context.Context, suites []Suite, w io.Writer) ([]*Report, error) {
	reports := make([]*Report, len(suites))
	out := &lockedWriter{w: w}

	g, ctx := errgroup.WithContext(ctx)
	if r.Limit > 0 {
		g.SetLimit(r.Limit)
	}

	for i, suite := range suites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report := r.RunSuite(ctx, suite)
			reports[i] = report
			if w != nil {
				if _, err := report.WriteTo(out); err != nil {
					r.log.WithError(err).Warn("Failed to write self-test report")
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

func runSuite(suite Suite) *Report {
	var tests []pluginapi.Test
	err := observability.SafeCall(func() {
		if suite.Tests != nil {
			tests = suite.Tests()
		}
	})
	if err != nil {
		return &Report{
			Plugin: suite.Plugin,
			Results: []Result{{
				Name:    EnumerateTestName,
				Outcome: Crashed,
				Message: err.Error(),
			}},
		}
	}
	return Run(suite.Plugin, tests)
}

// lockedWriter serializes writes from concurrent suites
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
