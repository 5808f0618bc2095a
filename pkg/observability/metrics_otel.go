package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry instruments for plugin hook timing. Instruments come
// from the global meter provider, so they are no-ops until StartTelemetry runs.
type OTelMetrics struct {
	hookDuration     metric.Float64Histogram
	hookCalls        metric.Int64Counter
	selftestDuration metric.Float64Histogram
}

// NewOTelMetrics creates the instruments
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/resetd")

	m := &OTelMetrics{}
	var err error

	m.hookDuration, err = meter.Float64Histogram(
		"resetd.plugin.hook.duration",
		metric.WithDescription("Duration of plugin lifecycle hook calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hook duration histogram: %w", err)
	}

	m.hookCalls, err = meter.Int64Counter(
		"resetd.plugin.hook.calls",
		metric.WithDescription("Number of plugin lifecycle hook calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hook call counter: %w", err)
	}

	m.selftestDuration, err = meter.Float64Histogram(
		"resetd.plugin.selftest.duration",
		metric.WithDescription("Duration of a plugin self-test suite"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create selftest duration histogram: %w", err)
	}

	return m, nil
}

// RecordHook records one hook call. panicked marks a recovered panic.
func (m *OTelMetrics) RecordHook(ctx context.Context, plugin, hook string, duration time.Duration, panicked bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("plugin", plugin),
		attribute.String("hook", hook),
		attribute.Bool("panicked", panicked),
	)
	m.hookDuration.Record(ctx, duration.Seconds(), attrs)
	m.hookCalls.Add(ctx, 1, attrs)
}

// RecordSelftest records the duration of one plugin's self-test suite
func (m *OTelMetrics) RecordSelftest(ctx context.Context, plugin string, duration time.Duration) {
	if m == nil {
		return
	}
	m.selftestDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("plugin", plugin)))
}
