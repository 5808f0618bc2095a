package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const exporterSetupTimeout = 10 * time.Second

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	// SampleRatio is the fraction of root spans kept; zero or above one keeps all
	SampleRatio float64
	// Attributes are added to the resource, e.g. the bus kind and plugin directory
	Attributes map[string]string
}

// Telemetry owns the tracer and meter providers installed as the otel globals
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider

	log logrus.FieldLogger
}

// StartTelemetry exports traces and metrics over OTLP/gRPC and installs the providers
// globally. It returns nil when cfg is disabled. Exporters connect lazily, so a missing
// collector is not an error here.
func StartTelemetry(ctx context.Context, cfg OTelConfig, log logrus.FieldLogger) (*Telemetry, error) {
	if !cfg.Enabled {
		log.Debug("OpenTelemetry is disabled")
		return nil, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var dial []grpc.DialOption
	if cfg.Insecure {
		dial = append(dial, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	setupCtx, cancel := context.WithTimeout(ctx, exporterSetupTimeout)
	defer cancel()

	spans, err := otlptracegrpc.New(setupCtx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(dial...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	metrics, err := otlpmetricgrpc.New(setupCtx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithDialOption(dial...),
	)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	t := &Telemetry{
		TracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(spans, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		),
		MeterProvider: metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(metrics, metric.WithInterval(30*time.Second))),
		),
		log: log,
	}

	otel.SetTracerProvider(t.TracerProvider)
	otel.SetMeterProvider(t.MeterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"service":  cfg.ServiceName,
	}).Info("OpenTelemetry export started")
	return t, nil
}

func newResource(ctx context.Context, cfg OTelConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
	}
	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Shutdown flushes pending spans and metrics and stops both providers. A nil
// Telemetry does nothing.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		if t.log != nil {
			t.log.WithError(err).Error("OpenTelemetry shutdown failed")
		}
		return err
	}
	return nil
}

// LoggerWithTraceContext adds the active span's IDs to a logger
func LoggerWithTraceContext(ctx context.Context, logger logrus.FieldLogger) logrus.FieldLogger {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return logger
	}

	spanCtx := span.SpanContext()
	return logger.WithFields(logrus.Fields{
		"trace_id": spanCtx.TraceID().String(),
		"span_id":  spanCtx.SpanID().String(),
	})
}
