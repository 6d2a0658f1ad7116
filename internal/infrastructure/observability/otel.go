package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/visibilityscore"

// Metrics holds the scoring core's instruments
type Metrics struct {
	AuditFetchDuration metric.Float64Histogram
	AuditCount         metric.Int64Counter
	ProbeOutcomes      metric.Int64Counter
	CorrectionChecks   metric.Int64Counter
	CacheHitCount      metric.Int64Counter
	CacheMissCount     metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// Setup installs an OTLP gRPC tracer provider
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

// InitMetrics creates the instruments on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	auditFetchDuration, err := meter.Float64Histogram(
		"audit.fetch.duration",
		metric.WithDescription("Page fetch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	auditCount, err := meter.Int64Counter(
		"audit.page.count",
		metric.WithDescription("Number of page audits by outcome"),
	)
	if err != nil {
		return nil, err
	}

	probeOutcomes, err := meter.Int64Counter(
		"probe.engine.outcome",
		metric.WithDescription("Engine probe attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	correctionChecks, err := meter.Int64Counter(
		"correction.check.count",
		metric.WithDescription("Correction checks by outcome"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AuditFetchDuration: auditFetchDuration,
		AuditCount:         auditCount,
		ProbeOutcomes:      probeOutcomes,
		CorrectionChecks:   correctionChecks,
		CacheHitCount:      cacheHitCount,
		CacheMissCount:     cacheMissCount,
	}, nil
}

func defaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		m, err := InitMetrics()
		if err == nil {
			metrics = m
		}
	})
	return metrics
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordAuditFetch records one page fetch and its status
func RecordAuditFetch(ctx context.Context, statusCode int, duration time.Duration) {
	m := defaultMetrics()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.Int("http.status_code", statusCode)}
	m.AuditFetchDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordAudit counts an audit by outcome (scored, fetch_failed, invalid)
func RecordAudit(ctx context.Context, pageType, outcome string) {
	m := defaultMetrics()
	if m == nil {
		return
	}
	m.AuditCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("audit.page_type", pageType),
		attribute.String("audit.outcome", outcome),
	))
}

// RecordProbeOutcome counts one engine attempt (cited, not_cited, placeholder, failed)
func RecordProbeOutcome(ctx context.Context, engine, outcome string) {
	m := defaultMetrics()
	if m == nil {
		return
	}
	m.ProbeOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("outcome", outcome),
	))
}

// RecordCorrectionCheck counts one correction check by engine and outcome
func RecordCorrectionCheck(ctx context.Context, engine, outcome string) {
	m := defaultMetrics()
	if m == nil {
		return
	}
	m.CorrectionChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("outcome", outcome),
	))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, namespace string) {
	if m := defaultMetrics(); m != nil {
		m.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.namespace", namespace)))
	}
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, namespace string) {
	if m := defaultMetrics(); m != nil {
		m.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.namespace", namespace)))
	}
}
