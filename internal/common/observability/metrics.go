package observability

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Observability is the per-request sink: one counter and one histogram keyed by
// execution path, template and error code, plus the tracer provider.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	requestCounter otelmetric.Int64Counter
	requestLatency otelmetric.Float64Histogram
}

// New wires the OTel meter to the default Prometheus registry and, when
// jaegerEndpoint is set, installs a batching Jaeger span exporter.
func New(serviceName, jaegerEndpoint string) *Observability {
	return newWithRegisterer(serviceName, jaegerEndpoint, prometheus.DefaultRegisterer)
}

func newWithRegisterer(serviceName, jaegerEndpoint string, reg prometheus.Registerer) *Observability {
	o := &Observability{}

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(serviceName)

		o.requestCounter, _ = o.meter.Int64Counter(
			"queries.processed",
			otelmetric.WithDescription("Number of questions processed"),
		)
		o.requestLatency, _ = o.meter.Float64Histogram(
			"queries.duration",
			otelmetric.WithDescription("Question processing duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if jaegerEndpoint != "" {
		tp, err := newJaegerProvider(serviceName, jaegerEndpoint)
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			o.tracerProvider = tp
			otel.SetTracerProvider(tp)
		}
	}
	return o
}

// RecordRequest emits one data point per answered question.
func (o *Observability) RecordRequest(ctx context.Context, path, template, errorCode string, d time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("path", path),
		attribute.String("template", template),
		attribute.String("error_code", errorCode),
	)
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, attrs)
	}
	if o.requestLatency != nil {
		o.requestLatency.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
