package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/reactor/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns the pipeline meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metric instrument names.
const (
	MetricSignals              = "reactive.signals"
	MetricSubscriptionsActive  = "reactive.subscriptions.active"
	MetricSubscriptionDuration = "reactive.subscription.duration"
	MetricErrors               = "reactive.errors"
)

// Metrics holds the instruments that count pipeline signals.
type Metrics struct {
	signals  metric.Int64Counter
	active   metric.Int64UpDownCounter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	signals, err := meter.Int64Counter(MetricSignals,
		metric.WithDescription("Signals observed, by stage and signal type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricSignals, err)
	}

	active, err := meter.Int64UpDownCounter(MetricSubscriptionsActive,
		metric.WithDescription("Subscriptions that have not terminated yet"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricSubscriptionsActive, err)
	}

	duration, err := meter.Float64Histogram(MetricSubscriptionDuration,
		metric.WithDescription("Time from subscribe to the terminal signal"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricSubscriptionDuration, err)
	}

	errorTotal, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Error signals, by stage and error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	return &Metrics{
		signals:  signals,
		active:   active,
		duration: duration,
		errors:   errorTotal,
	}, nil
}

// RecordSignal counts one signal seen at stage.
func (m *Metrics) RecordSignal(ctx context.Context, stage, signal string) {
	m.signals.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrSignal, signal),
	))
}

// RecordSubscriptionStart increments the active subscription count.
func (m *Metrics) RecordSubscriptionStart(ctx context.Context, stage string) {
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStage, stage)))
}

// RecordSubscriptionEnd decrements active subscriptions and records how long
// the subscription lived.
func (m *Metrics) RecordSubscriptionEnd(ctx context.Context, stage, terminal string, d time.Duration) {
	m.active.Add(ctx, -1, metric.WithAttributes(attribute.String(AttrStage, stage)))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrTerminal, terminal),
	))
}

// RecordError counts an error signal by its code.
func (m *Metrics) RecordError(ctx context.Context, stage, code string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrErrorCode, code),
	))
}
