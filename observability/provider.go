package observability

import (
	"context"
	stderrors "errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/reactor/reactive"
)

// Providers bundles the tracer and meter providers of a process together
// with the signal instruments built on them.
type Providers struct {
	Tracer  *sdktrace.TracerProvider
	Meter   *sdkmetric.MeterProvider
	metrics *Metrics
}

// Init starts both exporters. On failure anything already started is shut
// down again.
func Init(ctx context.Context, tc TracerConfig, mc MeterConfig) (*Providers, error) {
	tp, err := InitTracer(ctx, tc)
	if err != nil {
		return nil, err
	}
	mp, err := InitMeter(ctx, &mc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return NewProviders(tp, mp)
}

// NewProviders wraps existing providers, for callers that build their own
// exporters or readers.
func NewProviders(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) (*Providers, error) {
	metrics, err := NewMetrics(mp.Meter(InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("creating signal metrics: %w", err)
	}
	return &Providers{Tracer: tp, Meter: mp, metrics: metrics}, nil
}

// Observer returns an observer that traces and counts every signal of the
// stages it is attached to.
func (p *Providers) Observer(opts ...TracingOption) reactive.Observer {
	return reactive.Observers(
		TracingObserver(p.Tracer.Tracer(InstrumentationName), opts...),
		MetricsObserver(p.metrics),
	)
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	return stderrors.Join(p.Tracer.Shutdown(ctx), p.Meter.Shutdown(ctx))
}
