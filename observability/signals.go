package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/reactive"
)

// TracingOption configures TracingObserver.
type TracingOption func(*tracingObserver)

// WithoutValues keeps element values out of span events.
func WithoutValues() TracingOption {
	return func(o *tracingObserver) { o.values = false }
}

type tracingObserver struct {
	tracer trace.Tracer
	values bool
	spans  sync.Map // subscription id -> trace.Span
}

// TracingObserver returns an observer that opens one span per subscription of
// the observed stage and records every signal as a span event. The span ends
// on the final signal; error terminations set the span status.
func TracingObserver(tracer trace.Tracer, opts ...TracingOption) reactive.Observer {
	if tracer == nil {
		tracer = Tracer()
	}
	o := &tracingObserver{tracer: tracer, values: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *tracingObserver) Observe(ctx context.Context, e reactive.Event) {
	if e.Type == reactive.SignalSubscribe {
		_, span := o.tracer.Start(ctx, SpanPrefix+e.Stage,
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				attribute.String(AttrStage, e.Stage),
				attribute.String(AttrSubscription, e.Subscription),
			),
		)
		o.spans.Store(e.Subscription, span)
		return
	}

	v, ok := o.spans.Load(e.Subscription)
	if !ok {
		return
	}
	span := v.(trace.Span)

	switch e.Type {
	case reactive.SignalRequest:
		span.AddEvent(e.Type.String(), trace.WithTimestamp(e.Time),
			trace.WithAttributes(attribute.Int64(AttrRequested, e.Requested)))
	case reactive.SignalNext:
		var attrs []attribute.KeyValue
		if o.values {
			attrs = append(attrs, attribute.String(AttrValue, fmt.Sprint(e.Value)))
		}
		span.AddEvent(e.Type.String(), trace.WithTimestamp(e.Time), trace.WithAttributes(attrs...))
	case reactive.SignalError:
		span.RecordError(e.Err, trace.WithTimestamp(e.Time),
			trace.WithAttributes(attribute.String(AttrErrorCode, errorCode(e.Err))))
		span.SetStatus(codes.Error, e.Err.Error())
	case reactive.SignalComplete, reactive.SignalCancel:
		span.AddEvent(e.Type.String(), trace.WithTimestamp(e.Time))
	case reactive.SignalFinally:
		o.spans.Delete(e.Subscription)
		span.SetAttributes(attribute.String(AttrTerminal, e.Terminal.String()))
		if e.Terminal == reactive.SignalComplete {
			span.SetStatus(codes.Ok, "")
		}
		span.End(trace.WithTimestamp(e.Time))
	}
}

type metricsObserver struct {
	metrics *Metrics
	started sync.Map // subscription id -> time.Time
}

// MetricsObserver returns an observer that counts signals, tracks active
// subscriptions and records subscription lifetimes on m.
func MetricsObserver(m *Metrics) reactive.Observer {
	return &metricsObserver{metrics: m}
}

func (o *metricsObserver) Observe(ctx context.Context, e reactive.Event) {
	o.metrics.RecordSignal(ctx, e.Stage, e.Type.String())
	switch e.Type {
	case reactive.SignalSubscribe:
		o.started.Store(e.Subscription, e.Time)
		o.metrics.RecordSubscriptionStart(ctx, e.Stage)
	case reactive.SignalError:
		o.metrics.RecordError(ctx, e.Stage, errorCode(e.Err))
	case reactive.SignalFinally:
		v, ok := o.started.LoadAndDelete(e.Subscription)
		if !ok {
			return
		}
		o.metrics.RecordSubscriptionEnd(ctx, e.Stage, e.Terminal.String(), e.Time.Sub(v.(time.Time)))
	}
}

func errorCode(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "UNKNOWN"
}
