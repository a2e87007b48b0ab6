package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/reactive"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "staging")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := res.Set().Value("service.name")
	if !ok || v.AsString() != "svc" {
		t.Errorf("expected service.name svc, got %v", v)
	}
}

func newRecordingTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func eventNames(span sdktrace.ReadOnlySpan) []string {
	var names []string
	for _, e := range span.Events() {
		names = append(names, e.Name)
	}
	return names
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingObserver_SpanPerSubscription(t *testing.T) {
	sr, tp := newRecordingTracer()
	f := reactive.Just("alex", "ben").Observe("names", TracingObserver(tp.Tracer("test")))

	if _, err := reactive.Collect(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if _, err := reactive.Collect(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "reactive.names" {
		t.Errorf("expected span name reactive.names, got %q", span.Name())
	}
	want := []string{"request", "onNext", "onNext", "onComplete"}
	got := eventNames(span)
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if v, ok := attr(span.Events()[1].Attributes, AttrValue); !ok || v.AsString() != "alex" {
		t.Errorf("expected value attribute alex, got %v", v)
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", span.Status())
	}
	if v, ok := attr(span.Attributes(), AttrTerminal); !ok || v.AsString() != "onComplete" {
		t.Errorf("expected terminal attribute onComplete, got %v", v)
	}

	id0, _ := attr(spans[0].Attributes(), AttrSubscription)
	id1, _ := attr(spans[1].Attributes(), AttrSubscription)
	if id0.AsString() == id1.AsString() {
		t.Error("expected distinct subscription ids")
	}
}

func TestTracingObserver_Error(t *testing.T) {
	sr, tp := newRecordingTracer()
	f := reactive.Error[int](errors.Source(errors.NewPlain("boom"))).
		Observe("failing", TracingObserver(tp.Tracer("test")))

	if _, err := reactive.Collect(context.Background(), f); err == nil {
		t.Fatal("expected an error")
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Errorf("expected Error status, got %v", span.Status())
	}
	var found bool
	for _, e := range span.Events() {
		if e.Name != "exception" {
			continue
		}
		found = true
		if v, ok := attr(e.Attributes, AttrErrorCode); !ok || v.AsString() != "SOURCE_ERROR" {
			t.Errorf("expected error code SOURCE_ERROR, got %v", v)
		}
	}
	if !found {
		t.Errorf("expected an exception event, got %v", eventNames(span))
	}
}

func TestTracingObserver_WithoutValues(t *testing.T) {
	sr, tp := newRecordingTracer()
	f := reactive.Just("secret").Observe("names", TracingObserver(tp.Tracer("test"), WithoutValues()))
	if _, err := reactive.Collect(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	for _, e := range sr.Ended()[0].Events() {
		if _, ok := attr(e.Attributes, AttrValue); ok {
			t.Errorf("expected no value attribute on %q", e.Name)
		}
	}
}

func TestTracingObserver_Cancel(t *testing.T) {
	sr, tp := newRecordingTracer()
	sub := reactive.Never[int]().
		Observe("never", TracingObserver(tp.Tracer("test"))).
		SubscribeFunc(nil, nil, nil)
	if len(sr.Ended()) != 0 {
		t.Fatal("expected the span to stay open before cancel")
	}
	sub.Cancel()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span after cancel, got %d", len(spans))
	}
	if v, _ := attr(spans[0].Attributes(), AttrTerminal); v.AsString() != "cancel" {
		t.Errorf("expected terminal cancel, got %v", v)
	}
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumBy(m metricdata.Metrics, key string) map[string]int64 {
	out := make(map[string]int64)
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return out
	}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	return m, reader
}

func TestMetricsObserver(t *testing.T) {
	m, reader := newTestMetrics(t)
	f := reactive.Just(1, 2, 3).Observe("ints", MetricsObserver(m))
	if _, err := reactive.Collect(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	metrics := collectMetrics(t, reader)
	signals := sumBy(metrics[MetricSignals], AttrSignal)
	want := map[string]int64{"onSubscribe": 1, "request": 1, "onNext": 3, "onComplete": 1, "finally": 1}
	for signal, n := range want {
		if signals[signal] != n {
			t.Errorf("%s: got %d, want %d", signal, signals[signal], n)
		}
	}
	if active := sumBy(metrics[MetricSubscriptionsActive], AttrStage); active["ints"] != 0 {
		t.Errorf("expected no active subscriptions, got %d", active["ints"])
	}
	hist, ok := metrics[MetricSubscriptionDuration].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("expected one subscription duration sample, got %+v", metrics[MetricSubscriptionDuration].Data)
	}
}

func TestMetricsObserver_ActiveAndErrors(t *testing.T) {
	m, reader := newTestMetrics(t)
	sub := reactive.Never[int]().Observe("open", MetricsObserver(m)).SubscribeFunc(nil, nil, nil)

	metrics := collectMetrics(t, reader)
	if active := sumBy(metrics[MetricSubscriptionsActive], AttrStage); active["open"] != 1 {
		t.Errorf("expected 1 active subscription, got %d", active["open"])
	}
	sub.Cancel()

	failing := reactive.Error[int](errors.InvalidArgument("count", "negative")).Observe("bad", MetricsObserver(m))
	_, _ = reactive.Collect(context.Background(), failing)
	_, _ = reactive.Collect(context.Background(), reactive.Error[int](errors.NewPlain("plain")).Observe("bad", MetricsObserver(m)))

	metrics = collectMetrics(t, reader)
	codesSeen := sumBy(metrics[MetricErrors], AttrErrorCode)
	if codesSeen["INVALID_ARGUMENT"] != 1 || codesSeen["UNKNOWN"] != 1 {
		t.Errorf("unexpected error counts: %v", codesSeen)
	}
	if active := sumBy(metrics[MetricSubscriptionsActive], AttrStage); active["open"] != 0 {
		t.Errorf("expected cancelled subscription to be inactive, got %d", active["open"])
	}
}

func TestProviders(t *testing.T) {
	sr, tp := newRecordingTracer()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	providers, err := NewProviders(tp, mp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := reactive.Just("a").Observe("combined", providers.Observer())
	if _, err := reactive.Collect(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if len(sr.Ended()) != 1 {
		t.Errorf("expected one span, got %d", len(sr.Ended()))
	}
	if signals := sumBy(collectMetrics(t, reader)[MetricSignals], AttrSignal); signals["onNext"] != 1 {
		t.Errorf("expected one onNext signal counted, got %d", signals["onNext"])
	}

	if err := providers.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("sampler(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}
