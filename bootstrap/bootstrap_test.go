package bootstrap

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/reactor/config"
	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/observability"
	"github.com/kbukum/reactor/reactive"
)

// testConfig is a minimal config for testing that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func TestNewApp(t *testing.T) {
	cfg := newTestConfig("test-svc", "1.0.0")
	app, err := NewApp(cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Name != "test-svc" {
		t.Errorf("expected name 'test-svc', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Logger == nil {
		t.Error("expected non-nil logger")
	}
	if app.Scheduler != reactive.DefaultScheduler() {
		t.Error("expected the default scheduler")
	}
	// Defaults were applied through the typed config.
	if app.Cfg.Engine.Concurrency != 256 {
		t.Errorf("expected engine concurrency 256, got %d", app.Cfg.Engine.Concurrency)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default graceful timeout 15s, got %v", app.gracefulTimeout)
	}
}

func TestNewApp_ValidationError(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "development"}}
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestNewApp_Options(t *testing.T) {
	sched := reactive.NewParallelScheduler(clockz.NewFakeClock())
	app, err := NewApp(newTestConfig("svc", "1"),
		WithLogger(logger.Nop()),
		WithScheduler(sched),
		WithGracefulTimeout(2*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}
	if app.Scheduler != reactive.Scheduler(sched) {
		t.Error("expected the supplied scheduler")
	}
	if app.gracefulTimeout != 2*time.Second {
		t.Errorf("expected graceful timeout 2s, got %v", app.gracefulTimeout)
	}
}

func TestNewApp_SchedulerFromConfig(t *testing.T) {
	clock := clockz.NewFakeClock()

	cfg := newTestConfig("svc", "1")
	cfg.Engine.SerialScheduler = true
	app, err := NewApp(cfg, WithLogger(logger.Nop()), WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := app.Scheduler.(*reactive.SerialScheduler); !ok {
		t.Fatalf("expected *SerialScheduler, got %T", app.Scheduler)
	}
	if app.closeScheduler == nil {
		t.Fatal("expected the serial scheduler to be closed on shutdown")
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if app.closeScheduler != nil {
		t.Error("expected closeScheduler to be cleared after shutdown")
	}

	app, err = NewApp(newTestConfig("svc", "1"), WithLogger(logger.Nop()), WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := app.Scheduler.(*reactive.ParallelScheduler); !ok {
		t.Fatalf("expected *ParallelScheduler, got %T", app.Scheduler)
	}
}

func TestApp_Context(t *testing.T) {
	cfg := newTestConfig("svc", "1")
	cfg.Engine.Concurrency = 4
	sched := reactive.NewParallelScheduler(clockz.NewFakeClock())
	app, err := NewApp(cfg, WithLogger(logger.Nop()), WithScheduler(sched))
	if err != nil {
		t.Fatal(err)
	}
	ctx := app.Context(context.Background())
	if got := reactive.ConcurrencyFrom(ctx); got != 4 {
		t.Errorf("expected configured concurrency 4, got %d", got)
	}
	if reactive.SchedulerFrom(ctx) != reactive.Scheduler(sched) {
		t.Error("expected the app scheduler in the context")
	}
}

func TestApp_Observer(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", "1"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if app.Observer() != nil {
		t.Error("expected no observer without signal logging or telemetry")
	}
	if app.ObserverFor(config.EngineConfig{SignalLogging: true}) == nil {
		t.Error("expected a log observer for a reloaded engine config with signal logging")
	}

	cfg := newTestConfig("svc", "1")
	cfg.Engine.SignalLogging = true
	app, err = NewApp(cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if app.Observer() == nil {
		t.Error("expected an observer with signal logging enabled")
	}
}

func TestApp_ObserverWithTelemetry(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	providers, err := observability.NewProviders(tp, mp)
	if err != nil {
		t.Fatal(err)
	}

	app, err := NewApp(newTestConfig("svc", "1"), WithLogger(logger.Nop()), WithTelemetry(providers))
	if err != nil {
		t.Fatal(err)
	}
	obs := app.Observer()
	if obs == nil {
		t.Fatal("expected a telemetry observer")
	}

	got, err := reactive.Collect(context.Background(), reactive.Just(1, 2).Observe("numbers", obs))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("got %v", got)
	}
	if spans := rec.Ended(); len(spans) != 1 {
		t.Errorf("expected 1 ended span, got %d", len(spans))
	}

	// Supplied providers belong to the caller and survive shutdown.
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if app.Telemetry != providers {
		t.Error("expected supplied telemetry to be kept")
	}
}

func TestApp_RunTask(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", "1"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}

	var order []string
	app.OnStart(func(ctx context.Context) error {
		order = append(order, "start")
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		order = append(order, "stop")
		return nil
	})

	var got []string
	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		if reactive.SchedulerFrom(ctx) != app.Scheduler {
			t.Error("expected the task context to carry the app scheduler")
		}
		var err error
		got, err = reactive.Collect(ctx, reactive.Just("alex", "ben"))
		return err
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"start", "task", "stop"}) {
		t.Errorf("unexpected lifecycle order %v", order)
	}
	if !reflect.DeepEqual(got, []string{"alex", "ben"}) {
		t.Errorf("got %v", got)
	}
}

func TestApp_RunTaskError(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", "1"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	stopped := false
	app.OnStop(func(ctx context.Context) error {
		stopped = true
		return errors.New("stop failed")
	})

	taskErr := errors.New("task failed")
	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		return taskErr
	})
	if !errors.Is(err, taskErr) {
		t.Errorf("expected the task error to win, got %v", err)
	}
	if !stopped {
		t.Error("expected OnStop hooks to run after a failed task")
	}
}

func TestApp_StartHookError(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", "1"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	app.OnStart(func(ctx context.Context) error {
		return errors.New("boom")
	})

	ran := false
	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err == nil {
		t.Fatal("expected start hook error")
	}
	if ran {
		t.Error("task must not run when a start hook fails")
	}
}

func TestApp_StopHookError(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", "1"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	app.OnStop(func(ctx context.Context) error {
		return errors.New("stop failed")
	})
	if err := app.Shutdown(context.Background()); err == nil {
		t.Error("expected shutdown to report the hook error")
	}
}

func TestRunHooks(t *testing.T) {
	var calls []int
	hooks := []Hook{
		func(ctx context.Context) error { calls = append(calls, 1); return nil },
		func(ctx context.Context) error { return errors.New("second") },
		func(ctx context.Context) error { calls = append(calls, 3); return nil },
	}
	if err := runHooks(context.Background(), hooks); err == nil {
		t.Fatal("expected error from second hook")
	}
	if !reflect.DeepEqual(calls, []int{1}) {
		t.Errorf("expected hooks to stop at the first error, got %v", calls)
	}
}
