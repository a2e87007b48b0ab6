package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/kbukum/reactor/config"
	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/observability"
	"github.com/kbukum/reactor/reactive"
)

// App carries what a pipeline program needs at run time.
// The type parameter C is the config type, which must satisfy the Config interface.
// Any struct embedding config.ServiceConfig automatically satisfies Config.
type App[C Config] struct {
	Name      string
	Version   string
	Cfg       C
	Logger    *logger.Logger
	Scheduler reactive.Scheduler
	// Telemetry is set once tracing is running; nil otherwise.
	Telemetry *observability.Providers

	gracefulTimeout time.Duration
	ownsTelemetry   bool
	closeScheduler  func()

	onStart []Hook
	onStop  []Hook
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, initializes the logger and
// builds the scheduler.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Telemetry:       o.telemetry,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	// Logger: use custom if provided, otherwise init from config.
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	switch {
	case o.scheduler != nil:
		app.Scheduler = o.scheduler
	case base.Engine.SerialScheduler:
		clock := o.clock
		if clock == nil {
			clock = clockz.RealClock
		}
		serial := reactive.NewSerialScheduler(clock)
		app.Scheduler = serial
		app.closeScheduler = serial.Close
	case o.clock != nil:
		app.Scheduler = reactive.NewParallelScheduler(o.clock)
	default:
		app.Scheduler = reactive.DefaultScheduler()
	}

	return app, nil
}

// Context returns ctx carrying the application scheduler, for subscriptions
// made outside RunTask.
func (a *App[C]) Context(ctx context.Context) context.Context {
	ctx = reactive.WithConcurrency(ctx, a.Cfg.GetServiceConfig().Engine.Concurrency)
	return reactive.WithScheduler(ctx, a.Scheduler)
}

// Observer returns what named stages should report to: signal logging when
// the engine config enables it, and telemetry when it is running. It returns
// nil when there is nothing to report to, which Observe treats as a no-op.
func (a *App[C]) Observer() reactive.Observer {
	return a.ObserverFor(a.Cfg.GetServiceConfig().Engine)
}

// ObserverFor is Observer for an engine config other than the startup one,
// such as a reloaded version.
func (a *App[C]) ObserverFor(engine config.EngineConfig) reactive.Observer {
	var observers []reactive.Observer
	if engine.SignalLogging {
		observers = append(observers, reactive.LogObserver(a.Logger))
	}
	if a.Telemetry != nil {
		observers = append(observers, a.Telemetry.Observer())
	}
	switch len(observers) {
	case 0:
		return nil
	case 1:
		return observers[0]
	default:
		return reactive.Observers(observers...)
	}
}

// RunTask runs a finite task with the full lifecycle: telemetry and OnStart
// hooks, the task itself, then OnStop hooks and shutdown. The task context
// carries the application scheduler and is cancelled on SIGINT/SIGTERM,
// which cancels every subscription made with it.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	// Set up signal-based cancellation for the task
	taskCtx, cancel := context.WithCancel(a.Context(ctx))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, cancelling pipelines", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// startup brings up telemetry and runs the OnStart hooks.
func (a *App[C]) startup(ctx context.Context) error {
	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	tracing := a.Cfg.GetServiceConfig().Tracing
	if tracing.Enabled && a.Telemetry == nil {
		providers, err := observability.Init(ctx, a.tracerConfig(), a.meterConfig())
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		a.Telemetry = providers
		a.ownsTelemetry = true
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	return nil
}

func (a *App[C]) tracerConfig() observability.TracerConfig {
	base := a.Cfg.GetServiceConfig()
	return observability.TracerConfig{
		ServiceName:    base.Name,
		ServiceVersion: base.Version,
		Environment:    base.Environment,
		Endpoint:       base.Tracing.Endpoint,
		Insecure:       base.Tracing.Insecure,
		SampleRate:     base.Tracing.SampleRate,
	}
}

func (a *App[C]) meterConfig() observability.MeterConfig {
	base := a.Cfg.GetServiceConfig()
	return observability.MeterConfig{
		ServiceName:    base.Name,
		ServiceVersion: base.Version,
		Environment:    base.Environment,
		Endpoint:       base.Tracing.Endpoint,
		Insecure:       base.Tracing.Insecure,
		Interval:       base.Tracing.MetricsInterval,
	}
}

// Shutdown performs graceful shutdown. Use when managing your own lifecycle.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

// stop runs OnStop hooks, flushes telemetry started by the app and closes a
// serial scheduler, all within the graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			"error": err.Error(),
		})
		shutdownErr = err
	}

	if a.ownsTelemetry {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			a.Logger.Error("Telemetry shutdown error", map[string]interface{}{
				"error": err.Error(),
			})
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
		a.Telemetry = nil
		a.ownsTelemetry = false
	}

	if a.closeScheduler != nil {
		a.closeScheduler()
		a.closeScheduler = nil
	}

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}
