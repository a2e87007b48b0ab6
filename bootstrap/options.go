package bootstrap

import (
	"time"

	"github.com/zoobzio/clockz"

	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/observability"
	"github.com/kbukum/reactor/reactive"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	logger          *logger.Logger
	scheduler       reactive.Scheduler
	clock           clockz.Clock
	telemetry       *observability.Providers
	gracefulTimeout *time.Duration
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is auto-initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithScheduler replaces the scheduler chosen from the engine config.
func WithScheduler(s reactive.Scheduler) Option {
	return func(o *appOptions) {
		o.scheduler = s
	}
}

// WithClock sets the clock of the scheduler built from the engine config.
func WithClock(c clockz.Clock) Option {
	return func(o *appOptions) {
		o.clock = c
	}
}

// WithTelemetry supplies OpenTelemetry providers instead of starting OTLP
// exporters from the tracing config.
func WithTelemetry(p *observability.Providers) Option {
	return func(o *appOptions) {
		o.telemetry = p
	}
}
