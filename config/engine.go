package config

import (
	"time"

	"github.com/kbukum/reactor/validation"
)

// EngineConfig tunes how pipelines execute.
type EngineConfig struct {
	// Concurrency bounds the inner subscriptions of flatMap and merge stages.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// SignalLogging attaches a log observer to every named stage.
	SignalLogging bool `yaml:"signal_logging" mapstructure:"signal_logging"`
	// DelayJitter is the upper bound of randomized per-element delays.
	DelayJitter time.Duration `yaml:"delay_jitter" mapstructure:"delay_jitter"`
	// SerialScheduler runs every scheduled task on a single worker.
	SerialScheduler bool `yaml:"serial_scheduler" mapstructure:"serial_scheduler"`
}

// ApplyDefaults applies default values to engine configuration.
func (c *EngineConfig) ApplyDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 256
	}
	if c.DelayJitter == 0 {
		c.DelayJitter = time.Second
	}
}

// Validate validates engine configuration.
func (c *EngineConfig) Validate() error {
	return validation.New().
		Range("concurrency", c.Concurrency, 1, 65536).
		NonNegativeDuration("delay_jitter", c.DelayJitter).
		Err()
}

// TracingConfig enables OpenTelemetry export of pipeline signals.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	// MetricsInterval is the metric export interval.
	MetricsInterval time.Duration `yaml:"metrics_interval" mapstructure:"metrics_interval" validate:"gte=0"`
}

// ApplyDefaults applies default values to tracing configuration.
func (c *TracingConfig) ApplyDefaults() {
	if !c.Enabled {
		return
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricsInterval == 0 {
		c.MetricsInterval = 15 * time.Second
	}
}

// Validate validates tracing configuration.
func (c *TracingConfig) Validate() error {
	v := validation.New().Custom(!c.Enabled || c.Endpoint != "", "endpoint", "is required when tracing is enabled")
	if err := v.Err(); err != nil {
		return err
	}
	return validation.Validate(c)
}
