package main

import (
	"fmt"

	"github.com/kbukum/reactor/config"
	"github.com/kbukum/reactor/validation"
)

// DemoConfig is the configuration of reactordemo.
type DemoConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Demo                 DemoSettings `yaml:"demo" mapstructure:"demo"`
}

// DemoSettings selects and parameterizes the pipelines to run.
type DemoSettings struct {
	// Scenarios names the pipelines to run; empty or "all" runs every one.
	Scenarios []string `yaml:"scenarios" mapstructure:"scenarios"`
	// MinLength is the name length the filtering pipelines must exceed.
	MinLength int `yaml:"min_length" mapstructure:"min_length"`
	// Watch keeps the process running and re-runs the scenarios whenever the
	// config file changes.
	Watch bool `yaml:"watch" mapstructure:"watch"`
}

func (c *DemoConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "reactordemo"
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Demo.MinLength == 0 {
		c.Demo.MinLength = 3
	}
}

func (c *DemoConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.New().Min("min_length", c.Demo.MinLength, 0).Err(); err != nil {
		return fmt.Errorf("config.demo: %w", err)
	}
	return nil
}
