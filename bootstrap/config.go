package bootstrap

import (
	"github.com/kbukum/reactor/config"
)

// Config is the interface constraint for application configuration types.
// Any struct that embeds config.ServiceConfig (value embedding) automatically
// satisfies this interface via promoted methods.
//
// Example:
//
//	type DemoConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Scenarios []string `yaml:"scenarios" mapstructure:"scenarios"`
//	}
//
//	app, err := bootstrap.NewApp[*DemoConfig](&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
