// Package validation checks configuration values before they reach the
// engine.
//
// Struct tag validation (go-playground/validator) covers declarative limits on
// config structs; the programmatic Validator collects cross-field checks.
// Both report a single *errors.AppError with code INVALID_ARGUMENT whose
// "fields" detail lists every failing field.
//
// # Struct Tag Validation
//
//	type EngineConfig struct {
//	    Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=65536"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", cfg.Name).OneOf("environment", cfg.Environment, envs)
//	err := v.Validate()
package validation
