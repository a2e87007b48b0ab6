// Package config loads the configuration of programs that run reactive
// pipelines.
//
// It uses Viper to load a config.yml found in standard locations, loads a
// matching .env file with godotenv, and binds environment variables onto
// nested keys (ENGINE_CONCURRENCY sets engine.concurrency).
//
// # Usage
//
//	var cfg config.ServiceConfig
//	if err := config.LoadConfig("reactordemo", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
