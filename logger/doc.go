// Package logger provides structured logging for reactor using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers. The reactive package uses it as the backend of the
// Log stage, which traces every signal a subscription sees.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("names-pipeline")
//	log.Info("subscribed", logger.Fields(logger.FieldSubscription, id))
package logger
