// Package errors provides the tagged error values used by the reactor engine.
// Failures travel through a pipeline as plain error values; engine-made failures
// are AppError values carrying a machine-readable code, the original cause and,
// for translated errors, the translated message.
package errors
