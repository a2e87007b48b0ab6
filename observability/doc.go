// Package observability exports pipeline signals through OpenTelemetry.
//
// TracingObserver opens a span per subscription of an observed stage and adds
// a span event for every signal. MetricsObserver counts signals and errors and
// records how long subscriptions live. Both plug into reactive.Observe:
//
//	providers, err := observability.Init(ctx,
//	    observability.DefaultTracerConfig("reactordemo"),
//	    observability.DefaultMeterConfig("reactordemo"))
//	defer providers.Shutdown(ctx)
//
//	names := reactive.Just("alex", "ben").Observe("names", providers.Observer())
package observability
