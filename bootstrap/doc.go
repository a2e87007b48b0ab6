// Package bootstrap runs programs built on reactive pipelines.
//
// NewApp applies config defaults, validates, initializes the logger and picks
// the scheduler the engine config asks for. RunTask starts telemetry when
// tracing is enabled, runs the task with a context carrying the scheduler,
// cancels that context on SIGINT/SIGTERM and shuts everything down again.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    names := reactive.Just("alex", "ben").Observe("names", app.Observer())
//	    _, err := reactive.Collect(ctx, names)
//	    return err
//	})
package bootstrap
