// Command reactordemo runs the demo pipelines of the reactive engine, one
// per operator family, and prints what each emits.
//
//	reactordemo -scenario fluxMerge,exploreOnErrorContinue
//
// With signal_logging enabled every pipeline also logs its subscription
// protocol: onSubscribe, request, onNext, onComplete or onError.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zoobzio/capitan"

	"github.com/kbukum/reactor/bootstrap"
	"github.com/kbukum/reactor/config"
	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/reactive"
	"github.com/kbukum/reactor/version"
)

const (
	appName   = "reactordemo"
	envPrefix = "REACTOR"
)

func main() {
	var (
		configFile  = flag.String("config", "", "path to the config file")
		scenarioArg = flag.String("scenario", "", "comma-separated scenarios to run (default: all)")
		watch       = flag.Bool("watch", false, "re-run the scenarios whenever the config file changes")
		list        = flag.Bool("list", false, "list the scenarios and exit")
		showVersion = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}
	if *list {
		for _, sc := range scenarios(io.Discard) {
			fmt.Println(sc.Name)
		}
		return
	}

	if err := run(*configFile, *scenarioArg, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(configFile, scenarioArg string, watch bool) error {
	var cfg DemoConfig
	opts := []config.LoaderOption{config.WithEnvPrefix(envPrefix)}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if err := config.LoadConfig(appName, &cfg, opts...); err != nil {
		return err
	}
	if scenarioArg != "" {
		cfg.Demo.Scenarios = strings.Split(scenarioArg, ",")
	}
	if watch {
		cfg.Demo.Watch = true
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	app.OnStart(func(ctx context.Context) error {
		app.Logger.Info("Build", version.Get().Fields())
		return nil
	})

	return app.RunTask(context.Background(), func(ctx context.Context) error {
		if !cfg.Demo.Watch {
			return runOnce(ctx, app, &cfg)
		}
		path := configFile
		if path == "" {
			resolver := &config.Resolver{FileSystem: &config.RealFileSystem{}}
			path = resolver.ResolveFiles(appName, config.LoaderConfig{}).ConfigFile
		}
		if path == "" {
			return fmt.Errorf("watch: no config file found for %s", appName)
		}
		return watchAndRun(ctx, app, path)
	})
}

// runOnce runs the scenarios cfg selects with cfg's engine settings, which
// differ from the startup ones after a reload.
func runOnce(ctx context.Context, app *bootstrap.App[*DemoConfig], cfg *DemoConfig) error {
	selected, err := selectScenarios(scenarios(os.Stdout), cfg.Demo.Scenarios)
	if err != nil {
		return err
	}
	ctx, g := prepareRun(ctx, app, cfg, os.Stdout)
	return runScenarios(ctx, app.Logger, g, cfg.Demo, selected)
}

func prepareRun(ctx context.Context, app *bootstrap.App[*DemoConfig], cfg *DemoConfig, out io.Writer) (context.Context, *Generator) {
	ctx = reactive.WithConcurrency(ctx, cfg.Engine.Concurrency)
	return ctx, NewGenerator(cfg.Engine.DelayJitter, app.ObserverFor(cfg.Engine), app.Logger, out)
}

// watchAndRun runs the demo settings of every accepted version of the config
// file. Versions that fail to parse or validate are reported and skipped.
func watchAndRun(ctx context.Context, app *bootstrap.App[*DemoConfig], path string) error {
	log := app.Logger.WithComponent("config-watch")
	capitan.Hook(config.ReloadRejected, func(_ context.Context, e *capitan.Event) {
		errMsg, _ := config.KeyError.From(e)
		log.Warn("Config rejected", map[string]interface{}{"error": errMsg})
	})
	capitan.Hook(config.ReloadApplied, func(_ context.Context, e *capitan.Event) {
		p, _ := config.KeyPath.From(e)
		log.Info("Config applied", map[string]interface{}{"path": p})
	})
	app.OnStop(func(context.Context) error {
		capitan.Shutdown()
		return nil
	})

	updates := config.WatchConfig[DemoConfig](path).
		OnErrorContinue(func(err error, _ any) {
			log.Debug("Skipping config version", logger.ErrorFields("config.reload", err))
		})
	err := reactive.ForEach(ctx, updates, func(next *DemoConfig) error {
		return runOnce(ctx, app, next)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
