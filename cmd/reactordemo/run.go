package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/reactive"
)

// Scenario is one runnable demo pipeline.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, g *Generator, s DemoSettings) error
}

func printAll[T any](w io.Writer) func(context.Context, reactive.Publisher[T]) error {
	return func(ctx context.Context, p reactive.Publisher[T]) error {
		return reactive.ForEach(ctx, p, func(v T) error {
			_, err := fmt.Fprintln(w, v)
			return err
		})
	}
}

// scenarios lists every pipeline in the order "all" runs them.
func scenarios(w io.Writer) []Scenario {
	str := printAll[string](w)
	list := printAll[[]string](w)
	return []Scenario{
		{"namesFlux", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.NamesFlux()) }},
		{"nameMono", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.NameMono()) }},
		{"monoMap", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.MonoMap()) }},
		{"monoMapWithFilter", func(ctx context.Context, g *Generator, s DemoSettings) error {
			return str(ctx, g.MonoMapWithFilter(s.MinLength))
		}},
		{"nameFluxMap", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.NameFluxMap()) }},
		{"nameFluxFlatMap", func(ctx context.Context, g *Generator, s DemoSettings) error {
			return str(ctx, g.NameFluxFlatMap(s.MinLength))
		}},
		{"nameFluxTransform", func(ctx context.Context, g *Generator, s DemoSettings) error {
			return str(ctx, g.NameFluxTransform(s.MinLength))
		}},
		{"nameFluxFlatMapAsync", func(ctx context.Context, g *Generator, s DemoSettings) error {
			return str(ctx, g.NameFluxFlatMapAsync(s.MinLength))
		}},
		{"nameFluxConcatMap", func(ctx context.Context, g *Generator, s DemoSettings) error {
			return str(ctx, g.NameFluxConcatMap(s.MinLength))
		}},
		{"nameMonoFlatMap", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return list(ctx, g.NameMonoFlatMap())
		}},
		{"nameMonoTransformWithFilter", func(ctx context.Context, g *Generator, s DemoSettings) error {
			return list(ctx, g.NameMonoTransformWithFilter(s.MinLength))
		}},
		{"nameMonoFlatMapMany", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return str(ctx, g.NameMonoFlatMapMany())
		}},
		{"fluxConcat", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.FluxConcat()) }},
		{"fluxConcatWith", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.FluxConcatWith()) }},
		{"monoConcatWith", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.MonoConcatWith()) }},
		{"fluxMerge", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.FluxMerge()) }},
		{"monoMerge", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.MonoMerge()) }},
		{"monoMergeWith", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.MonoMergeWith()) }},
		{"monoZip", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.MonoZip()) }},
		{"fluxZip", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.FluxZip()) }},
		{"monoZipWith", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.MonoZipWith()) }},
		{"fluxZipWith", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.FluxZipWith()) }},
		{"exceptionFlux", func(ctx context.Context, g *Generator, _ DemoSettings) error { return str(ctx, g.ExceptionFlux()) }},
		{"exploreOnErrorReturn", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return str(ctx, g.ExploreOnErrorReturn())
		}},
		{"exploreOnErrorResume", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return str(ctx, g.ExploreOnErrorResume(errors.NewPlain("Exception Occurred")))
		}},
		{"exploreOnErrorContinue", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return str(ctx, g.ExploreOnErrorContinue())
		}},
		{"exploreMonoOnErrorContinue", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return str(ctx, g.ExploreMonoOnErrorContinue("abc"))
		}},
		{"exploreOnErrorMap", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return str(ctx, g.ExploreOnErrorMap())
		}},
		{"exploreDoOnError", func(ctx context.Context, g *Generator, _ DemoSettings) error {
			return str(ctx, g.ExploreDoOnError())
		}},
	}
}

// selectScenarios resolves names against all; "all" or no names selects
// everything.
func selectScenarios(all []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 || slices.Contains(names, "all") {
		return all, nil
	}
	selected := make([]Scenario, 0, len(names))
	for _, name := range names {
		i := slices.IndexFunc(all, func(s Scenario) bool { return s.Name == name })
		if i < 0 {
			return nil, errors.InvalidArgument("scenario", fmt.Sprintf("unknown scenario %q", name))
		}
		selected = append(selected, all[i])
	}
	return selected, nil
}

// runScenarios runs each scenario to termination. A failing pipeline is
// logged and the next one still runs; only cancellation stops the run.
func runScenarios(ctx context.Context, log *logger.Logger, g *Generator, s DemoSettings, list []Scenario) error {
	for _, sc := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("Running scenario", map[string]interface{}{"scenario": sc.Name})
		if err := sc.Run(ctx, g, s); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d := errors.Describe(err)
			fields := map[string]interface{}{
				"scenario":  sc.Name,
				"code":      string(d.Code),
				"error":     d.Message,
				"retryable": d.Retryable,
			}
			if d.Cause != "" {
				fields["cause"] = d.Cause
			}
			log.Warn("Scenario terminated with error", fields)
		}
	}
	return nil
}
