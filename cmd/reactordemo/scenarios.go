package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/reactive"
)

var defaultNames = []string{"Arka", "Farhan", "Akif", "Nipa", "Zareen", "Mosfikur"}

// Generator builds the demo pipelines. Every pipeline ends in a named stage
// reported to the observer, so running it with signal logging on shows the
// full subscription protocol.
type Generator struct {
	names  []string
	jitter time.Duration
	obs    reactive.Observer
	log    *logger.Logger
	out    io.Writer
}

// NewGenerator creates a generator. jitter bounds the random per-name delay
// of the asynchronous flatMap and concatMap pipelines; zero disables it.
func NewGenerator(jitter time.Duration, obs reactive.Observer, log *logger.Logger, out io.Writer) *Generator {
	return &Generator{
		names:  defaultNames,
		jitter: jitter,
		obs:    obs,
		log:    log,
		out:    out,
	}
}

func upper(_ context.Context, s string) (string, error) {
	return strings.ToUpper(s), nil
}

func split(_ context.Context, s string) (reactive.Publisher[string], error) {
	return reactive.FromSlice(strings.Split(s, "")), nil
}

func splitUpper(_ context.Context, s string) (reactive.Publisher[string], error) {
	return reactive.FromSlice(strings.Split(strings.ToUpper(s), "")), nil
}

func splitUpperMono(_ context.Context, s string) (*reactive.Mono[[]string], error) {
	return reactive.MonoJust(strings.Split(strings.ToUpper(s), "")), nil
}

func longerThan(n int) func(string) bool {
	return func(s string) bool { return len(s) > n }
}

// upperUnless upper-cases names, failing on the rejected one.
func upperUnless(rejected string, err error) func(context.Context, string) (string, error) {
	return func(_ context.Context, s string) (string, error) {
		if s == rejected {
			return "", err
		}
		return strings.ToUpper(s), nil
	}
}

func (g *Generator) NamesFlux() *reactive.Flux[string] {
	return reactive.FromSlice(g.names).Observe("namesFlux", g.obs)
}

func (g *Generator) NameMono() *reactive.Mono[string] {
	return reactive.MonoJust("Arka Bhuiyan").Observe("nameMono", g.obs)
}

func (g *Generator) MonoMap() *reactive.Mono[string] {
	return reactive.MonoMap(reactive.MonoJust("Arka Bhuiyan"), upper).Observe("monoMap", g.obs)
}

func (g *Generator) MonoMapWithFilter(minLength int) *reactive.Mono[string] {
	return reactive.MonoMap(reactive.MonoJust("Arka"), upper).
		Filter(longerThan(minLength)).
		DefaultIfEmpty("default String").
		Observe("monoMapWithFilter", g.obs)
}

// NameFluxMap prints every lifecycle callback to the generator's output.
func (g *Generator) NameFluxMap() *reactive.Flux[string] {
	return reactive.Map(reactive.FromSlice(g.names).Filter(longerThan(4)), upper).
		DoOnNext(func(s string) { fmt.Fprintln(g.out, s) }).
		DoOnSubscribe(func(reactive.Subscription) { fmt.Fprintln(g.out, "Subscribed.") }).
		DoOnComplete(func() { fmt.Fprintln(g.out, "Inside the complete callback.") }).
		DoFinally(func(sig reactive.SignalType) { fmt.Fprintln(g.out, sig) }).
		Observe("nameFluxMap", g.obs)
}

func (g *Generator) NameFluxFlatMap(minLength int) *reactive.Flux[string] {
	return reactive.FlatMap(reactive.FromSlice(g.names).Filter(longerThan(minLength)), split).
		DefaultIfEmpty("default String").
		Observe("nameFluxFlatMap", g.obs)
}

func (g *Generator) NameFluxTransform(minLength int) *reactive.Flux[string] {
	transform := func(f *reactive.Flux[string]) *reactive.Flux[string] {
		return reactive.FlatMap(reactive.Map(f, upper).Filter(longerThan(minLength)), split)
	}
	fallback := reactive.Transform(reactive.Just("defaultString"), transform)
	return reactive.Transform(reactive.FromSlice(g.names), transform).
		SwitchIfEmpty(fallback).
		Observe("nameFluxTransform", g.obs)
}

// NameFluxFlatMapAsync delays each name's letters by a random amount, so
// letters of different names interleave.
func (g *Generator) NameFluxFlatMapAsync(minLength int) *reactive.Flux[string] {
	return reactive.FlatMap(reactive.FromSlice(g.names).Filter(longerThan(minLength)), g.splitWithDelay).
		Observe("nameFluxFlatMapAsync", g.obs)
}

// NameFluxConcatMap is NameFluxFlatMapAsync with names kept in order.
func (g *Generator) NameFluxConcatMap(minLength int) *reactive.Flux[string] {
	return reactive.ConcatMap(reactive.FromSlice(g.names).Filter(longerThan(minLength)), g.splitWithDelay).
		Observe("nameFluxConcatMap", g.obs)
}

func (g *Generator) splitWithDelay(_ context.Context, s string) (reactive.Publisher[string], error) {
	var d time.Duration
	if g.jitter > 0 {
		d = rand.N(g.jitter)
	}
	return reactive.FromSlice(strings.Split(s, "")).DelayElements(d), nil
}

func (g *Generator) NameMonoFlatMap() *reactive.Mono[[]string] {
	return reactive.MonoFlatMap(reactive.MonoJust("Arka Bhuiyan"), splitUpperMono).
		Observe("nameMonoFlatMap", g.obs)
}

func (g *Generator) NameMonoTransformWithFilter(minLength int) *reactive.Mono[[]string] {
	transform := func(m *reactive.Mono[string]) *reactive.Mono[[]string] {
		return reactive.MonoFlatMap(reactive.MonoMap(m, upper).Filter(longerThan(minLength)), splitUpperMono)
	}
	fallback := reactive.MonoTransform(reactive.MonoJust("default"), transform)
	return reactive.MonoTransform(reactive.MonoJust("Arka"), transform).
		SwitchIfEmpty(fallback).
		Observe("nameMonoTransformWithFilter", g.obs)
}

func (g *Generator) NameMonoFlatMapMany() *reactive.Flux[string] {
	return reactive.MonoFlatMapMany(reactive.MonoJust("ArkaBhuiyan"), splitUpper).
		Observe("nameMonoFlatMapMany", g.obs)
}

func (g *Generator) FluxConcat() *reactive.Flux[string] {
	return reactive.Concat[string](reactive.Just("A", "B", "C"), reactive.Just("D", "E", "F")).
		Observe("fluxConcat", g.obs)
}

func (g *Generator) FluxConcatWith() *reactive.Flux[string] {
	return reactive.Just("Arka", "Nipa").
		ConcatWith(reactive.Just("Farhan", "Akif")).
		Observe("fluxConcatWith", g.obs)
}

func (g *Generator) MonoConcatWith() *reactive.Flux[string] {
	return reactive.MonoJust("Arka").
		ConcatWith(reactive.MonoJust("Bhuiyan")).
		Observe("monoConcatWith", g.obs)
}

// FluxMerge interleaves two delayed fluxes: values arrive at 150 200 300 400
// 450 and 600ms.
func (g *Generator) FluxMerge() *reactive.Flux[string] {
	first := reactive.Just("Arka", "Farhan", "Faiaz").DelayElements(150 * time.Millisecond)
	second := reactive.Just("Mosfik", "Zareen", "Ifti").DelayElements(200 * time.Millisecond)
	return reactive.Merge[string](first, second).Observe("fluxMerge", g.obs)
}

func (g *Generator) MonoMerge() *reactive.Flux[string] {
	first := reactive.MonoJust("Arka Bhuiyan").DelayElement(200 * time.Millisecond)
	second := reactive.MonoJust("Farhan Zaman").DelayElement(500 * time.Millisecond)
	return reactive.Merge[string](first, second).Observe("monoMerge", g.obs)
}

func (g *Generator) MonoMergeWith() *reactive.Flux[string] {
	first := reactive.MonoJust("Arka Bhuiyan").DelayElement(200 * time.Millisecond)
	second := reactive.MonoJust("Farhan Zaman").DelayElement(500 * time.Millisecond)
	return first.MergeWith(second).Observe("monoMergeWith", g.obs)
}

func (g *Generator) MonoZip() *reactive.Mono[string] {
	return reactive.MonoZip(reactive.MonoJust("Arka"), reactive.MonoJust("Bhuiyan"), func(first, last string) string {
		return first + " " + last
	}).Observe("monoZip", g.obs)
}

func (g *Generator) FluxZip() *reactive.Flux[string] {
	firstNames := reactive.Just("Arka", "Farhan", "Akif")
	lastNames := reactive.Just("Bhuiyan", "Zaman", "Azwad")
	employeeIDs := reactive.Just(11512, 11514, 11507)
	return reactive.Zip3(firstNames, lastNames, employeeIDs, func(first, last string, id int) string {
		return fmt.Sprintf("%s %s, ID : %d", first, last, id)
	}).Observe("fluxZip", g.obs)
}

func joinPair(_ context.Context, t reactive.Tuple2[string, string]) (string, error) {
	return t.T1 + " " + t.T2, nil
}

func (g *Generator) MonoZipWith() *reactive.Mono[string] {
	return reactive.MonoMap(reactive.MonoZipWith(reactive.MonoJust("Arka"), reactive.MonoJust("Bhuiyan")), joinPair).
		Observe("monoZipWith", g.obs)
}

func (g *Generator) FluxZipWith() *reactive.Flux[string] {
	firstNames := reactive.Just("Arka", "Farhan", "Akif")
	lastNames := reactive.Just("Bhuiyan", "Zaman", "Azwad")
	return reactive.Map(reactive.ZipWith[string, string](firstNames, lastNames), joinPair).
		Observe("fluxZipWith", g.obs)
}

// ExceptionFlux fails after C; D is never emitted.
func (g *Generator) ExceptionFlux() *reactive.Flux[string] {
	return reactive.Just("A", "B", "C").
		ConcatWith(reactive.Error[string](errors.NewPlain("An Exception Occurred."))).
		ConcatWith(reactive.Just("D")).
		Observe("exceptionFlux", g.obs)
}

func (g *Generator) ExploreOnErrorReturn() *reactive.Flux[string] {
	return reactive.Just("a", "b", "c").
		ConcatWith(reactive.Error[string](errors.NewPlain("An Error Occurred."))).
		OnErrorReturn("d").
		Observe("exploreOnErrorReturn", g.obs)
}

// ExploreOnErrorResume fails with err and resumes with its message.
func (g *Generator) ExploreOnErrorResume(err error) *reactive.Flux[string] {
	return reactive.Just("a", "b", "c").
		ConcatWith(reactive.Error[string](err)).
		OnErrorResume(func(err error) reactive.Publisher[string] {
			return reactive.Just(err.Error())
		}).
		Observe("exploreOnErrorResume", g.obs)
}

// ExploreOnErrorContinue drops Nusaiba and reports it to the output.
func (g *Generator) ExploreOnErrorContinue() *reactive.Flux[string] {
	toUpper := upperUnless("Nusaiba", errors.NewPlain("Cannot change it to upper case"))
	return reactive.Map(reactive.Just("Arka", "Nusaiba", "Farhan", "Zareen"), toUpper).
		OnErrorContinue(func(err error, value any) {
			fmt.Fprintf(g.out, "%v.\nThe name is %v\n", err, value)
		}).
		Observe("exploreOnErrorContinue", g.obs)
}

// ExploreMonoOnErrorContinue completes empty when name is "abc".
func (g *Generator) ExploreMonoOnErrorContinue(name string) *reactive.Mono[string] {
	toUpper := upperUnless("abc", errors.NewPlain("An error occurred. abc cannot be accepted."))
	return reactive.MonoMap(reactive.MonoJust(name), toUpper).
		OnErrorContinue(func(err error, value any) {
			g.log.Error("Dropped element", map[string]interface{}{
				"error": err.Error(),
				"value": value,
			})
		}).
		Observe("exploreMonoOnErrorContinue", g.obs)
}

// ExploreOnErrorMap translates the failure into a TRANSLATED application
// error carrying the original as its cause.
func (g *Generator) ExploreOnErrorMap() *reactive.Flux[string] {
	toUpper := upperUnless("Nusaiba", errors.NewPlain("Cannot change it to upper case"))
	return reactive.Map(reactive.Just("Arka", "Nusaiba", "Farhan", "Zareen"), toUpper).
		OnErrorMap(func(err error) error {
			g.log.Error("Translating error", logger.ErrorFields("exploreOnErrorMap", err))
			return errors.Translated(err, err.Error())
		}).
		Observe("exploreOnErrorMap", g.obs)
}

func (g *Generator) ExploreDoOnError() *reactive.Flux[string] {
	toUpper := upperUnless("Nusaiba", errors.NewPlain("Cannot change it to upper case"))
	return reactive.Map(reactive.Just("Arka", "Nusaiba", "Farhan", "Zareen"), toUpper).
		DoOnError(func(err error) { g.log.Error(err.Error()) }).
		Observe("exploreDoOnError", g.obs)
}
