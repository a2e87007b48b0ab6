package main

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/reactive"
	"github.com/kbukum/reactor/reactive/reactivetest"
)

func newTestGenerator(out *bytes.Buffer) *Generator {
	return NewGenerator(0, nil, logger.Nop(), out)
}

func letters(s string) []string { return strings.Split(s, "") }

func collect[T any](t *testing.T, p reactive.Publisher[T]) []T {
	t.Helper()
	got, err := reactive.Collect(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return got
}

func TestGenerator_StringPipelines(t *testing.T) {
	g := newTestGenerator(&bytes.Buffer{})
	tests := []struct {
		name string
		p    reactive.Publisher[string]
		want []string
	}{
		{"namesFlux", g.NamesFlux(), defaultNames},
		{"nameMono", g.NameMono(), []string{"Arka Bhuiyan"}},
		{"monoMap", g.MonoMap(), []string{"ARKA BHUIYAN"}},
		{"monoMapWithFilter kept", g.MonoMapWithFilter(3), []string{"ARKA"}},
		{"monoMapWithFilter default", g.MonoMapWithFilter(4), []string{"default String"}},
		{"nameFluxFlatMap", g.NameFluxFlatMap(5), letters("FarhanZareenMosfikur")},
		{"nameFluxFlatMap default", g.NameFluxFlatMap(8), []string{"default String"}},
		{"nameFluxTransform", g.NameFluxTransform(5), letters("FARHANZAREENMOSFIKUR")},
		{"nameFluxTransform fallback", g.NameFluxTransform(10), letters("DEFAULTSTRING")},
		{"nameFluxTransform empty", g.NameFluxTransform(20), []string{}},
		{"nameMonoFlatMapMany", g.NameMonoFlatMapMany(), letters("ARKABHUIYAN")},
		{"fluxConcat", g.FluxConcat(), []string{"A", "B", "C", "D", "E", "F"}},
		{"fluxConcatWith", g.FluxConcatWith(), []string{"Arka", "Nipa", "Farhan", "Akif"}},
		{"monoConcatWith", g.MonoConcatWith(), []string{"Arka", "Bhuiyan"}},
		{"monoZip", g.MonoZip(), []string{"Arka Bhuiyan"}},
		{"fluxZip", g.FluxZip(), []string{"Arka Bhuiyan, ID : 11512", "Farhan Zaman, ID : 11514", "Akif Azwad, ID : 11507"}},
		{"monoZipWith", g.MonoZipWith(), []string{"Arka Bhuiyan"}},
		{"fluxZipWith", g.FluxZipWith(), []string{"Arka Bhuiyan", "Farhan Zaman", "Akif Azwad"}},
		{"exploreOnErrorReturn", g.ExploreOnErrorReturn(), []string{"a", "b", "c", "d"}},
		{"exploreOnErrorResume", g.ExploreOnErrorResume(errors.NewPlain("Exception Occurred")), []string{"a", "b", "c", "Exception Occurred"}},
		{"exploreMonoOnErrorContinue accepted", g.ExploreMonoOnErrorContinue("reactor"), []string{"REACTOR"}},
		{"exploreMonoOnErrorContinue dropped", g.ExploreMonoOnErrorContinue("abc"), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collect(t, tt.p); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerator_ListPipelines(t *testing.T) {
	g := newTestGenerator(&bytes.Buffer{})
	tests := []struct {
		name string
		m    *reactive.Mono[[]string]
		want []string
		ok   bool
	}{
		{"nameMonoFlatMap", g.NameMonoFlatMap(), letters("ARKA BHUIYAN"), true},
		{"transform kept", g.NameMonoTransformWithFilter(3), letters("ARKA"), true},
		{"transform fallback", g.NameMonoTransformWithFilter(4), letters("DEFAULT"), true},
		{"transform empty", g.NameMonoTransformWithFilter(7), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := reactive.Block(context.Background(), tt.m)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerator_NameFluxMapCallbacks(t *testing.T) {
	var out bytes.Buffer
	g := newTestGenerator(&out)

	got := collect(t, g.NameFluxMap())
	if !slices.Equal(got, []string{"FARHAN", "ZAREEN", "MOSFIKUR"}) {
		t.Errorf("got %v", got)
	}
	printed := out.String()
	for _, want := range []string{"Subscribed.", "FARHAN", "MOSFIKUR", "Inside the complete callback.", reactive.SignalComplete.String()} {
		if !strings.Contains(printed, want) {
			t.Errorf("expected %q in output:\n%s", want, printed)
		}
	}
	if strings.Index(printed, "Subscribed.") > strings.Index(printed, "FARHAN") {
		t.Error("expected the subscribe callback before the first value")
	}
}

func TestGenerator_AsyncSplit(t *testing.T) {
	g := newTestGenerator(&bytes.Buffer{})
	want := letters("FarhanZareenMosfikur")

	got := collect(t, g.NameFluxFlatMapAsync(5))
	sorted := slices.Clone(got)
	slices.Sort(sorted)
	expected := slices.Clone(want)
	slices.Sort(expected)
	if !slices.Equal(sorted, expected) {
		t.Errorf("flatMap: got %v, want the letters of %v in any order", got, want)
	}

	if got := collect(t, g.NameFluxConcatMap(5)); !slices.Equal(got, want) {
		t.Errorf("concatMap: got %v, want %v", got, want)
	}
}

func TestGenerator_AsyncSplitWithJitter(t *testing.T) {
	g := NewGenerator(5*time.Millisecond, nil, logger.Nop(), &bytes.Buffer{})
	want := letters("FarhanZareenMosfikur")
	if got := collect(t, g.NameFluxConcatMap(5)); !slices.Equal(got, want) {
		t.Errorf("concatMap: got %v, want %v", got, want)
	}
}

func TestGenerator_FluxMerge(t *testing.T) {
	clock := clockz.NewFakeClock()
	ctx := reactive.WithScheduler(context.Background(), reactive.NewParallelScheduler(clock))
	g := newTestGenerator(&bytes.Buffer{})

	rec := reactivetest.NewRecorder[string](reactivetest.WithContext(ctx))
	g.FluxMerge().Subscribe(rec)

	milestones := map[int]int{150: 1, 200: 2, 300: 3, 400: 4, 450: 5, 600: 6}
	for now := 50; now <= 600; now += 50 {
		clock.Advance(50 * time.Millisecond)
		clock.BlockUntilReady()
		if n, ok := milestones[now]; ok {
			if !rec.AwaitCount(n, time.Second) {
				t.Fatalf("at %dms: expected %d values, got %v", now, n, rec.Values())
			}
		}
	}
	if !rec.Await(time.Second) {
		t.Fatal("expected completion")
	}
	want := []string{"Arka", "Mosfik", "Farhan", "Zareen", "Faiaz", "Ifti"}
	if got := rec.Values(); !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGenerator_MonoMerge(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    func(g *Generator) *reactive.Flux[string]
	}{
		{"monoMerge", (*Generator).MonoMerge},
		{"monoMergeWith", (*Generator).MonoMergeWith},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clock := clockz.NewFakeClock()
			ctx := reactive.WithScheduler(context.Background(), reactive.NewParallelScheduler(clock))
			rec := reactivetest.NewRecorder[string](reactivetest.WithContext(ctx))
			tc.f(newTestGenerator(&bytes.Buffer{})).Subscribe(rec)

			clock.Advance(200 * time.Millisecond)
			clock.BlockUntilReady()
			if !rec.AwaitCount(1, time.Second) {
				t.Fatalf("expected the first mono at 200ms, got %v", rec.Values())
			}
			clock.Advance(300 * time.Millisecond)
			clock.BlockUntilReady()
			if !rec.Await(time.Second) {
				t.Fatal("expected completion")
			}
			if got := rec.Values(); !slices.Equal(got, []string{"Arka Bhuiyan", "Farhan Zaman"}) {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestGenerator_ErrorPipelines(t *testing.T) {
	var logs bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "error", Format: "json"}, "test", &logs)
	var out bytes.Buffer
	g := NewGenerator(0, nil, log, &out)

	t.Run("exceptionFlux", func(t *testing.T) {
		got, err := reactive.Collect(context.Background(), g.ExceptionFlux())
		if err == nil || err.Error() != "An Exception Occurred." {
			t.Fatalf("unexpected error %v", err)
		}
		if !slices.Equal(got, []string{"A", "B", "C"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("exploreOnErrorContinue", func(t *testing.T) {
		got := collect(t, g.ExploreOnErrorContinue())
		if !slices.Equal(got, []string{"ARKA", "FARHAN", "ZAREEN"}) {
			t.Errorf("got %v", got)
		}
		if !strings.Contains(out.String(), "The name is Nusaiba") {
			t.Errorf("expected the dropped name to be reported, got %q", out.String())
		}
	})

	t.Run("exploreOnErrorMap", func(t *testing.T) {
		got, err := reactive.Collect(context.Background(), g.ExploreOnErrorMap())
		if errors.CodeOf(err) != errors.ErrCodeTranslated {
			t.Fatalf("expected a translated error, got %v", err)
		}
		if !strings.Contains(err.Error(), "Cannot change it to upper case") {
			t.Errorf("expected the original message, got %q", err.Error())
		}
		if !slices.Equal(got, []string{"ARKA"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("exploreDoOnError", func(t *testing.T) {
		logs.Reset()
		got, err := reactive.Collect(context.Background(), g.ExploreDoOnError())
		if err == nil {
			t.Fatal("expected error")
		}
		if !slices.Equal(got, []string{"ARKA"}) {
			t.Errorf("got %v", got)
		}
		if !strings.Contains(logs.String(), "Cannot change it to upper case") {
			t.Errorf("expected the error to be logged, got %q", logs.String())
		}
	})
}

func TestGenerator_Observed(t *testing.T) {
	events := reactivetest.NewEventRecorder()
	g := NewGenerator(0, events, logger.Nop(), &bytes.Buffer{})

	collect(t, g.FluxConcat())

	types := events.Types()
	if len(types) == 0 || types[0] != reactive.SignalSubscribe {
		t.Fatalf("expected onSubscribe first, got %v", types)
	}
	var nexts int
	for _, e := range events.Events() {
		if e.Stage != "fluxConcat" {
			t.Errorf("unexpected stage %q", e.Stage)
		}
		if e.Type == reactive.SignalNext {
			nexts++
		}
	}
	if nexts != 6 {
		t.Errorf("expected 6 onNext events, got %d", nexts)
	}
}
