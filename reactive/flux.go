package reactive

import (
	"context"
	"time"

	"github.com/kbukum/reactor/logger"
	"github.com/kbukum/reactor/resilience"
)

// Flux is a lazy producer of zero to many values.
type Flux[T any] struct {
	subscribe subscribeFunc[T]
}

func newFlux[T any](fn subscribeFunc[T]) *Flux[T] {
	return &Flux[T]{subscribe: fn}
}

// Subscribe starts a new, independent execution delivering to s.
func (f *Flux[T]) Subscribe(s Subscriber[T]) {
	f.subscribe(s)
}

// SubscribeFunc subscribes with callbacks and requests unbounded demand. Any
// callback may be nil.
func (f *Flux[T]) SubscribeFunc(onNext func(T), onComplete func(), onError func(error)) Subscription {
	return subscribeCallbacks(context.Background(), f, onNext, onComplete, onError)
}

// SubscribeContext is SubscribeFunc bound to ctx: cancelling ctx cancels the
// subscription, and ctx is handed to every stage.
func (f *Flux[T]) SubscribeContext(ctx context.Context, onNext func(T), onComplete func(), onError func(error)) Subscription {
	return subscribeCallbacks(ctx, f, onNext, onComplete, onError)
}

// --- Sequence operators ---

// Filter keeps only values that satisfy pred.
func (f *Flux[T]) Filter(pred func(T) bool) *Flux[T] {
	return newFlux(filterOp(f.subscribe, pred))
}

// DefaultIfEmpty emits fallback when the flux completes without values.
func (f *Flux[T]) DefaultIfEmpty(fallback T) *Flux[T] {
	return newFlux(defaultIfEmptyOp(f.subscribe, fallback))
}

// SwitchIfEmpty continues with fallback when the flux completes without values.
func (f *Flux[T]) SwitchIfEmpty(fallback Publisher[T]) *Flux[T] {
	return newFlux(switchIfEmptyOp(f.subscribe, fallback))
}

// Take emits at most n values, then cancels upstream and completes.
func (f *Flux[T]) Take(n int64) *Flux[T] {
	return newFlux(takeOp(f.subscribe, n))
}

// Next emits the first value, if any.
func (f *Flux[T]) Next() *Mono[T] {
	return &Mono[T]{subscribe: takeOp(f.subscribe, 1)}
}

// ConcatWith emits the values of other after this flux completes.
func (f *Flux[T]) ConcatWith(other Publisher[T]) *Flux[T] {
	return Concat[T](f, other)
}

// MergeWith interleaves the values of other with this flux.
func (f *Flux[T]) MergeWith(other Publisher[T]) *Flux[T] {
	return Merge[T](f, other)
}

// DelayElements holds each value for d before emitting it. Delays are
// scheduled on the subscription's Scheduler and never block a goroutine.
func (f *Flux[T]) DelayElements(d time.Duration) *Flux[T] {
	return newFlux(delayOp(f.subscribe, d))
}

// SubscribeOn performs the subscription, and so the synchronous emissions of
// the source, on sched.
func (f *Flux[T]) SubscribeOn(sched Scheduler) *Flux[T] {
	return newFlux(subscribeOnOp(f.subscribe, sched))
}

// --- Error handling ---

// OnErrorReturn replaces a failure with fallback followed by completion.
func (f *Flux[T]) OnErrorReturn(fallback T) *Flux[T] {
	return newFlux(onErrorReturnOp(f.subscribe, fallback))
}

// OnErrorResume replaces a failure with the publisher fn returns for it.
// Values already emitted stay emitted.
func (f *Flux[T]) OnErrorResume(fn func(error) Publisher[T]) *Flux[T] {
	return newFlux(onErrorResumeOp(f.subscribe, fn))
}

// OnErrorContinue recovers element-level failures of the stages above: the
// failing element is handed to handler and dropped, and processing continues
// with the next one. Failures of the source itself are not recoverable.
func (f *Flux[T]) OnErrorContinue(handler ErrorContinueHandler) *Flux[T] {
	return newFlux(onErrorContinueOp(f.subscribe, handler))
}

// OnErrorStop shields the stages above from an OnErrorContinue further down.
func (f *Flux[T]) OnErrorStop() *Flux[T] {
	return newFlux(onErrorStopOp(f.subscribe))
}

// OnErrorMap replaces a failure with fn(err).
func (f *Flux[T]) OnErrorMap(fn func(error) error) *Flux[T] {
	return newFlux(onErrorMapOp(f.subscribe, fn))
}

// Retry resubscribes up to n times after a failure. When attempts run out
// the last failure is delivered.
func (f *Flux[T]) Retry(n int) *Flux[T] {
	return newFlux(retryOp(f.subscribe, countPolicy{max: n}))
}

// RetryBackoff resubscribes with exponential backoff according to cfg. When
// cfg.MaxAttempts is reached the failure is wrapped in RETRY_EXHAUSTED.
func (f *Flux[T]) RetryBackoff(cfg resilience.RetryConfig) *Flux[T] {
	return newFlux(retryOp(f.subscribe, backoffPolicy{cfg: cfg.WithDefaults()}))
}

// --- Side effects ---

// DoOnNext calls fn for every value before passing it on.
func (f *Flux[T]) DoOnNext(fn func(T)) *Flux[T] {
	return newFlux(peekOp(f.subscribe, &peekHooks[T]{stage: "doOnNext", onNext: fn}))
}

// DoOnError calls fn with a failure before propagating it unchanged.
func (f *Flux[T]) DoOnError(fn func(error)) *Flux[T] {
	return newFlux(peekOp(f.subscribe, &peekHooks[T]{stage: "doOnError", onError: fn}))
}

// DoOnComplete calls fn before completion is propagated.
func (f *Flux[T]) DoOnComplete(fn func()) *Flux[T] {
	return newFlux(peekOp(f.subscribe, &peekHooks[T]{stage: "doOnComplete", onComplete: fn}))
}

// DoOnSubscribe calls fn when a subscription starts.
func (f *Flux[T]) DoOnSubscribe(fn func(Subscription)) *Flux[T] {
	return newFlux(peekOp(f.subscribe, &peekHooks[T]{stage: "doOnSubscribe",
		onSubscribe: func(_ context.Context, s Subscription) { fn(s) }}))
}

// DoOnCancel calls fn when downstream cancels.
func (f *Flux[T]) DoOnCancel(fn func()) *Flux[T] {
	return newFlux(peekOp(f.subscribe, &peekHooks[T]{stage: "doOnCancel", onCancel: fn}))
}

// DoFinally calls fn once after the subscription completed, failed or was
// cancelled.
func (f *Flux[T]) DoFinally(fn func(SignalType)) *Flux[T] {
	return newFlux(peekOp(f.subscribe, &peekHooks[T]{stage: "doFinally", onFinally: fn}))
}

// Log writes every signal passing this point to the logger registered under
// stage, or to the global logger.
func (f *Flux[T]) Log(stage string) *Flux[T] {
	return f.Observe(stage, defaultLogObserver(stage))
}

// Observe reports every signal passing this point to obs.
func (f *Flux[T]) Observe(stage string, obs Observer) *Flux[T] {
	if obs == nil {
		return f
	}
	return newFlux(observeOp(f.subscribe, stage, obs))
}

// --- Type-changing operators ---

// Map transforms each value with fn. A failing fn fails the flux unless an
// OnErrorContinue further down recovers it.
func Map[T, R any](f *Flux[T], fn func(context.Context, T) (R, error)) *Flux[R] {
	return newFlux(mapOp(f.subscribe, fn))
}

// FlatMap maps each value to a publisher and merges the results. Inner
// values are emitted in arrival order; inner subscriptions run concurrently,
// at most ConcurrencyFrom of the subscription context at once.
func FlatMap[T, R any](f *Flux[T], fn func(context.Context, T) (Publisher[R], error)) *Flux[R] {
	return FlatMapN(f, 0, fn)
}

// FlatMapN is FlatMap with at most concurrency inner subscriptions open. A
// non-positive concurrency falls back to the subscription context's bound.
func FlatMapN[T, R any](f *Flux[T], concurrency int, fn func(context.Context, T) (Publisher[R], error)) *Flux[R] {
	return newFlux(flatMapOp(f.subscribe, "flatMap", concurrency, fn))
}

// ConcatMap maps each value to a publisher and emits the results strictly in
// source order, one inner subscription at a time.
func ConcatMap[T, R any](f *Flux[T], fn func(context.Context, T) (Publisher[R], error)) *Flux[R] {
	return newFlux(concatMapOp(f.subscribe, fn))
}

// Transform applies a reusable chain of operators.
func Transform[T, R any](f *Flux[T], fn func(*Flux[T]) *Flux[R]) *Flux[R] {
	return fn(f)
}

// Reduce folds all values into one, emitted on completion.
func Reduce[T, R any](f *Flux[T], initial R, fn func(context.Context, R, T) (R, error)) *Mono[R] {
	return &Mono[R]{subscribe: reduceOp(f.subscribe, initial, fn)}
}

// CollectList emits all values as one slice on completion.
func CollectList[T any](f *Flux[T]) *Mono[[]T] {
	return &Mono[[]T]{subscribe: reduceOp(f.subscribe, []T(nil), func(_ context.Context, acc []T, v T) ([]T, error) {
		return append(acc, v), nil
	})}
}

// --- Combinators ---

// Concat emits all values of each source in order, subscribing to the next
// source only after the previous one completed.
func Concat[T any](sources ...Publisher[T]) *Flux[T] {
	if len(sources) == 0 {
		return Empty[T]()
	}
	return newFlux(concatOp(sources))
}

// Merge subscribes to all sources at once and emits values as they arrive.
// It completes when all sources completed and fails on the first failure.
func Merge[T any](sources ...Publisher[T]) *Flux[T] {
	return newFlux(mergeOp(sources))
}

// Zip combines the values of a and b index by index. It completes as soon as
// either source is exhausted.
func Zip[A, B, R any](a Publisher[A], b Publisher[B], fn func(A, B) R) *Flux[R] {
	return newFlux(zipOp([]subscribeFunc[any]{erase(a), erase(b)}, func(row []any) (R, error) {
		return fn(as[A](row[0]), as[B](row[1])), nil
	}))
}

// Zip3 combines three sources index by index.
func Zip3[A, B, C, R any](a Publisher[A], b Publisher[B], c Publisher[C], fn func(A, B, C) R) *Flux[R] {
	return newFlux(zipOp([]subscribeFunc[any]{erase(a), erase(b), erase(c)}, func(row []any) (R, error) {
		return fn(as[A](row[0]), as[B](row[1]), as[C](row[2])), nil
	}))
}

// ZipWith pairs the values of a and b.
func ZipWith[A, B any](a Publisher[A], b Publisher[B]) *Flux[Tuple2[A, B]] {
	return Zip(a, b, NewTuple2[A, B])
}

// ZipAll combines any number of same-typed sources; fn receives one value
// from each source, in source order.
func ZipAll[T, R any](fn func([]T) R, sources ...Publisher[T]) *Flux[R] {
	erased := make([]subscribeFunc[any], len(sources))
	for i, s := range sources {
		erased[i] = erase(s)
	}
	return newFlux(zipOp(erased, func(row []any) (R, error) {
		values := make([]T, len(row))
		for i, v := range row {
			values[i] = as[T](v)
		}
		return fn(values), nil
	}))
}

func defaultLogObserver(stage string) Observer {
	if stage == "" {
		return LogObserver(logger.GetGlobalLogger())
	}
	return LogObserver(logger.Get(stage))
}

var _ Publisher[int] = (*Flux[int])(nil)
