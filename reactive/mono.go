package reactive

import (
	"context"
	"time"

	"github.com/kbukum/reactor/resilience"
)

// Mono is a lazy producer of at most one value.
type Mono[T any] struct {
	subscribe subscribeFunc[T]
}

func newMono[T any](fn subscribeFunc[T]) *Mono[T] {
	return &Mono[T]{subscribe: fn}
}

// Subscribe starts a new, independent execution delivering to s.
func (m *Mono[T]) Subscribe(s Subscriber[T]) {
	m.subscribe(s)
}

// SubscribeFunc subscribes with callbacks and requests unbounded demand.
func (m *Mono[T]) SubscribeFunc(onNext func(T), onComplete func(), onError func(error)) Subscription {
	return subscribeCallbacks(context.Background(), m, onNext, onComplete, onError)
}

// SubscribeContext is SubscribeFunc bound to ctx.
func (m *Mono[T]) SubscribeContext(ctx context.Context, onNext func(T), onComplete func(), onError func(error)) Subscription {
	return subscribeCallbacks(ctx, m, onNext, onComplete, onError)
}

// Flux views the mono as a flux of zero or one value.
func (m *Mono[T]) Flux() *Flux[T] {
	return newFlux(m.subscribe)
}

func (m *Mono[T]) Filter(pred func(T) bool) *Mono[T] {
	return newMono(filterOp(m.subscribe, pred))
}

func (m *Mono[T]) DefaultIfEmpty(fallback T) *Mono[T] {
	return newMono(defaultIfEmptyOp(m.subscribe, fallback))
}

func (m *Mono[T]) SwitchIfEmpty(fallback *Mono[T]) *Mono[T] {
	var p Publisher[T]
	if fallback != nil {
		p = fallback
	}
	return newMono(switchIfEmptyOp(m.subscribe, p))
}

// ConcatWith emits this mono's value, then the values of other.
func (m *Mono[T]) ConcatWith(other Publisher[T]) *Flux[T] {
	return Concat[T](m, other)
}

// MergeWith interleaves this mono's value with the values of other.
func (m *Mono[T]) MergeWith(other Publisher[T]) *Flux[T] {
	return Merge[T](m, other)
}

// DelayElement holds the value for d before emitting it.
func (m *Mono[T]) DelayElement(d time.Duration) *Mono[T] {
	return newMono(delayOp(m.subscribe, d))
}

func (m *Mono[T]) SubscribeOn(sched Scheduler) *Mono[T] {
	return newMono(subscribeOnOp(m.subscribe, sched))
}

func (m *Mono[T]) OnErrorReturn(fallback T) *Mono[T] {
	return newMono(onErrorReturnOp(m.subscribe, fallback))
}

func (m *Mono[T]) OnErrorResume(fn func(error) *Mono[T]) *Mono[T] {
	return newMono(onErrorResumeOp(m.subscribe, func(err error) Publisher[T] {
		if fallback := fn(err); fallback != nil {
			return fallback
		}
		return nil
	}))
}

// OnErrorContinue recovers a failure of the stages above by dropping the
// value; the mono then completes empty.
func (m *Mono[T]) OnErrorContinue(handler ErrorContinueHandler) *Mono[T] {
	return newMono(onErrorContinueOp(m.subscribe, handler))
}

func (m *Mono[T]) OnErrorStop() *Mono[T] {
	return newMono(onErrorStopOp(m.subscribe))
}

func (m *Mono[T]) OnErrorMap(fn func(error) error) *Mono[T] {
	return newMono(onErrorMapOp(m.subscribe, fn))
}

func (m *Mono[T]) Retry(n int) *Mono[T] {
	return newMono(retryOp(m.subscribe, countPolicy{max: n}))
}

func (m *Mono[T]) RetryBackoff(cfg resilience.RetryConfig) *Mono[T] {
	return newMono(retryOp(m.subscribe, backoffPolicy{cfg: cfg.WithDefaults()}))
}

func (m *Mono[T]) DoOnNext(fn func(T)) *Mono[T] {
	return newMono(peekOp(m.subscribe, &peekHooks[T]{stage: "doOnNext", onNext: fn}))
}

func (m *Mono[T]) DoOnError(fn func(error)) *Mono[T] {
	return newMono(peekOp(m.subscribe, &peekHooks[T]{stage: "doOnError", onError: fn}))
}

// DoOnComplete calls fn before completion is propagated, whether or not the
// mono emitted a value.
func (m *Mono[T]) DoOnComplete(fn func()) *Mono[T] {
	return newMono(peekOp(m.subscribe, &peekHooks[T]{stage: "doOnComplete", onComplete: fn}))
}

func (m *Mono[T]) DoOnSubscribe(fn func(Subscription)) *Mono[T] {
	return newMono(peekOp(m.subscribe, &peekHooks[T]{stage: "doOnSubscribe",
		onSubscribe: func(_ context.Context, s Subscription) { fn(s) }}))
}

func (m *Mono[T]) DoOnCancel(fn func()) *Mono[T] {
	return newMono(peekOp(m.subscribe, &peekHooks[T]{stage: "doOnCancel", onCancel: fn}))
}

func (m *Mono[T]) DoFinally(fn func(SignalType)) *Mono[T] {
	return newMono(peekOp(m.subscribe, &peekHooks[T]{stage: "doFinally", onFinally: fn}))
}

func (m *Mono[T]) Log(stage string) *Mono[T] {
	return m.Observe(stage, defaultLogObserver(stage))
}

func (m *Mono[T]) Observe(stage string, obs Observer) *Mono[T] {
	if obs == nil {
		return m
	}
	return newMono(observeOp(m.subscribe, stage, obs))
}

// MonoMap transforms the value with fn.
func MonoMap[T, R any](m *Mono[T], fn func(context.Context, T) (R, error)) *Mono[R] {
	return newMono(mapOp(m.subscribe, fn))
}

// MonoFlatMap continues with the mono fn returns for the value.
func MonoFlatMap[T, R any](m *Mono[T], fn func(context.Context, T) (*Mono[R], error)) *Mono[R] {
	return newMono(flatMapOp(m.subscribe, "flatMap", 1, func(ctx context.Context, v T) (Publisher[R], error) {
		inner, err := fn(ctx, v)
		if err != nil || inner == nil {
			return nil, err
		}
		return inner, nil
	}))
}

// MonoFlatMapMany continues with the publisher fn returns for the value.
func MonoFlatMapMany[T, R any](m *Mono[T], fn func(context.Context, T) (Publisher[R], error)) *Flux[R] {
	return newFlux(flatMapOp(m.subscribe, "flatMapMany", 1, fn))
}

// MonoTransform applies a reusable chain of operators.
func MonoTransform[T, R any](m *Mono[T], fn func(*Mono[T]) *Mono[R]) *Mono[R] {
	return fn(m)
}

// MonoZip combines the values of a and b. It is empty if either is empty.
func MonoZip[A, B, R any](a *Mono[A], b *Mono[B], fn func(A, B) R) *Mono[R] {
	return &Mono[R]{subscribe: Zip[A, B, R](a, b, fn).subscribe}
}

// MonoZipWith pairs the values of a and b.
func MonoZipWith[A, B any](a *Mono[A], b *Mono[B]) *Mono[Tuple2[A, B]] {
	return MonoZip(a, b, NewTuple2[A, B])
}

var _ Publisher[int] = (*Mono[int])(nil)
