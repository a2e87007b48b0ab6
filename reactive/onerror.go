package reactive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/resilience"
)

// --- OnErrorReturn ---

type onErrorReturnSubscriber[T any] struct {
	actual   Subscriber[T]
	ctx      context.Context
	fallback T
	upstream Subscription
	trail    trailer[T]
}

func onErrorReturnOp[T any](src subscribeFunc[T], fallback T) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		src(&onErrorReturnSubscriber[T]{actual: s, ctx: contextOf(s), fallback: fallback})
	}
}

func (o *onErrorReturnSubscriber[T]) Context() context.Context { return o.ctx }

func (o *onErrorReturnSubscriber[T]) OnSubscribe(s Subscription) {
	o.upstream = s
	o.actual.OnSubscribe(o)
}

func (o *onErrorReturnSubscriber[T]) OnNext(v T) {
	o.trail.produced()
	o.actual.OnNext(v)
}

func (o *onErrorReturnSubscriber[T]) OnError(error) {
	if o.trail.offer(o.fallback) {
		o.actual.OnNext(o.fallback)
		o.actual.OnComplete()
	}
}

func (o *onErrorReturnSubscriber[T]) OnComplete() { o.actual.OnComplete() }

func (o *onErrorReturnSubscriber[T]) Request(n int64) {
	if n <= 0 && o.trail.reject() {
		o.actual.OnError(errors.InvalidRequest(n))
		return
	}
	if emit, v := o.trail.request(n); emit {
		o.actual.OnNext(v)
		o.actual.OnComplete()
		return
	}
	o.upstream.Request(n)
}

func (o *onErrorReturnSubscriber[T]) Cancel() {
	o.trail.cancel()
	o.upstream.Cancel()
}

// --- OnErrorResume ---

type onErrorResumeSubscriber[T any] struct {
	actual   Subscriber[T]
	ctx      context.Context
	fn       func(error) Publisher[T]
	arb      arbiter
	switched bool
}

func onErrorResumeOp[T any](src subscribeFunc[T], fn func(error) Publisher[T]) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		o := &onErrorResumeSubscriber[T]{actual: s, ctx: contextOf(s), fn: fn}
		o.arb.invalid = s.OnError
		s.OnSubscribe(&o.arb)
		src(o)
	}
}

func (o *onErrorResumeSubscriber[T]) Context() context.Context { return o.ctx }

func (o *onErrorResumeSubscriber[T]) OnSubscribe(s Subscription) { o.arb.set(s) }

func (o *onErrorResumeSubscriber[T]) OnNext(v T) {
	o.arb.produced(1)
	o.actual.OnNext(v)
}

func (o *onErrorResumeSubscriber[T]) OnError(err error) {
	if o.switched {
		if o.arb.terminate() {
			o.actual.OnError(err)
		}
		return
	}
	o.switched = true
	var fallback Publisher[T]
	if perr := guard("onErrorResume", func() { fallback = o.fn(err) }); perr != nil {
		if o.arb.terminate() {
			o.actual.OnError(perr)
		}
		return
	}
	if fallback == nil {
		if o.arb.terminate() {
			o.actual.OnComplete()
		}
		return
	}
	if o.arb.isCancelled() {
		return
	}
	fallback.Subscribe(o)
}

func (o *onErrorResumeSubscriber[T]) OnComplete() {
	if o.arb.terminate() {
		o.actual.OnComplete()
	}
}

// --- OnErrorMap ---

type onErrorMapSubscriber[T any] struct {
	actual Subscriber[T]
	ctx    context.Context
	fn     func(error) error
}

func onErrorMapOp[T any](src subscribeFunc[T], fn func(error) error) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		src(&onErrorMapSubscriber[T]{actual: s, ctx: contextOf(s), fn: fn})
	}
}

func (o *onErrorMapSubscriber[T]) Context() context.Context   { return o.ctx }
func (o *onErrorMapSubscriber[T]) OnSubscribe(s Subscription) { o.actual.OnSubscribe(s) }
func (o *onErrorMapSubscriber[T]) OnNext(v T)                 { o.actual.OnNext(v) }
func (o *onErrorMapSubscriber[T]) OnComplete()                { o.actual.OnComplete() }

func (o *onErrorMapSubscriber[T]) OnError(err error) {
	mapped := err
	if perr := guard("onErrorMap", func() { mapped = o.fn(err) }); perr != nil {
		o.actual.OnError(perr.WithCause(err))
		return
	}
	if mapped == nil {
		mapped = err
	}
	o.actual.OnError(mapped)
}

// --- OnErrorContinue ---

func onErrorContinueOp[T any](src subscribeFunc[T], handler ErrorContinueHandler) subscribeFunc[T] {
	if handler == nil {
		handler = func(error, any) {}
	}
	return contextOp(src, func(ctx context.Context) context.Context {
		return withContinue(ctx, handler)
	})
}

func onErrorStopOp[T any](src subscribeFunc[T]) subscribeFunc[T] {
	return contextOp(src, func(ctx context.Context) context.Context {
		return withContinue(ctx, nil)
	})
}

// --- Retry ---

// retryPolicy decides, for the given failed attempt (1-based), whether to
// resubscribe and after what delay.
type retryPolicy interface {
	next(attempt int, err error) (time.Duration, bool)
	exhausted(attempt int, err error) error
}

type countPolicy struct {
	max int
}

func (p countPolicy) next(attempt int, _ error) (time.Duration, bool) {
	return 0, attempt <= p.max
}

func (p countPolicy) exhausted(_ int, err error) error { return err }

type backoffPolicy struct {
	cfg resilience.RetryConfig
}

func (p backoffPolicy) next(attempt int, err error) (time.Duration, bool) {
	if !p.cfg.ShouldRetry(attempt, err) {
		return 0, false
	}
	d := p.cfg.Backoff(attempt)
	if p.cfg.OnRetry != nil {
		p.cfg.OnRetry(attempt, err, d)
	}
	return d, true
}

func (p backoffPolicy) exhausted(attempt int, err error) error {
	if attempt >= p.cfg.MaxAttempts {
		return errors.RetryExhausted(attempt, err)
	}
	return err
}

type retrySubscriber[T any] struct {
	actual  Subscriber[T]
	ctx     context.Context
	src     subscribeFunc[T]
	policy  retryPolicy
	arb     arbiter
	attempt int
	wip     atomic.Int32

	mu      sync.Mutex
	pending CancelFunc
}

func retryOp[T any](src subscribeFunc[T], policy retryPolicy) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		r := &retrySubscriber[T]{actual: s, ctx: contextOf(s), src: src, policy: policy}
		r.arb.invalid = r.reject
		s.OnSubscribe(r)
		r.resubscribe()
	}
}

func (r *retrySubscriber[T]) Context() context.Context { return r.ctx }

func (r *retrySubscriber[T]) OnSubscribe(s Subscription) { r.arb.set(s) }

func (r *retrySubscriber[T]) OnNext(v T) {
	r.arb.produced(1)
	r.actual.OnNext(v)
}

func (r *retrySubscriber[T]) OnComplete() {
	if r.arb.terminate() {
		r.actual.OnComplete()
	}
}

func (r *retrySubscriber[T]) OnError(err error) {
	r.attempt++
	delay, ok := r.policy.next(r.attempt, err)
	if !ok {
		if r.arb.terminate() {
			r.actual.OnError(r.policy.exhausted(r.attempt, err))
		}
		return
	}
	if delay <= 0 {
		r.resubscribe()
		return
	}
	cancel := SchedulerFrom(r.ctx).ScheduleAfter(delay, r.resubscribe)
	r.mu.Lock()
	r.pending = cancel
	r.mu.Unlock()
	if r.arb.isCancelled() {
		cancel()
	}
}

func (r *retrySubscriber[T]) Request(n int64) { r.arb.Request(n) }

func (r *retrySubscriber[T]) Cancel() {
	r.arb.Cancel()
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	if pending != nil {
		pending()
	}
}

// reject stops a pending resubscription and reports an invalid request.
func (r *retrySubscriber[T]) reject(err error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	if pending != nil {
		pending()
	}
	r.actual.OnError(err)
}

func (r *retrySubscriber[T]) resubscribe() {
	if r.wip.Add(1) != 1 {
		return
	}
	for {
		if r.arb.isCancelled() {
			return
		}
		r.src(r)
		if r.wip.Add(-1) == 0 {
			return
		}
	}
}
