package reactive

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/reactor/errors"
)

// --- Map ---

type mapSubscriber[T, R any] struct {
	actual   Subscriber[R]
	ctx      context.Context
	fn       func(context.Context, T) (R, error)
	upstream Subscription
	done     bool
}

func mapOp[T, R any](src subscribeFunc[T], fn func(context.Context, T) (R, error)) subscribeFunc[R] {
	return func(s Subscriber[R]) {
		src(&mapSubscriber[T, R]{actual: s, ctx: contextOf(s), fn: fn})
	}
}

func (m *mapSubscriber[T, R]) Context() context.Context { return m.ctx }

func (m *mapSubscriber[T, R]) OnSubscribe(s Subscription) {
	m.upstream = s
	m.actual.OnSubscribe(s)
}

func (m *mapSubscriber[T, R]) OnNext(v T) {
	if m.done {
		return
	}
	r, err := apply(m.ctx, "map", m.fn, v)
	if err != nil {
		if h := continueHandler(m.ctx); h != nil {
			h(err, v)
			m.upstream.Request(1)
			return
		}
		m.done = true
		m.upstream.Cancel()
		m.actual.OnError(err)
		return
	}
	m.actual.OnNext(r)
}

func (m *mapSubscriber[T, R]) OnError(err error) {
	if m.done {
		return
	}
	m.done = true
	m.actual.OnError(err)
}

func (m *mapSubscriber[T, R]) OnComplete() {
	if m.done {
		return
	}
	m.done = true
	m.actual.OnComplete()
}

// --- Filter ---

type filterSubscriber[T any] struct {
	actual   Subscriber[T]
	ctx      context.Context
	pred     func(T) bool
	upstream Subscription
	done     bool
}

func filterOp[T any](src subscribeFunc[T], pred func(T) bool) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		src(&filterSubscriber[T]{actual: s, ctx: contextOf(s), pred: pred})
	}
}

func (f *filterSubscriber[T]) Context() context.Context { return f.ctx }

func (f *filterSubscriber[T]) OnSubscribe(s Subscription) {
	f.upstream = s
	f.actual.OnSubscribe(s)
}

func (f *filterSubscriber[T]) OnNext(v T) {
	if f.done {
		return
	}
	ok, err := test("filter", f.pred, v)
	if err != nil {
		if h := continueHandler(f.ctx); h != nil {
			h(err, v)
			f.upstream.Request(1)
			return
		}
		f.done = true
		f.upstream.Cancel()
		f.actual.OnError(err)
		return
	}
	if ok {
		f.actual.OnNext(v)
		return
	}
	// the rejected element consumed one unit of demand
	f.upstream.Request(1)
}

func (f *filterSubscriber[T]) OnError(err error) {
	if f.done {
		return
	}
	f.done = true
	f.actual.OnError(err)
}

func (f *filterSubscriber[T]) OnComplete() {
	if f.done {
		return
	}
	f.done = true
	f.actual.OnComplete()
}

// --- Peek: doOn* hooks and observers ---

type peekHooks[T any] struct {
	stage       string
	onSubscribe func(context.Context, Subscription)
	onRequest   func(int64)
	onNext      func(T)
	onError     func(error)
	onComplete  func()
	onCancel    func()
	onFinally   func(SignalType)
}

type peekSubscriber[T any] struct {
	actual   Subscriber[T]
	ctx      context.Context
	hooks    *peekHooks[T]
	upstream Subscription
	done     bool
	finally  atomic.Bool
}

func peekOp[T any](src subscribeFunc[T], hooks *peekHooks[T]) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		src(&peekSubscriber[T]{actual: s, ctx: contextOf(s), hooks: hooks})
	}
}

func (p *peekSubscriber[T]) Context() context.Context { return p.ctx }

func (p *peekSubscriber[T]) OnSubscribe(s Subscription) {
	p.upstream = s
	if h := p.hooks.onSubscribe; h != nil {
		if err := guard(p.hooks.stage, func() { h(p.ctx, s) }); err != nil {
			s.Cancel()
			p.done = true
			p.actual.OnSubscribe(emptySubscription{})
			p.actual.OnError(err)
			p.runFinally(SignalError)
			return
		}
	}
	p.actual.OnSubscribe(p)
}

func (p *peekSubscriber[T]) OnNext(v T) {
	if p.done {
		return
	}
	if h := p.hooks.onNext; h != nil {
		if err := guard(p.hooks.stage, func() { h(v) }); err != nil {
			p.upstream.Cancel()
			p.OnError(err)
			return
		}
	}
	p.actual.OnNext(v)
}

func (p *peekSubscriber[T]) OnError(err error) {
	if p.done {
		return
	}
	p.done = true
	if h := p.hooks.onError; h != nil {
		_ = guard(p.hooks.stage, func() { h(err) })
	}
	p.actual.OnError(err)
	p.runFinally(SignalError)
}

func (p *peekSubscriber[T]) OnComplete() {
	if p.done {
		return
	}
	p.done = true
	if h := p.hooks.onComplete; h != nil {
		if err := guard(p.hooks.stage, h); err != nil {
			p.actual.OnError(err)
			p.runFinally(SignalError)
			return
		}
	}
	p.actual.OnComplete()
	p.runFinally(SignalComplete)
}

func (p *peekSubscriber[T]) Request(n int64) {
	if h := p.hooks.onRequest; h != nil {
		_ = guard(p.hooks.stage, func() { h(n) })
	}
	p.upstream.Request(n)
}

func (p *peekSubscriber[T]) Cancel() {
	if p.finally.Load() {
		p.upstream.Cancel()
		return
	}
	if h := p.hooks.onCancel; h != nil {
		_ = guard(p.hooks.stage, h)
	}
	p.upstream.Cancel()
	p.runFinally(SignalCancel)
}

func (p *peekSubscriber[T]) runFinally(t SignalType) {
	if !p.finally.CompareAndSwap(false, true) {
		return
	}
	if h := p.hooks.onFinally; h != nil {
		_ = guard(p.hooks.stage, func() { h(t) })
	}
}

// --- DefaultIfEmpty / onErrorReturn: a trailing value emitted once demand allows ---

// trailer tracks downstream demand so one extra value can be appended after
// upstream terminates.
type trailer[T any] struct {
	mu        sync.Mutex
	requested int64
	pending   bool
	value     T
	cancelled bool
}

func (t *trailer[T]) request(n int64) (emit bool, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > 0 {
		t.requested = sumCap(t.requested, n)
	}
	if t.pending && t.requested > 0 && !t.cancelled {
		t.pending = false
		return true, t.value
	}
	return false, v
}

func (t *trailer[T]) produced() {
	t.mu.Lock()
	if t.requested != Unbounded && t.requested > 0 {
		t.requested--
	}
	t.mu.Unlock()
}

// offer returns true when v may be emitted now; otherwise it is parked.
func (t *trailer[T]) offer(v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return false
	}
	if t.requested > 0 {
		return true
	}
	t.pending = true
	t.value = v
	return false
}

// reject drops a parked value when downstream makes an invalid request after
// upstream terminated; it reports whether the caller must deliver the failure.
func (t *trailer[T]) reject() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pending || t.cancelled {
		return false
	}
	t.pending = false
	t.cancelled = true
	return true
}

func (t *trailer[T]) cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

type defaultIfEmptySubscriber[T any] struct {
	actual   Subscriber[T]
	ctx      context.Context
	fallback T
	upstream Subscription
	trail    trailer[T]
	hasValue bool
}

func defaultIfEmptyOp[T any](src subscribeFunc[T], fallback T) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		src(&defaultIfEmptySubscriber[T]{actual: s, ctx: contextOf(s), fallback: fallback})
	}
}

func (d *defaultIfEmptySubscriber[T]) Context() context.Context { return d.ctx }

func (d *defaultIfEmptySubscriber[T]) OnSubscribe(s Subscription) {
	d.upstream = s
	d.actual.OnSubscribe(d)
}

func (d *defaultIfEmptySubscriber[T]) OnNext(v T) {
	d.hasValue = true
	d.trail.produced()
	d.actual.OnNext(v)
}

func (d *defaultIfEmptySubscriber[T]) OnError(err error) {
	d.actual.OnError(err)
}

func (d *defaultIfEmptySubscriber[T]) OnComplete() {
	if d.hasValue {
		d.actual.OnComplete()
		return
	}
	if d.trail.offer(d.fallback) {
		d.actual.OnNext(d.fallback)
		d.actual.OnComplete()
	}
}

func (d *defaultIfEmptySubscriber[T]) Request(n int64) {
	if n <= 0 && d.trail.reject() {
		d.actual.OnError(errors.InvalidRequest(n))
		return
	}
	if emit, v := d.trail.request(n); emit {
		d.actual.OnNext(v)
		d.actual.OnComplete()
		return
	}
	d.upstream.Request(n)
}

func (d *defaultIfEmptySubscriber[T]) Cancel() {
	d.trail.cancel()
	d.upstream.Cancel()
}

// --- SwitchIfEmpty ---

type switchIfEmptySubscriber[T any] struct {
	actual   Subscriber[T]
	ctx      context.Context
	fallback Publisher[T]
	arb      arbiter
	hasValue bool
	switched bool
}

func switchIfEmptyOp[T any](src subscribeFunc[T], fallback Publisher[T]) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		sw := &switchIfEmptySubscriber[T]{actual: s, ctx: contextOf(s), fallback: fallback}
		sw.arb.invalid = s.OnError
		s.OnSubscribe(&sw.arb)
		src(sw)
	}
}

func (w *switchIfEmptySubscriber[T]) Context() context.Context { return w.ctx }

func (w *switchIfEmptySubscriber[T]) OnSubscribe(s Subscription) { w.arb.set(s) }

func (w *switchIfEmptySubscriber[T]) OnNext(v T) {
	w.hasValue = true
	w.arb.produced(1)
	w.actual.OnNext(v)
}

func (w *switchIfEmptySubscriber[T]) OnError(err error) {
	if w.arb.terminate() {
		w.actual.OnError(err)
	}
}

func (w *switchIfEmptySubscriber[T]) OnComplete() {
	if w.hasValue || w.switched || w.fallback == nil {
		if w.arb.terminate() {
			w.actual.OnComplete()
		}
		return
	}
	w.switched = true
	if w.arb.isCancelled() {
		return
	}
	w.fallback.Subscribe(w)
}

// --- Take ---

type takeSubscriber[T any] struct {
	actual    Subscriber[T]
	ctx       context.Context
	remaining int64
	upstream  Subscription
	done      bool
}

func takeOp[T any](src subscribeFunc[T], n int64) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		src(&takeSubscriber[T]{actual: s, ctx: contextOf(s), remaining: n})
	}
}

func (t *takeSubscriber[T]) Context() context.Context { return t.ctx }

func (t *takeSubscriber[T]) OnSubscribe(s Subscription) {
	t.upstream = s
	if t.remaining <= 0 {
		t.done = true
		s.Cancel()
		t.actual.OnSubscribe(emptySubscription{})
		t.actual.OnComplete()
		return
	}
	t.actual.OnSubscribe(s)
}

func (t *takeSubscriber[T]) OnNext(v T) {
	if t.done {
		return
	}
	t.remaining--
	last := t.remaining == 0
	if last {
		t.done = true
		t.upstream.Cancel()
	}
	t.actual.OnNext(v)
	if last {
		t.actual.OnComplete()
	}
}

func (t *takeSubscriber[T]) OnError(err error) {
	if t.done {
		return
	}
	t.done = true
	t.actual.OnError(err)
}

func (t *takeSubscriber[T]) OnComplete() {
	if t.done {
		return
	}
	t.done = true
	t.actual.OnComplete()
}

// --- Reduce ---

type reduceSubscriber[T, R any] struct {
	actual   Subscriber[R]
	ctx      context.Context
	acc      R
	fn       func(context.Context, R, T) (R, error)
	upstream Subscription
	trail    trailer[R]
	done     bool
}

func reduceOp[T, R any](src subscribeFunc[T], initial R, fn func(context.Context, R, T) (R, error)) subscribeFunc[R] {
	return func(s Subscriber[R]) {
		src(&reduceSubscriber[T, R]{actual: s, ctx: contextOf(s), acc: initial, fn: fn})
	}
}

func (r *reduceSubscriber[T, R]) Context() context.Context { return r.ctx }

func (r *reduceSubscriber[T, R]) OnSubscribe(s Subscription) {
	r.upstream = s
	r.actual.OnSubscribe(r)
	s.Request(Unbounded)
}

func (r *reduceSubscriber[T, R]) OnNext(v T) {
	if r.done {
		return
	}
	acc, err := apply(r.ctx, "reduce", func(ctx context.Context, v T) (R, error) {
		return r.fn(ctx, r.acc, v)
	}, v)
	if err != nil {
		if h := continueHandler(r.ctx); h != nil {
			h(err, v)
			return
		}
		r.done = true
		r.upstream.Cancel()
		r.actual.OnError(err)
		return
	}
	r.acc = acc
}

func (r *reduceSubscriber[T, R]) OnError(err error) {
	if r.done {
		return
	}
	r.done = true
	r.actual.OnError(err)
}

func (r *reduceSubscriber[T, R]) OnComplete() {
	if r.done {
		return
	}
	r.done = true
	if r.trail.offer(r.acc) {
		r.actual.OnNext(r.acc)
		r.actual.OnComplete()
	}
}

func (r *reduceSubscriber[T, R]) Request(n int64) {
	if n <= 0 {
		if r.trail.reject() {
			r.actual.OnError(errors.InvalidRequest(n))
			return
		}
		r.upstream.Request(n)
		return
	}
	if emit, v := r.trail.request(n); emit {
		r.actual.OnNext(v)
		r.actual.OnComplete()
	}
}

func (r *reduceSubscriber[T, R]) Cancel() {
	r.trail.cancel()
	r.upstream.Cancel()
}

// --- Context override ---

func contextOp[T any](src subscribeFunc[T], derive func(context.Context) context.Context) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		src(&contextSubscriber[T]{Subscriber: s, ctx: derive(contextOf(s))})
	}
}
