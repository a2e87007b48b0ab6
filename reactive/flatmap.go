package reactive

import (
	"context"
	"sync"
)

// flatMapSubscriber subscribes to an inner publisher per upstream value and
// merges the inner values in arrival order. At most maxConcurrency inners are
// open at once.
type flatMapSubscriber[T, R any] struct {
	ctx            context.Context
	stage          string
	fn             func(context.Context, T) (Publisher[R], error)
	maxConcurrency int
	out            *emitter[R]
	actual         Subscriber[R]
	upstream       Subscription

	mu           sync.Mutex
	inners       map[*flatMapInner[T, R]]struct{}
	upstreamDone bool
	cancelled    bool
}

type flatMapInner[T, R any] struct {
	parent *flatMapSubscriber[T, R]
	value  T
	sub    Subscription
}

func flatMapOp[T, R any](src subscribeFunc[T], stage string, maxConcurrency int, fn func(context.Context, T) (Publisher[R], error)) subscribeFunc[R] {
	return func(s Subscriber[R]) {
		ctx := contextOf(s)
		n := maxConcurrency
		if n <= 0 {
			n = ConcurrencyFrom(ctx)
		}
		src(&flatMapSubscriber[T, R]{
			ctx:            ctx,
			stage:          stage,
			fn:             fn,
			maxConcurrency: n,
			actual:         s,
			inners:         make(map[*flatMapInner[T, R]]struct{}),
		})
	}
}

func (f *flatMapSubscriber[T, R]) Context() context.Context { return f.ctx }

func (f *flatMapSubscriber[T, R]) OnSubscribe(s Subscription) {
	f.upstream = s
	f.out = newEmitter(f.actual, f.cancelSources)
	f.actual.OnSubscribe(f.out)
	s.Request(int64(f.maxConcurrency))
}

func (f *flatMapSubscriber[T, R]) OnNext(v T) {
	p, err := apply(f.ctx, f.stage, f.fn, v)
	if err == nil && p == nil {
		p = Empty[R]()
	}
	if err != nil {
		if h := continueHandler(f.ctx); h != nil {
			h(err, v)
			f.upstream.Request(1)
			return
		}
		f.fail(err)
		return
	}
	inner := &flatMapInner[T, R]{parent: f, value: v}
	f.mu.Lock()
	if f.cancelled {
		f.mu.Unlock()
		return
	}
	f.inners[inner] = struct{}{}
	f.mu.Unlock()
	p.Subscribe(inner)
}

func (f *flatMapSubscriber[T, R]) OnError(err error) {
	f.fail(err)
}

func (f *flatMapSubscriber[T, R]) OnComplete() {
	f.mu.Lock()
	f.upstreamDone = true
	done := len(f.inners) == 0
	f.mu.Unlock()
	if done {
		f.out.complete()
	}
}

func (f *flatMapSubscriber[T, R]) innerDone(inner *flatMapInner[T, R]) {
	f.mu.Lock()
	delete(f.inners, inner)
	done := f.upstreamDone && len(f.inners) == 0
	cancelled := f.cancelled
	f.mu.Unlock()
	if cancelled {
		return
	}
	if done {
		f.out.complete()
		return
	}
	f.upstream.Request(1)
}

func (f *flatMapSubscriber[T, R]) fail(err error) {
	f.cancelSources()
	f.out.error(err)
}

// cancelSources cancels upstream and every open inner.
func (f *flatMapSubscriber[T, R]) cancelSources() {
	f.mu.Lock()
	if f.cancelled {
		f.mu.Unlock()
		return
	}
	f.cancelled = true
	subs := make([]Subscription, 0, len(f.inners))
	for inner := range f.inners {
		if inner.sub != nil {
			subs = append(subs, inner.sub)
		}
	}
	f.inners = map[*flatMapInner[T, R]]struct{}{}
	f.mu.Unlock()
	f.upstream.Cancel()
	for _, s := range subs {
		s.Cancel()
	}
}

func (i *flatMapInner[T, R]) Context() context.Context { return i.parent.ctx }

func (i *flatMapInner[T, R]) OnSubscribe(s Subscription) {
	i.parent.mu.Lock()
	if i.parent.cancelled {
		i.parent.mu.Unlock()
		s.Cancel()
		return
	}
	i.sub = s
	i.parent.mu.Unlock()
	s.Request(Unbounded)
}

func (i *flatMapInner[T, R]) OnNext(v R) {
	i.parent.out.next(v)
}

func (i *flatMapInner[T, R]) OnError(err error) {
	if h := continueHandler(i.parent.ctx); h != nil {
		h(err, i.value)
		i.parent.innerDone(i)
		return
	}
	i.parent.fail(err)
}

func (i *flatMapInner[T, R]) OnComplete() {
	i.parent.innerDone(i)
}

func mergeOp[T any](sources []Publisher[T]) subscribeFunc[T] {
	if len(sources) == 0 {
		return Empty[T]().subscribe
	}
	// the sources feed the cursor directly; a Flux of publishers would make
	// Merge instantiate itself at ever deeper types
	src := func(s Subscriber[Publisher[T]]) {
		subscribeCursor[Publisher[T]](s, &sliceCursor[Publisher[T]]{items: sources})
	}
	return flatMapOp(src, "merge", len(sources),
		func(_ context.Context, p Publisher[T]) (Publisher[T], error) {
			return p, nil
		})
}
