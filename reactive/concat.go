package reactive

import (
	"context"
	"sync"
	"sync/atomic"
)

// --- Concat ---

// concatSubscriber subscribes to each source only after the previous one
// completed. The same subscriber is reused for every source.
type concatSubscriber[T any] struct {
	actual  Subscriber[T]
	ctx     context.Context
	sources []Publisher[T]
	idx     int
	arb     arbiter
	wip     atomic.Int32
}

func concatOp[T any](sources []Publisher[T]) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		c := &concatSubscriber[T]{actual: s, ctx: contextOf(s), sources: sources}
		c.arb.invalid = s.OnError
		s.OnSubscribe(&c.arb)
		c.subscribeNext()
	}
}

func (c *concatSubscriber[T]) Context() context.Context { return c.ctx }

func (c *concatSubscriber[T]) OnSubscribe(s Subscription) { c.arb.set(s) }

func (c *concatSubscriber[T]) OnNext(v T) {
	c.arb.produced(1)
	c.actual.OnNext(v)
}

func (c *concatSubscriber[T]) OnError(err error) {
	if c.arb.terminate() {
		c.actual.OnError(err)
	}
}

func (c *concatSubscriber[T]) OnComplete() { c.subscribeNext() }

// subscribeNext trampolines so synchronous sources do not grow the stack.
func (c *concatSubscriber[T]) subscribeNext() {
	if c.wip.Add(1) != 1 {
		return
	}
	for {
		if c.arb.isCancelled() {
			return
		}
		if c.idx == len(c.sources) {
			if c.arb.terminate() {
				c.actual.OnComplete()
			}
			return
		}
		p := c.sources[c.idx]
		c.idx++
		if p == nil {
			p = Empty[T]()
		}
		p.Subscribe(c)
		if c.wip.Add(-1) == 0 {
			return
		}
	}
}

// --- ConcatMap ---

// concatMapSubscriber requests one upstream value at a time and runs its inner
// publisher to completion before asking for the next.
type concatMapSubscriber[T, R any] struct {
	actual   Subscriber[R]
	ctx      context.Context
	fn       func(context.Context, T) (Publisher[R], error)
	upstream Subscription
	arb      arbiter
	wip      atomic.Int32

	mu           sync.Mutex
	queue        []T
	active       bool
	upstreamDone bool
	done         bool
}

type concatMapInner[T, R any] struct {
	parent *concatMapSubscriber[T, R]
	value  T
}

func concatMapOp[T, R any](src subscribeFunc[T], fn func(context.Context, T) (Publisher[R], error)) subscribeFunc[R] {
	return func(s Subscriber[R]) {
		c := &concatMapSubscriber[T, R]{actual: s, ctx: contextOf(s), fn: fn}
		c.arb.invalid = c.fail
		src(c)
	}
}

func (c *concatMapSubscriber[T, R]) Context() context.Context { return c.ctx }

func (c *concatMapSubscriber[T, R]) OnSubscribe(s Subscription) {
	c.upstream = s
	c.actual.OnSubscribe(c)
	s.Request(1)
}

func (c *concatMapSubscriber[T, R]) OnNext(v T) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, v)
	c.mu.Unlock()
	c.drain()
}

func (c *concatMapSubscriber[T, R]) OnError(err error) {
	c.fail(err)
}

func (c *concatMapSubscriber[T, R]) OnComplete() {
	c.mu.Lock()
	c.upstreamDone = true
	c.mu.Unlock()
	c.drain()
}

func (c *concatMapSubscriber[T, R]) Request(n int64) { c.arb.Request(n) }

func (c *concatMapSubscriber[T, R]) Cancel() {
	c.mu.Lock()
	c.done = true
	c.queue = nil
	c.mu.Unlock()
	c.upstream.Cancel()
	c.arb.Cancel()
}

func (c *concatMapSubscriber[T, R]) fail(err error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.queue = nil
	c.mu.Unlock()
	c.upstream.Cancel()
	c.arb.Cancel()
	c.actual.OnError(err)
}

func (c *concatMapSubscriber[T, R]) drain() {
	if c.wip.Add(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		for c.step() {
		}
		missed = c.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// step starts the next inner or completes; it reports whether another step
// can make progress right away.
func (c *concatMapSubscriber[T, R]) step() bool {
	c.mu.Lock()
	if c.done || c.active {
		c.mu.Unlock()
		return false
	}
	if len(c.queue) == 0 {
		if c.upstreamDone {
			c.done = true
			c.mu.Unlock()
			c.actual.OnComplete()
		} else {
			c.mu.Unlock()
		}
		return false
	}
	v := c.queue[0]
	c.queue = c.queue[1:]
	c.active = true
	c.mu.Unlock()

	p, err := apply(c.ctx, "concatMap", c.fn, v)
	if err == nil && p == nil {
		p = Empty[R]()
	}
	if err != nil {
		if h := continueHandler(c.ctx); h != nil {
			h(err, v)
			c.mu.Lock()
			c.active = false
			c.mu.Unlock()
			c.upstream.Request(1)
			return true
		}
		c.fail(err)
		return false
	}
	p.Subscribe(&concatMapInner[T, R]{parent: c, value: v})
	return false
}

func (c *concatMapSubscriber[T, R]) innerDone() {
	c.mu.Lock()
	c.active = false
	finished := c.done
	c.mu.Unlock()
	if finished {
		return
	}
	c.upstream.Request(1)
	c.drain()
}

func (i *concatMapInner[T, R]) Context() context.Context { return i.parent.ctx }

func (i *concatMapInner[T, R]) OnSubscribe(s Subscription) { i.parent.arb.set(s) }

func (i *concatMapInner[T, R]) OnNext(v R) {
	i.parent.arb.produced(1)
	i.parent.actual.OnNext(v)
}

func (i *concatMapInner[T, R]) OnError(err error) {
	if h := continueHandler(i.parent.ctx); h != nil {
		h(err, i.value)
		i.parent.innerDone()
		return
	}
	i.parent.fail(err)
}

func (i *concatMapInner[T, R]) OnComplete() { i.parent.innerDone() }
