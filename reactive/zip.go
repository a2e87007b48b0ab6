package reactive

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/reactor/errors"
)

// zipCoordinator buffers each source and emits one combined row as soon as
// every source has a value at the same index. It completes when a finished
// source has nothing left to pair, cancelling the others.
type zipCoordinator[R any] struct {
	ctx     context.Context
	combine func([]any) (R, error)
	out     *emitter[R]
	wip     atomic.Int32

	mu       sync.Mutex
	queues   [][]any
	done     []bool
	subs     []Subscription
	finished bool
}

type zipInner[R any] struct {
	parent *zipCoordinator[R]
	index  int
}

func zipOp[R any](sources []subscribeFunc[any], combine func([]any) (R, error)) subscribeFunc[R] {
	if len(sources) == 0 {
		return Empty[R]().subscribe
	}
	return func(s Subscriber[R]) {
		z := &zipCoordinator[R]{
			ctx:     contextOf(s),
			combine: combine,
			queues:  make([][]any, len(sources)),
			done:    make([]bool, len(sources)),
			subs:    make([]Subscription, len(sources)),
		}
		z.out = newEmitter(s, z.cancelSources)
		s.OnSubscribe(z.out)
		for i, src := range sources {
			if z.isFinished() {
				return
			}
			src(&zipInner[R]{parent: z, index: i})
		}
	}
}

func (z *zipCoordinator[R]) isFinished() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.finished
}

func (z *zipCoordinator[R]) cancelSources() {
	z.mu.Lock()
	if z.finished {
		z.mu.Unlock()
		return
	}
	z.finished = true
	subs := make([]Subscription, 0, len(z.subs))
	for _, s := range z.subs {
		if s != nil {
			subs = append(subs, s)
		}
	}
	z.queues = nil
	z.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}

func (z *zipCoordinator[R]) fail(err error) {
	z.cancelSources()
	z.out.error(err)
}

func (z *zipCoordinator[R]) drain() {
	if z.wip.Add(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		for z.step() {
		}
		missed = z.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (z *zipCoordinator[R]) step() bool {
	z.mu.Lock()
	if z.finished {
		z.mu.Unlock()
		return false
	}
	ready := true
	for _, q := range z.queues {
		if len(q) == 0 {
			ready = false
			break
		}
	}
	if ready {
		row := make([]any, len(z.queues))
		for i, q := range z.queues {
			row[i] = q[0]
			q[0] = nil
			z.queues[i] = q[1:]
		}
		z.mu.Unlock()
		r, err := apply(z.ctx, "zip", func(_ context.Context, row []any) (R, error) {
			return z.combine(row)
		}, row)
		if err != nil {
			z.fail(err)
			return false
		}
		z.out.next(r)
		return true
	}
	exhausted := false
	for i, q := range z.queues {
		if z.done[i] && len(q) == 0 {
			exhausted = true
			break
		}
	}
	z.mu.Unlock()
	if exhausted {
		z.cancelSources()
		z.out.complete()
	}
	return false
}

func (i *zipInner[R]) Context() context.Context { return i.parent.ctx }

func (i *zipInner[R]) OnSubscribe(s Subscription) {
	z := i.parent
	z.mu.Lock()
	if z.finished {
		z.mu.Unlock()
		s.Cancel()
		return
	}
	z.subs[i.index] = s
	z.mu.Unlock()
	s.Request(Unbounded)
}

func (i *zipInner[R]) OnNext(v any) {
	z := i.parent
	z.mu.Lock()
	if z.finished {
		z.mu.Unlock()
		return
	}
	z.queues[i.index] = append(z.queues[i.index], v)
	z.mu.Unlock()
	z.drain()
}

func (i *zipInner[R]) OnError(err error) { i.parent.fail(err) }

func (i *zipInner[R]) OnComplete() {
	z := i.parent
	z.mu.Lock()
	if z.finished {
		z.mu.Unlock()
		return
	}
	z.done[i.index] = true
	z.mu.Unlock()
	z.drain()
}

// erase adapts a typed publisher to the type-erased form zip works on.
func erase[T any](p Publisher[T]) subscribeFunc[any] {
	return func(s Subscriber[any]) {
		if p == nil {
			s.OnSubscribe(emptySubscription{})
			s.OnError(errors.InvalidArgument("source", "must not be nil"))
			return
		}
		p.Subscribe(&erasedSubscriber[T]{actual: s})
	}
}

type erasedSubscriber[T any] struct {
	actual Subscriber[any]
}

func (e *erasedSubscriber[T]) Context() context.Context   { return contextOf(e.actual) }
func (e *erasedSubscriber[T]) OnSubscribe(s Subscription) { e.actual.OnSubscribe(s) }
func (e *erasedSubscriber[T]) OnNext(v T)                 { e.actual.OnNext(v) }
func (e *erasedSubscriber[T]) OnError(err error)          { e.actual.OnError(err) }
func (e *erasedSubscriber[T]) OnComplete()                { e.actual.OnComplete() }
