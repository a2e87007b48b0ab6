package reactive

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kbukum/reactor/errors"
)

// cursor is a pull-based value source driven by demand.
type cursor[T any] interface {
	// next returns the next value; ok is false when the source is exhausted.
	next() (v T, ok bool, err error)
	// exhausted reports, without side effects, whether next would report ok=false.
	exhausted() bool
	close()
}

// pullSubscription emits cursor values as demand arrives. The drain loop is
// entered by whoever moves the requested counter away from zero, so emission
// is serial even when Request is called from several goroutines.
type pullSubscription[T any] struct {
	actual    Subscriber[T]
	cur       cursor[T]
	requested atomic.Int64
	cancelled atomic.Bool
	invalid   atomic.Pointer[errors.AppError]
	closeOnce sync.Once
}

func subscribeCursor[T any](s Subscriber[T], cur cursor[T]) {
	p := &pullSubscription[T]{actual: s, cur: cur}
	// once OnSubscribe runs, only the drain loop may touch the cursor
	empty := cur.exhausted()
	s.OnSubscribe(p)
	// complete right away when there is nothing to pull
	if empty && p.requested.Load() == 0 && !p.cancelled.Load() {
		if addCap(&p.requested, 1) == 0 {
			p.drain(1)
		}
	}
}

func (p *pullSubscription[T]) Request(n int64) {
	if n <= 0 {
		p.invalid.CompareAndSwap(nil, errors.InvalidRequest(n))
		n = 1
	}
	if addCap(&p.requested, n) == 0 {
		p.drain(n)
	}
}

func (p *pullSubscription[T]) Cancel() {
	if p.cancelled.Swap(true) {
		return
	}
	// wake the drain loop so it releases the cursor
	if addCap(&p.requested, 1) == 0 {
		p.drain(1)
	}
}

func (p *pullSubscription[T]) release() {
	p.closeOnce.Do(p.cur.close)
}

func (p *pullSubscription[T]) drain(n int64) {
	var emitted int64
	for {
		for emitted != n {
			if p.cancelled.Load() {
				p.release()
				return
			}
			if err := p.invalid.Load(); err != nil {
				p.cancelled.Store(true)
				p.release()
				p.actual.OnError(err)
				return
			}
			if p.cur.exhausted() {
				p.cancelled.Store(true)
				p.release()
				p.actual.OnComplete()
				return
			}
			v, ok, err := p.cur.next()
			if err != nil {
				p.cancelled.Store(true)
				p.release()
				p.actual.OnError(err)
				return
			}
			if !ok {
				p.cancelled.Store(true)
				p.release()
				p.actual.OnComplete()
				return
			}
			p.actual.OnNext(v)
			emitted++
		}
		if p.cancelled.Load() {
			p.release()
			return
		}
		if p.cur.exhausted() {
			p.cancelled.Store(true)
			p.release()
			p.actual.OnComplete()
			return
		}
		n = p.requested.Load()
		if n == emitted {
			n = p.requested.Add(-emitted)
			if n == 0 {
				return
			}
			emitted = 0
		}
	}
}

type sliceCursor[T any] struct {
	items []T
	idx   int
}

func (c *sliceCursor[T]) next() (T, bool, error) {
	if c.idx >= len(c.items) {
		var zero T
		return zero, false, nil
	}
	v := c.items[c.idx]
	c.idx++
	return v, true, nil
}

func (c *sliceCursor[T]) exhausted() bool { return c.idx >= len(c.items) }
func (c *sliceCursor[T]) close()          {}

type rangeCursor struct {
	cur, end int
}

func (c *rangeCursor) next() (int, bool, error) {
	if c.cur >= c.end {
		return 0, false, nil
	}
	v := c.cur
	c.cur++
	return v, true, nil
}

func (c *rangeCursor) exhausted() bool { return c.cur >= c.end }
func (c *rangeCursor) close()          {}

type seqCursor[T any] struct {
	seq      iter.Seq[T]
	pull     func() (T, bool)
	stop     func()
	finished bool
}

func (c *seqCursor[T]) next() (T, bool, error) {
	if c.pull == nil {
		c.pull, c.stop = iter.Pull(c.seq)
	}
	v, ok := c.pull()
	if !ok {
		c.finished = true
	}
	return v, ok, nil
}

func (c *seqCursor[T]) exhausted() bool { return c.finished }

func (c *seqCursor[T]) close() {
	if c.stop != nil {
		c.stop()
	}
}

// funcCursor produces the result of one call.
type funcCursor[T any] struct {
	ctx    context.Context
	fn     func(context.Context) (T, error)
	called bool
}

func (c *funcCursor[T]) next() (v T, ok bool, err error) {
	if c.called {
		return v, false, nil
	}
	c.called = true
	v, err = apply(c.ctx, "fromFunc", func(ctx context.Context, _ struct{}) (T, error) {
		return c.fn(ctx)
	}, struct{}{})
	return v, err == nil, err
}

func (c *funcCursor[T]) exhausted() bool { return c.called }
func (c *funcCursor[T]) close()          {}

// Just emits the given values in order, then completes.
func Just[T any](values ...T) *Flux[T] {
	return FromSlice(values)
}

// FromSlice emits the elements of items in order, then completes. The slice is
// copied, so later changes by the caller are not observed.
func FromSlice[T any](items []T) *Flux[T] {
	items = slices.Clone(items)
	return newFlux(func(s Subscriber[T]) {
		subscribeCursor[T](s, &sliceCursor[T]{items: items})
	})
}

// FromSeq emits the values of seq. The sequence is started lazily on the first
// request and stopped when the subscription ends.
func FromSeq[T any](seq iter.Seq[T]) *Flux[T] {
	return newFlux(func(s Subscriber[T]) {
		subscribeCursor[T](s, &seqCursor[T]{seq: seq})
	})
}

// Range emits count consecutive integers starting at start.
func Range(start, count int) *Flux[int] {
	return newFlux(func(s Subscriber[int]) {
		if count < 0 {
			s.OnSubscribe(emptySubscription{})
			s.OnError(errors.InvalidArgument("count", "must not be negative"))
			return
		}
		subscribeCursor[int](s, &rangeCursor{cur: start, end: start + count})
	})
}

// Empty completes without emitting.
func Empty[T any]() *Flux[T] {
	return newFlux(func(s Subscriber[T]) {
		s.OnSubscribe(emptySubscription{})
		s.OnComplete()
	})
}

// Error fails every subscriber with err.
func Error[T any](err error) *Flux[T] {
	return newFlux(func(s Subscriber[T]) {
		s.OnSubscribe(emptySubscription{})
		s.OnError(err)
	})
}

// Never neither emits nor terminates.
func Never[T any]() *Flux[T] {
	return newFlux(func(s Subscriber[T]) {
		s.OnSubscribe(emptySubscription{})
	})
}

// Defer calls supplier for each subscription and subscribes to its result.
func Defer[T any](supplier func() Publisher[T]) *Flux[T] {
	return newFlux(func(s Subscriber[T]) {
		var p Publisher[T]
		if err := guard("defer", func() { p = supplier() }); err != nil {
			Error[T](err).Subscribe(s)
			return
		}
		if p == nil {
			Empty[T]().Subscribe(s)
			return
		}
		p.Subscribe(s)
	})
}

// MonoJust emits v, then completes.
func MonoJust[T any](v T) *Mono[T] {
	return newMono(func(s Subscriber[T]) {
		subscribeCursor[T](s, &sliceCursor[T]{items: []T{v}})
	})
}

// MonoEmpty completes without a value.
func MonoEmpty[T any]() *Mono[T] {
	return &Mono[T]{subscribe: Empty[T]().subscribe}
}

// MonoError fails every subscriber with err.
func MonoError[T any](err error) *Mono[T] {
	return &Mono[T]{subscribe: Error[T](err).subscribe}
}

// MonoNever neither emits nor terminates.
func MonoNever[T any]() *Mono[T] {
	return &Mono[T]{subscribe: Never[T]().subscribe}
}

// MonoFromFunc calls fn once per subscription, when the value is first
// requested, and emits its result.
func MonoFromFunc[T any](fn func(context.Context) (T, error)) *Mono[T] {
	return newMono(func(s Subscriber[T]) {
		subscribeCursor[T](s, &funcCursor[T]{ctx: contextOf(s), fn: fn})
	})
}

// MonoDefer calls supplier for each subscription.
func MonoDefer[T any](supplier func() *Mono[T]) *Mono[T] {
	return &Mono[T]{subscribe: Defer(func() Publisher[T] {
		if m := supplier(); m != nil {
			return m
		}
		return nil
	}).subscribe}
}
