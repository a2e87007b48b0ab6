package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/kbukum/reactor/errors"
)

// addCap adds n to the counter, saturating at Unbounded, and returns the
// previous value.
func addCap(r *atomic.Int64, n int64) int64 {
	for {
		cur := r.Load()
		if cur == Unbounded {
			return Unbounded
		}
		next := cur + n
		if next < 0 {
			next = Unbounded
		}
		if r.CompareAndSwap(cur, next) {
			return cur
		}
	}
}

// sumCap adds without overflow.
func sumCap(a, b int64) int64 {
	s := a + b
	if s < 0 {
		return Unbounded
	}
	return s
}

// arbiter is the downstream-facing subscription of stages that switch between
// upstream subscriptions. Outstanding demand carries over to each new upstream.
// A non-positive request cancels the current upstream and is reported through
// invalid, whether or not an upstream is attached at the time.
type arbiter struct {
	mu        sync.Mutex
	current   Subscription
	requested int64
	cancelled bool
	invalid   func(error)
}

func (a *arbiter) Request(n int64) {
	if n <= 0 {
		a.reject(n)
		return
	}
	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		return
	}
	a.requested = sumCap(a.requested, n)
	cur := a.current
	a.mu.Unlock()
	if cur != nil {
		cur.Request(n)
	}
}

func (a *arbiter) reject(n int64) {
	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		return
	}
	a.cancelled = true
	cur := a.current
	a.current = nil
	a.mu.Unlock()
	if cur != nil {
		cur.Cancel()
	}
	if a.invalid != nil {
		a.invalid(errors.InvalidRequest(n))
	}
}

func (a *arbiter) Cancel() {
	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		return
	}
	a.cancelled = true
	cur := a.current
	a.current = nil
	a.mu.Unlock()
	if cur != nil {
		cur.Cancel()
	}
}

// set switches to s and replays the outstanding demand to it.
func (a *arbiter) set(s Subscription) {
	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		s.Cancel()
		return
	}
	a.current = s
	r := a.requested
	a.mu.Unlock()
	if r > 0 {
		s.Request(r)
	}
}

// produced records that n values were delivered downstream.
func (a *arbiter) produced(n int64) {
	a.mu.Lock()
	if a.requested != Unbounded {
		a.requested -= n
		if a.requested < 0 {
			a.requested = 0
		}
	}
	a.mu.Unlock()
}

// terminate marks the stage finished. It reports false when the stage was
// already cancelled or finished, in which case the terminal signal is dropped.
func (a *arbiter) terminate() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelled {
		return false
	}
	a.cancelled = true
	a.current = nil
	return true
}

func (a *arbiter) isCancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

// emitter serializes signals coming from several goroutines into one
// subscriber and honours its demand. Values wait in a queue until requested.
// A failure is delivered as soon as possible and drops queued values; a
// completion is delivered after the queue drains. The lock is never held
// while calling the subscriber, so re-entrant calls are safe.
type emitter[T any] struct {
	actual   Subscriber[T]
	onCancel func()

	mu         sync.Mutex
	queue      []T
	requested  int64
	err        error
	done       bool
	terminated bool
	cancelled  bool
	draining   bool
}

func newEmitter[T any](actual Subscriber[T], onCancel func()) *emitter[T] {
	return &emitter[T]{actual: actual, onCancel: onCancel}
}

func (e *emitter[T]) Request(n int64) {
	if n <= 0 {
		e.fail(errors.InvalidRequest(n))
		return
	}
	e.mu.Lock()
	e.requested = sumCap(e.requested, n)
	e.mu.Unlock()
	e.drain()
}

func (e *emitter[T]) Cancel() {
	e.mu.Lock()
	if e.cancelled {
		e.mu.Unlock()
		return
	}
	e.cancelled = true
	e.queue = nil
	e.mu.Unlock()
	if e.onCancel != nil {
		e.onCancel()
	}
}

// fail cancels the sources and delivers err, replacing a completion that is
// still waiting for queued values.
func (e *emitter[T]) fail(err error) {
	e.mu.Lock()
	if e.terminated || e.err != nil {
		e.mu.Unlock()
		return
	}
	cancelled := e.cancelled
	e.done = true
	e.err = err
	e.queue = nil
	e.mu.Unlock()
	if !cancelled && e.onCancel != nil {
		e.onCancel()
	}
	e.drain()
}

func (e *emitter[T]) next(v T) {
	e.mu.Lock()
	if e.done || e.cancelled {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, v)
	e.mu.Unlock()
	e.drain()
}

func (e *emitter[T]) complete() {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	e.done = true
	e.mu.Unlock()
	e.drain()
}

func (e *emitter[T]) error(err error) {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	e.done = true
	e.err = err
	e.queue = nil
	e.mu.Unlock()
	e.drain()
}

func (e *emitter[T]) drain() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	for {
		if e.cancelled || e.terminated {
			e.queue = nil
			e.draining = false
			e.mu.Unlock()
			return
		}
		if e.err != nil {
			e.terminated = true
			err := e.err
			e.mu.Unlock()
			e.actual.OnError(err)
			e.mu.Lock()
			continue
		}
		if len(e.queue) > 0 && e.requested > 0 {
			v := e.queue[0]
			var zero T
			e.queue[0] = zero
			e.queue = e.queue[1:]
			if e.requested != Unbounded {
				e.requested--
			}
			e.mu.Unlock()
			e.actual.OnNext(v)
			e.mu.Lock()
			continue
		}
		if e.done && len(e.queue) == 0 {
			e.terminated = true
			e.mu.Unlock()
			e.actual.OnComplete()
			e.mu.Lock()
			continue
		}
		e.draining = false
		e.mu.Unlock()
		return
	}
}
