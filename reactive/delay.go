package reactive

import (
	"context"
	"sync"
	"time"
)

// delaySubscriber holds each value for a fixed duration before emitting it.
// One value is in flight at a time, so order is preserved. The next value is
// requested before the held one is emitted, which keeps its timer armed by the
// time downstream sees the previous value.
type delaySubscriber[T any] struct {
	actual   Subscriber[T]
	ctx      context.Context
	delay    time.Duration
	sched    Scheduler
	out      *emitter[T]
	upstream Subscription

	mu           sync.Mutex
	inFlight     int
	emitting     bool
	upstreamDone bool
	cancelled    bool
	pending      CancelFunc
}

func delayOp[T any](src subscribeFunc[T], d time.Duration) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		ctx := contextOf(s)
		src(&delaySubscriber[T]{actual: s, ctx: ctx, delay: d, sched: SchedulerFrom(ctx)})
	}
}

func (d *delaySubscriber[T]) Context() context.Context { return d.ctx }

func (d *delaySubscriber[T]) OnSubscribe(s Subscription) {
	d.upstream = s
	d.out = newEmitter(d.actual, d.cancel)
	d.actual.OnSubscribe(d.out)
	s.Request(1)
}

func (d *delaySubscriber[T]) OnNext(v T) {
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		return
	}
	d.inFlight++
	d.pending = d.sched.ScheduleAfter(d.delay, func() { d.fire(v) })
	d.mu.Unlock()
}

func (d *delaySubscriber[T]) fire(v T) {
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		return
	}
	d.inFlight--
	d.pending = nil
	d.emitting = true
	more := !d.upstreamDone
	d.mu.Unlock()

	if more {
		d.upstream.Request(1)
	}
	d.out.next(v)

	d.mu.Lock()
	d.emitting = false
	done := d.upstreamDone && d.inFlight == 0
	d.mu.Unlock()
	if done {
		d.out.complete()
	}
}

func (d *delaySubscriber[T]) OnError(err error) {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.cancelled = true
	d.mu.Unlock()
	if pending != nil {
		pending()
	}
	d.out.error(err)
}

func (d *delaySubscriber[T]) OnComplete() {
	d.mu.Lock()
	d.upstreamDone = true
	idle := d.inFlight == 0 && !d.emitting
	d.mu.Unlock()
	if idle {
		d.out.complete()
	}
}

// cancel stops the pending timer and the upstream.
func (d *delaySubscriber[T]) cancel() {
	d.mu.Lock()
	d.cancelled = true
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()
	if pending != nil {
		pending()
	}
	d.upstream.Cancel()
}

// --- SubscribeOn ---

func subscribeOnOp[T any](src subscribeFunc[T], sched Scheduler) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		ctx := WithScheduler(contextOf(s), sched)
		sched.Schedule(func() {
			src(&contextSubscriber[T]{Subscriber: s, ctx: ctx})
		})
	}
}
