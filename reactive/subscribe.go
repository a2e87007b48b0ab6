package reactive

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/reactor/errors"
	"github.com/kbukum/reactor/logger"
)

// callbackSubscriber is the subscriber behind SubscribeFunc. It requests
// unbounded demand and stops invoking callbacks once cancelled.
type callbackSubscriber[T any] struct {
	ctx        context.Context
	cancelCtx  context.CancelFunc
	stopAfter  func() bool
	onNext     func(T)
	onComplete func()
	onError    func(error)

	mu        sync.Mutex
	upstream  Subscription
	cancelled atomic.Bool
	done      atomic.Bool
}

func subscribeCallbacks[T any](ctx context.Context, p Publisher[T], onNext func(T), onComplete func(), onError func(error)) Subscription {
	c := newCallbackSubscriber(ctx, onNext, onComplete, onError)
	p.Subscribe(c)
	return c
}

func newCallbackSubscriber[T any](ctx context.Context, onNext func(T), onComplete func(), onError func(error)) *callbackSubscriber[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	c := &callbackSubscriber[T]{
		ctx:        ctx,
		cancelCtx:  cancel,
		onNext:     onNext,
		onComplete: onComplete,
		onError:    onError,
	}
	c.stopAfter = context.AfterFunc(parent, c.Cancel)
	return c
}

func (c *callbackSubscriber[T]) Context() context.Context { return c.ctx }

func (c *callbackSubscriber[T]) OnSubscribe(s Subscription) {
	c.mu.Lock()
	if c.upstream != nil {
		c.mu.Unlock()
		s.Cancel()
		return
	}
	c.upstream = s
	c.mu.Unlock()
	if c.cancelled.Load() {
		s.Cancel()
		return
	}
	s.Request(Unbounded)
}

func (c *callbackSubscriber[T]) OnNext(v T) {
	if c.cancelled.Load() || c.done.Load() || c.onNext == nil {
		return
	}
	if err := guard("subscriber", func() { c.onNext(v) }); err != nil {
		c.Cancel()
		c.deliverError(err)
	}
}

func (c *callbackSubscriber[T]) OnError(err error) {
	if c.cancelled.Load() {
		return
	}
	c.deliverError(err)
}

func (c *callbackSubscriber[T]) deliverError(err error) {
	if !c.done.CompareAndSwap(false, true) {
		return
	}
	c.release()
	if c.onError == nil {
		logger.Get("reactive").Error("unhandled stream error", logger.ErrorFields("subscribe", err))
		return
	}
	c.onError(err)
}

func (c *callbackSubscriber[T]) OnComplete() {
	if c.cancelled.Load() || !c.done.CompareAndSwap(false, true) {
		return
	}
	c.release()
	if c.onComplete != nil {
		c.onComplete()
	}
}

func (c *callbackSubscriber[T]) Request(n int64) {
	c.mu.Lock()
	up := c.upstream
	c.mu.Unlock()
	if up != nil {
		up.Request(n)
	}
}

func (c *callbackSubscriber[T]) Cancel() {
	if !c.cancelled.CompareAndSwap(false, true) {
		return
	}
	c.release()
	c.mu.Lock()
	up := c.upstream
	c.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
}

func (c *callbackSubscriber[T]) release() {
	c.stopAfter()
	c.cancelCtx()
}

// --- Blocking drivers ---

// Collect subscribes, waits for termination and returns every value. On
// failure the values received so far are returned along with the error. If
// ctx ends first the subscription is cancelled and ctx's error is returned.
func Collect[T any](ctx context.Context, p Publisher[T]) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
		result error
	)
	done := make(chan struct{})
	sub := subscribeCallbacks(ctx, p,
		func(v T) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
		func() { close(done) },
		func(err error) {
			result = err
			close(done)
		},
	)
	select {
	case <-done:
		return values, result
	case <-ctx.Done():
		sub.Cancel()
		mu.Lock()
		defer mu.Unlock()
		return append([]T(nil), values...), errors.Cancelled(ctx.Err())
	}
}

// ForEach calls fn for every value until the publisher terminates. An error
// from fn cancels the subscription and is returned.
func ForEach[T any](ctx context.Context, p Publisher[T], fn func(T) error) error {
	var (
		once   sync.Once
		result error
		sub    *callbackSubscriber[T]
	)
	done := make(chan struct{})
	finish := func(err error) {
		once.Do(func() {
			result = err
			close(done)
		})
	}
	sub = newCallbackSubscriber(ctx,
		func(v T) {
			if err := fn(v); err != nil {
				sub.Cancel()
				finish(err)
			}
		},
		func() { finish(nil) },
		finish,
	)
	p.Subscribe(sub)
	select {
	case <-done:
		return result
	case <-ctx.Done():
		sub.Cancel()
		finish(errors.Cancelled(ctx.Err()))
		<-done
		return result
	}
}

// Block subscribes to m and waits for its value. ok is false when m
// completed empty.
func Block[T any](ctx context.Context, m *Mono[T]) (value T, ok bool, err error) {
	values, err := Collect[T](ctx, m)
	if err != nil {
		return value, false, err
	}
	if len(values) == 0 {
		return value, false, nil
	}
	return values[0], true, nil
}
