package reactive

import (
	"context"
)

type schedulerKey struct{}

type continueKey struct{}

type concurrencyKey struct{}

// ErrorContinueHandler observes an element-level failure that OnErrorContinue
// recovered. value is the element whose processing failed.
type ErrorContinueHandler func(err error, value any)

type continueStrategy struct {
	handler ErrorContinueHandler
}

// WithScheduler returns a context whose subscriptions run timed work on s.
func WithScheduler(ctx context.Context, s Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// SchedulerFrom returns the scheduler carried by ctx, or DefaultScheduler.
func SchedulerFrom(ctx context.Context) Scheduler {
	if s, ok := ctx.Value(schedulerKey{}).(Scheduler); ok && s != nil {
		return s
	}
	return DefaultScheduler()
}

// WithConcurrency returns a context whose FlatMap stages keep at most n inner
// subscriptions open. A non-positive n is ignored.
func WithConcurrency(ctx context.Context, n int) context.Context {
	if n <= 0 {
		return ctx
	}
	return context.WithValue(ctx, concurrencyKey{}, n)
}

// ConcurrencyFrom returns the FlatMap bound carried by ctx, or DefaultConcurrency.
func ConcurrencyFrom(ctx context.Context) int {
	if n, ok := ctx.Value(concurrencyKey{}).(int); ok {
		return n
	}
	return DefaultConcurrency
}

func withContinue(ctx context.Context, h ErrorContinueHandler) context.Context {
	return context.WithValue(ctx, continueKey{}, continueStrategy{handler: h})
}

// continueHandler returns the onErrorContinue handler installed downstream, if any.
func continueHandler(ctx context.Context) ErrorContinueHandler {
	if s, ok := ctx.Value(continueKey{}).(continueStrategy); ok {
		return s.handler
	}
	return nil
}

// contextSubscriber overrides the context a downstream subscriber exposes.
type contextSubscriber[T any] struct {
	Subscriber[T]
	ctx context.Context
}

func (c *contextSubscriber[T]) Context() context.Context { return c.ctx }
