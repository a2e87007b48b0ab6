package reactive

import (
	"context"
	"math"
)

// Unbounded is the demand value meaning "no limit".
const Unbounded int64 = math.MaxInt64

// DefaultConcurrency is the number of inner subscriptions FlatMap keeps open.
const DefaultConcurrency = 256

// Subscription is the demand and cancellation contract between a producer and
// a subscriber. Request is additive and saturates at Unbounded; a non-positive
// request fails the pipeline. Cancel is idempotent.
type Subscription interface {
	Request(n int64)
	Cancel()
}

// Subscriber receives the signals of one subscription. OnSubscribe is called
// exactly once, before any other method. Calls are never concurrent.
//
// A Subscriber may also implement
//
//	Context() context.Context
//
// to hand a context to the stages above it.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// Publisher is anything that can be subscribed to. Both *Flux and *Mono are Publishers.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// SignalType tags the events a subscription goes through.
type SignalType uint8

const (
	SignalSubscribe SignalType = iota + 1
	SignalRequest
	SignalNext
	SignalComplete
	SignalError
	SignalCancel
	SignalFinally
)

func (t SignalType) String() string {
	switch t {
	case SignalSubscribe:
		return "onSubscribe"
	case SignalRequest:
		return "request"
	case SignalNext:
		return "onNext"
	case SignalComplete:
		return "onComplete"
	case SignalError:
		return "onError"
	case SignalCancel:
		return "cancel"
	case SignalFinally:
		return "finally"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the signal ends a subscription.
func (t SignalType) IsTerminal() bool {
	return t == SignalComplete || t == SignalError || t == SignalCancel
}

// Signal is one data signal: a value, completion or failure.
type Signal[T any] struct {
	Type  SignalType
	Value T
	Err   error
}

// subscribeFunc is the deferred body shared by Flux and Mono.
type subscribeFunc[T any] func(Subscriber[T])

type contextual interface {
	Context() context.Context
}

// contextOf returns the context a subscriber carries, or Background.
func contextOf(s any) context.Context {
	if c, ok := s.(contextual); ok {
		if ctx := c.Context(); ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

type emptySubscription struct{}

func (emptySubscription) Request(int64) {}
func (emptySubscription) Cancel()       {}

// as converts a type-erased value back, tolerating nil interfaces.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
