package reactive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/reactor/logger"
)

// Event describes one signal seen by an observed stage.
type Event struct {
	Type SignalType
	// Stage is the label given to Log or Observe.
	Stage string
	// Subscription identifies the subscription the event belongs to.
	Subscription string
	Value        any
	Err          error
	// Requested is set for SignalRequest events.
	Requested int64
	// Terminal is set for SignalFinally events: the signal that ended the subscription.
	Terminal SignalType
	Time     time.Time
}

// Observer receives events from an observed stage. Events of one subscription
// are delivered in order; different subscriptions may be observed concurrently.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

// Observers fans events out to several observers.
func Observers(observers ...Observer) Observer {
	return ObserverFunc(func(ctx context.Context, e Event) {
		for _, o := range observers {
			if o != nil {
				o.Observe(ctx, e)
			}
		}
	})
}

func observeOp[T any](src subscribeFunc[T], stage string, obs Observer) subscribeFunc[T] {
	return func(s Subscriber[T]) {
		ctx := contextOf(s)
		id := uuid.NewString()
		emit := func(e Event) {
			e.Stage = stage
			e.Subscription = id
			e.Time = SchedulerFrom(ctx).Now()
			obs.Observe(ctx, e)
		}
		hooks := &peekHooks[T]{
			stage:       stage,
			onSubscribe: func(context.Context, Subscription) { emit(Event{Type: SignalSubscribe}) },
			onRequest:   func(n int64) { emit(Event{Type: SignalRequest, Requested: n}) },
			onNext:      func(v T) { emit(Event{Type: SignalNext, Value: v}) },
			onError:     func(err error) { emit(Event{Type: SignalError, Err: err}) },
			onComplete:  func() { emit(Event{Type: SignalComplete}) },
			onCancel:    func() { emit(Event{Type: SignalCancel}) },
			onFinally:   func(t SignalType) { emit(Event{Type: SignalFinally, Terminal: t}) },
		}
		peekOp(src, hooks)(s)
	}
}

// LogObserver writes every event except Finally to log at info level, errors
// at error level.
func LogObserver(log *logger.Logger) Observer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return ObserverFunc(func(ctx context.Context, e Event) {
		l := log.WithContext(logger.ContextWithSubscription(ctx, e.Subscription))
		fields := map[string]any{
			logger.FieldStage:  e.Stage,
			logger.FieldSignal: e.Type.String(),
		}
		switch e.Type {
		case SignalSubscribe:
			l.Info("onSubscribe()", fields)
		case SignalRequest:
			fields[logger.FieldRequest] = e.Requested
			l.Info(fmt.Sprintf("request(%s)", formatDemand(e.Requested)), fields)
		case SignalNext:
			fields[logger.FieldValue] = e.Value
			l.Info(fmt.Sprintf("onNext(%v)", e.Value), fields)
		case SignalComplete:
			l.Info("onComplete()", fields)
		case SignalError:
			l.Error(fmt.Sprintf("onError(%v)", e.Err), logger.MergeWithError(fields, e.Err))
		case SignalCancel:
			l.Info("cancel()", fields)
		}
	})
}

func formatDemand(n int64) string {
	if n == Unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", n)
}
