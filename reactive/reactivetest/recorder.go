// Package reactivetest provides subscribers and observers that record what a
// stream does, for tests and diagnostics.
package reactivetest

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/reactor/reactive"
)

const pollInterval = time.Millisecond

// Option configures a Recorder.
type Option func(*config)

type config struct {
	initial int64
	ctx     context.Context
}

// WithRequest sets the demand requested on subscribe. Zero requests nothing.
func WithRequest(n int64) Option {
	return func(c *config) { c.initial = n }
}

// WithContext sets the context the recorder hands to the stages above it.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// Recorder is a Subscriber that records every signal it receives.
//
// Recorder is safe for concurrent use: values may arrive on any goroutine
// while the test inspects it.
type Recorder[T any] struct {
	cfg config

	mu       sync.Mutex
	sub      reactive.Subscription
	values   []T
	signals  []reactive.SignalType
	err      error
	complete bool
	calls    int
}

// NewRecorder constructs a Recorder. By default it requests unbounded demand.
func NewRecorder[T any](opts ...Option) *Recorder[T] {
	c := config{initial: reactive.Unbounded, ctx: context.Background()}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return &Recorder[T]{cfg: c}
}

// Context implements the optional subscriber context hook.
func (r *Recorder[T]) Context() context.Context { return r.cfg.ctx }

func (r *Recorder[T]) OnSubscribe(s reactive.Subscription) {
	r.mu.Lock()
	r.sub = s
	r.signals = append(r.signals, reactive.SignalSubscribe)
	r.mu.Unlock()
	if r.cfg.initial > 0 {
		s.Request(r.cfg.initial)
	}
}

func (r *Recorder[T]) OnNext(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.signals = append(r.signals, reactive.SignalNext)
	r.mu.Unlock()
}

func (r *Recorder[T]) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.calls++
	r.signals = append(r.signals, reactive.SignalError)
	r.mu.Unlock()
}

func (r *Recorder[T]) OnComplete() {
	r.mu.Lock()
	r.complete = true
	r.calls++
	r.signals = append(r.signals, reactive.SignalComplete)
	r.mu.Unlock()
}

// Request asks the upstream for n more values.
func (r *Recorder[T]) Request(n int64) {
	if s := r.subscription(); s != nil {
		s.Request(n)
	}
}

// Cancel cancels the subscription.
func (r *Recorder[T]) Cancel() {
	if s := r.subscription(); s != nil {
		s.Cancel()
	}
}

func (r *Recorder[T]) subscription() reactive.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub
}

// Values returns a snapshot copy of the received values.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]T, len(r.values))
	copy(cp, r.values)
	return cp
}

// Signals returns a snapshot copy of the received signal types, in order.
func (r *Recorder[T]) Signals() []reactive.SignalType {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]reactive.SignalType, len(r.signals))
	copy(cp, r.signals)
	return cp
}

// Err returns the failure received, if any.
func (r *Recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Completed reports whether OnComplete was received.
func (r *Recorder[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.complete
}

// Terminated reports whether a terminal signal was received.
func (r *Recorder[T]) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls > 0
}

// TerminalCount returns how many terminal signals were received. A correct
// stream never delivers more than one.
func (r *Recorder[T]) TerminalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Await waits until a terminal signal arrives or timeout elapses.
func (r *Recorder[T]) Await(timeout time.Duration) bool {
	return r.waitFor(timeout, r.Terminated)
}

// AwaitCount waits until at least n values arrived or timeout elapses.
func (r *Recorder[T]) AwaitCount(n int, timeout time.Duration) bool {
	return r.waitFor(timeout, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.values) >= n
	})
}

func (r *Recorder[T]) waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

var _ reactive.Subscriber[int] = (*Recorder[int])(nil)
