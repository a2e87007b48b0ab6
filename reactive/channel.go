package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/kbukum/reactor/errors"
)

// FromChannel emits the values received from ch and completes when ch is
// closed. Values are received only while there is outstanding demand, so a
// slow subscriber leaves them in the channel. Each subscription runs its own
// receiving goroutine; several subscribers of one channel share its values.
func FromChannel[T any](ch <-chan T) *Flux[T] {
	return newFlux(func(s Subscriber[T]) {
		c := &channelSubscription[T]{
			actual: s,
			ch:     ch,
			wake:   make(chan struct{}, 1),
			done:   make(chan struct{}),
		}
		s.OnSubscribe(c)
		go c.run()
	})
}

type channelSubscription[T any] struct {
	actual    Subscriber[T]
	ch        <-chan T
	requested atomic.Int64
	invalid   atomic.Pointer[errors.AppError]
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (c *channelSubscription[T]) Request(n int64) {
	if n <= 0 {
		c.invalid.CompareAndSwap(nil, errors.InvalidRequest(n))
	} else {
		addCap(&c.requested, n)
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *channelSubscription[T]) Cancel() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *channelSubscription[T]) run() {
	for {
		if err := c.invalid.Load(); err != nil {
			c.Cancel()
			c.actual.OnError(err)
			return
		}
		if c.requested.Load() == 0 {
			select {
			case <-c.wake:
				continue
			case <-c.done:
				return
			}
		}
		select {
		case v, ok := <-c.ch:
			if !ok {
				c.Cancel()
				c.actual.OnComplete()
				return
			}
			select {
			case <-c.done:
				return
			default:
			}
			c.actual.OnNext(v)
			if c.requested.Load() != Unbounded {
				c.requested.Add(-1)
			}
		case <-c.done:
			return
		}
	}
}
