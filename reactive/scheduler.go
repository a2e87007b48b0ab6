package reactive

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// CancelFunc cancels scheduled work. It is safe to call more than once.
type CancelFunc func()

// Scheduler runs tasks off the caller's goroutine. Time-based operators use
// the scheduler found in the subscription context.
type Scheduler interface {
	// Schedule runs task as soon as possible.
	Schedule(task func()) CancelFunc
	// ScheduleAfter runs task once d has elapsed on the scheduler's clock.
	ScheduleAfter(d time.Duration, task func()) CancelFunc
	// Now reports the scheduler's current time.
	Now() time.Time
}

var defaultScheduler = NewParallelScheduler(clockz.RealClock)

// DefaultScheduler returns the shared real-time scheduler.
func DefaultScheduler() Scheduler { return defaultScheduler }

// ParallelScheduler runs every task on its own goroutine.
type ParallelScheduler struct {
	clock clockz.Clock
}

// NewParallelScheduler creates a scheduler driven by clock. Pass a
// clockz.FakeClock for deterministic tests.
func NewParallelScheduler(clock clockz.Clock) *ParallelScheduler {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &ParallelScheduler{clock: clock}
}

func (s *ParallelScheduler) Now() time.Time { return s.clock.Now() }

func (s *ParallelScheduler) Schedule(task func()) CancelFunc {
	var cancelled atomic.Bool
	go func() {
		if !cancelled.Load() {
			task()
		}
	}()
	return func() { cancelled.Store(true) }
}

func (s *ParallelScheduler) ScheduleAfter(d time.Duration, task func()) CancelFunc {
	return afterTimer(s.clock, d, task)
}

// afterTimer arms a timer on the calling goroutine so that a fake clock sees
// it before the call returns.
func afterTimer(clock clockz.Clock, d time.Duration, task func()) CancelFunc {
	timer := clock.NewTimer(d)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		select {
		case <-timer.C():
			task()
		case <-stop:
			timer.Stop()
		}
	}()
	return func() { once.Do(func() { close(stop) }) }
}

// SerialScheduler runs all tasks one after the other on a single worker
// goroutine. Stages whose functions are not safe for concurrent use can be
// serialized by running the pipeline on it.
type SerialScheduler struct {
	clock clockz.Clock

	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewSerialScheduler starts a worker goroutine. Close stops it.
func NewSerialScheduler(clock clockz.Clock) *SerialScheduler {
	if clock == nil {
		clock = clockz.RealClock
	}
	s := &SerialScheduler{
		clock: clock,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *SerialScheduler) Now() time.Time { return s.clock.Now() }

func (s *SerialScheduler) Schedule(task func()) CancelFunc {
	var cancelled atomic.Bool
	s.enqueue(func() {
		if !cancelled.Load() {
			task()
		}
	})
	return func() { cancelled.Store(true) }
}

func (s *SerialScheduler) ScheduleAfter(d time.Duration, task func()) CancelFunc {
	var cancelled atomic.Bool
	stopTimer := afterTimer(s.clock, d, func() {
		s.enqueue(func() {
			if !cancelled.Load() {
				task()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		stopTimer()
	}
}

// Close stops the worker after the queued tasks ran. Later tasks are dropped.
func (s *SerialScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.signal()
	<-s.done
}

func (s *SerialScheduler) enqueue(task func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	s.signal()
}

func (s *SerialScheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *SerialScheduler) run() {
	defer close(s.done)
	for range s.wake {
		for {
			s.mu.Lock()
			if len(s.tasks) == 0 {
				closed := s.closed
				s.mu.Unlock()
				if closed {
					return
				}
				break
			}
			task := s.tasks[0]
			s.tasks[0] = nil
			s.tasks = s.tasks[1:]
			s.mu.Unlock()
			task()
		}
	}
}
