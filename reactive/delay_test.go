package reactive_test

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/kbukum/reactor/reactive"
	"github.com/kbukum/reactor/reactive/reactivetest"
)

func TestDelayElements(t *testing.T) {
	ctx, clock := fakeTime()
	rec := reactivetest.NewRecorder[string](reactivetest.WithContext(ctx))
	reactive.Just("a", "b", "c").DelayElements(100 * time.Millisecond).Subscribe(rec)

	if len(rec.Values()) != 0 {
		t.Fatalf("expected nothing before the delay, got %v", rec.Values())
	}
	for i := 1; i <= 3; i++ {
		clock.Advance(100 * time.Millisecond)
		clock.BlockUntilReady()
		if !rec.AwaitCount(i, time.Second) {
			t.Fatalf("timed out waiting for value %d", i)
		}
	}
	if !rec.Await(time.Second) || !rec.Completed() {
		t.Fatal("expected completion")
	}
	if got := rec.Values(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("got %v", got)
	}
}

func TestDelayElements_DoesNotBlockSubscribe(t *testing.T) {
	start := time.Now()
	sub := reactive.Just(1).DelayElements(time.Hour).SubscribeFunc(nil, nil, nil)
	defer sub.Cancel()
	if time.Since(start) > time.Second {
		t.Error("expected subscribe to return immediately")
	}
}

func TestDelayElements_CancelReleasesTimer(t *testing.T) {
	ctx, clock := fakeTime()
	rec := reactivetest.NewRecorder[string](reactivetest.WithContext(ctx))
	reactive.Just("a").DelayElements(100 * time.Millisecond).Subscribe(rec)

	rec.Cancel()
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if len(rec.Values()) != 0 || rec.Terminated() {
		t.Errorf("expected no signals after cancel, got %v", rec.Signals())
	}
}

func TestDelayElements_ErrorIsImmediate(t *testing.T) {
	ctx, _ := fakeTime()
	rec := reactivetest.NewRecorder[string](reactivetest.WithContext(ctx))
	reactive.Error[string](errBoom).DelayElements(time.Hour).Subscribe(rec)
	if !rec.Await(time.Second) {
		t.Fatal("expected the failure without waiting for the delay")
	}
	if rec.Err() == nil {
		t.Error("expected an error")
	}
}

func TestMono_DelayElement(t *testing.T) {
	ctx, clock := fakeTime()
	rec := reactivetest.NewRecorder[string](reactivetest.WithContext(ctx))
	reactive.MonoJust("x").DelayElement(500 * time.Millisecond).Subscribe(rec)

	clock.Advance(499 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(5 * time.Millisecond)
	if len(rec.Values()) != 0 {
		t.Fatal("value emitted too early")
	}
	clock.Advance(time.Millisecond)
	clock.BlockUntilReady()
	if !rec.Await(time.Second) {
		t.Fatal("expected completion")
	}
	if got := rec.Values(); len(got) != 1 || got[0] != "x" {
		t.Errorf("got %v", got)
	}
}

func TestSerialScheduler_RunsInOrder(t *testing.T) {
	s := reactive.NewSerialScheduler(nil)
	defer s.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		s.Schedule(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	wg.Wait()
	for i := range got {
		if got[i] != i {
			t.Fatalf("task %d ran out of order: %v", i, got)
		}
	}
}

func TestSerialScheduler_CancelledTaskSkipped(t *testing.T) {
	clock := clockz.NewFakeClock()
	s := reactive.NewSerialScheduler(clock)
	defer s.Close()

	var ran atomic.Bool
	cancel := s.ScheduleAfter(time.Second, func() { ran.Store(true) })
	cancel()
	cancel()
	clock.Advance(2 * time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Error("expected the cancelled task not to run")
	}
}

func TestSubscribeOn(t *testing.T) {
	s := reactive.NewSerialScheduler(nil)
	defer s.Close()

	gate := make(chan struct{})
	s.Schedule(func() { <-gate })

	rec := reactivetest.NewRecorder[int]()
	reactive.Just(1, 2, 3).SubscribeOn(s).Subscribe(rec)
	if len(rec.Signals()) != 0 {
		t.Fatal("expected the subscription to wait for the scheduler")
	}
	close(gate)
	if !rec.Await(time.Second) {
		t.Fatal("expected completion")
	}
	if got := rec.Values(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v", got)
	}
}

func TestSchedulerFrom(t *testing.T) {
	if reactive.SchedulerFrom(context.Background()) != reactive.DefaultScheduler() {
		t.Error("expected the default scheduler")
	}
	s := reactive.NewParallelScheduler(clockz.NewFakeClock())
	if reactive.SchedulerFrom(reactive.WithScheduler(context.Background(), s)) != s {
		t.Error("expected the scheduler from context")
	}
}
