package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

// fakeTimers captures scheduled callbacks instead of arming real timers.
func fakeTimers(t *testing.T) *[]func() {
	t.Helper()
	orig := afterFunc
	t.Cleanup(func() { afterFunc = orig })

	var callbacks []func()
	afterFunc = func(_ time.Duration, f func()) *time.Timer {
		callbacks = append(callbacks, f)
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		return timer
	}
	return &callbacks
}

func TestDebouncerIgnoresStaleTimerCallback(t *testing.T) {
	callbacks := fakeTimers(t)

	var called atomic.Int32
	d := New(time.Second, func() {
		called.Add(1)
	})

	d.Trigger()
	d.Trigger()

	if len(*callbacks) != 2 {
		t.Fatalf("expected 2 scheduled callbacks, got %d", len(*callbacks))
	}

	(*callbacks)[0]()
	(*callbacks)[1]()

	if got := called.Load(); got != 1 {
		t.Fatalf("expected only latest callback to run, got %d calls", got)
	}
	if d.Pending() {
		t.Fatal("expected nothing pending after the callback ran")
	}
}

func TestDebouncerStopIgnoresPendingTimerCallback(t *testing.T) {
	callbacks := fakeTimers(t)

	var called atomic.Int32
	d := New(time.Second, func() {
		called.Add(1)
	})

	d.Trigger()
	d.Stop()

	if len(*callbacks) != 1 {
		t.Fatalf("expected a scheduled callback")
	}
	(*callbacks)[0]()

	if got := called.Load(); got != 0 {
		t.Fatalf("expected callback to be ignored after stop, got %d calls", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	callbacks := fakeTimers(t)

	var called atomic.Int32
	d := New(time.Second, func() {
		called.Add(1)
	})

	d.Flush()
	if got := called.Load(); got != 0 {
		t.Fatalf("flush with nothing pending ran the callback")
	}

	d.Trigger()
	if !d.Pending() {
		t.Fatal("expected a pending call")
	}
	d.Flush()
	if got := called.Load(); got != 1 {
		t.Fatalf("expected flush to run the callback, got %d calls", got)
	}

	// The timer of the flushed trigger must not run it again.
	(*callbacks)[0]()
	if got := called.Load(); got != 1 {
		t.Fatalf("expected one call, got %d", got)
	}
}

func TestDebouncerTriggerOnce(t *testing.T) {
	var count int32
	done := make(chan struct{})
	d := New(10*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
		close(done)
	})
	d.Trigger()
	d.Trigger()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debouncer did not fire")
	}
	if atomic.LoadInt32(&count) != 1 {
		t.Fatalf("expected one invocation, got %d", count)
	}
}

func TestDebouncerStop(t *testing.T) {
	var count int32
	d := New(20*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})
	d.Trigger()
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt32(&count) != 0 {
		t.Fatalf("expected no invocations after stop, got %d", count)
	}
}
