package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestTimers_FiresAfterDelay(t *testing.T) {
	timers := New(zerolog.Nop())
	defer timers.Stop()

	var fired atomic.Int32
	timers.Schedule("pkg-1", 10*time.Millisecond, func() { fired.Add(1) })

	if timers.Len() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", timers.Len())
	}

	waitFor(t, time.Second, func() bool { return fired.Load() == 1 })

	if timers.Len() != 0 {
		t.Fatalf("fired timer must be removed, got %d pending", timers.Len())
	}
}

func TestTimers_CancelPreventsFiring(t *testing.T) {
	timers := New(zerolog.Nop())
	defer timers.Stop()

	var fired atomic.Int32
	timers.Schedule("pkg-1", 20*time.Millisecond, func() { fired.Add(1) })

	if !timers.Cancel("pkg-1") {
		t.Fatal("Cancel must report true for a pending timer")
	}
	if timers.Cancel("pkg-1") {
		t.Fatal("Cancel must report false for an absent timer")
	}

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled timer must not fire")
	}
}

func TestTimers_ScheduleReplacesExisting(t *testing.T) {
	timers := New(zerolog.Nop())
	defer timers.Stop()

	var first, second atomic.Int32
	timers.Schedule("pkg-1", 20*time.Millisecond, func() { first.Add(1) })
	timers.Schedule("pkg-1", 20*time.Millisecond, func() { second.Add(1) })

	if timers.Len() != 1 {
		t.Fatalf("replacement must not grow the registry, got %d", timers.Len())
	}

	waitFor(t, time.Second, func() bool { return second.Load() == 1 })
	if first.Load() != 0 {
		t.Fatal("replaced timer must not fire")
	}
}

func TestTimers_StopDropsPendingAndRejectsNew(t *testing.T) {
	timers := New(zerolog.Nop())

	var fired atomic.Int32
	timers.Schedule("pkg-1", 20*time.Millisecond, func() { fired.Add(1) })
	timers.Stop()

	timers.Schedule("pkg-2", time.Millisecond, func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("no timer may fire after Stop")
	}
	if timers.Len() != 0 {
		t.Fatalf("expected empty registry after Stop, got %d", timers.Len())
	}
}

func TestTimers_IndependentKeys(t *testing.T) {
	timers := New(zerolog.Nop())
	defer timers.Stop()

	var a, b atomic.Int32
	timers.Schedule("pkg-a", 10*time.Millisecond, func() { a.Add(1) })
	timers.Schedule("pkg-b", 10*time.Millisecond, func() { b.Add(1) })

	timers.Cancel("pkg-a")

	waitFor(t, time.Second, func() bool { return b.Load() == 1 })
	if a.Load() != 0 {
		t.Fatal("cancelling one key must not affect another")
	}
}
