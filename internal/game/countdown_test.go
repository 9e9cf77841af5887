package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCountdownFiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock)

	fired := make(chan struct{}, 4)
	var count int32
	c.Arm(clock.Now().Add(time.Second), func() {
		atomic.AddInt32(&count, 1)
		fired <- struct{}{}
	})

	clock.BlockUntil(1)
	clock.Advance(countdownTick)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire within one tick of crossing the threshold")
	}

	// further ticks must not re-fire
	clock.Advance(5 * countdownTick)
	select {
	case <-fired:
		t.Fatal("callback fired more than once")
	case <-time.After(100 * time.Millisecond):
	}

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("callback count = %d, want 1", got)
	}
}

func TestCountdownStopBeforeExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock)

	fired := make(chan struct{}, 1)
	c.Arm(clock.Now().Add(time.Minute), func() {
		fired <- struct{}{}
	})

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	c.Stop()
	clock.Advance(2 * time.Minute)

	select {
	case <-fired:
		t.Fatal("callback fired after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCountdownRearmCancelsPreviousCount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock)

	firstFired := make(chan struct{}, 1)
	c.Arm(clock.Now().Add(time.Second), func() {
		firstFired <- struct{}{}
	})
	clock.BlockUntil(1)

	secondFired := make(chan struct{}, 1)
	c.Arm(clock.Now().Add(time.Hour), func() {
		secondFired <- struct{}{}
	})

	// past the first deadline, well short of the second
	clock.Advance(time.Minute)

	select {
	case <-firstFired:
		t.Fatal("superseded callback fired")
	case <-secondFired:
		t.Fatal("second callback fired early")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCountdownRemaining(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock)

	c.Arm(clock.Now().Add(time.Minute), nil)
	if got := c.Remaining(); got != time.Minute {
		t.Fatalf("Remaining = %v, want %v", got, time.Minute)
	}
	if got := c.Display(); got != "01:00" {
		t.Fatalf("Display = %q, want %q", got, "01:00")
	}

	c.Stop()
	clock.Advance(2 * time.Minute)
	if got := c.Remaining(); got != 0 {
		t.Fatalf("Remaining after deadline = %v, want 0", got)
	}
}
