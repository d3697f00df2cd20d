package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	if got.Before(before) {
		t.Errorf("Now went backwards: %v < %v", got, before)
	}
	if c.Since(before) < 0 {
		t.Error("Since returned a negative duration")
	}
}

func TestMockClockNowAndSince(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now = %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Second)
	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since = %v, want 90s", got)
	}
}

func TestMockClockAfterFiresOnAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ch := c.After(time.Minute)

	select {
	case <-ch:
		t.Fatal("After fired before the clock advanced")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before the deadline")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case got := <-ch:
		want := time.Unix(0, 0).Add(time.Minute)
		if !got.Equal(want) {
			t.Errorf("After delivered %v, want %v", got, want)
		}
	default:
		t.Fatal("After did not fire at the deadline")
	}
}

func TestMockClockAfterFiresOnce(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ch := c.After(time.Second)

	c.Advance(time.Second)
	c.Advance(time.Second)

	<-ch
	select {
	case <-ch:
		t.Fatal("waiter fired twice")
	default:
	}
}

func TestMockClockMultipleWaiters(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	short := c.After(time.Second)
	long := c.After(time.Hour)

	c.Advance(2 * time.Second)

	select {
	case <-short:
	default:
		t.Fatal("short waiter did not fire")
	}
	select {
	case <-long:
		t.Fatal("long waiter fired early")
	default:
	}
}
