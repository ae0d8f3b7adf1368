package store

import "testing"

func TestCounterClampsAtZero(t *testing.T) {
	var c Counter

	c.Decrement()
	if got := c.Value(); got != 0 {
		t.Fatalf("expected 0 after decrementing empty counter, got %d", got)
	}

	c.Increment()
	c.Increment()
	c.Decrement()
	c.Decrement()
	c.Decrement()
	if got := c.Value(); got != 0 {
		t.Fatalf("expected clamp at 0, got %d", got)
	}
}

func TestCounterSetOverwrites(t *testing.T) {
	var c Counter

	c.Increment()
	c.Set(7)
	if got := c.Value(); got != 7 {
		t.Fatalf("expected 7 after Set, got %d", got)
	}

	c.Set(-3)
	if got := c.Value(); got != 0 {
		t.Fatalf("expected negative Set to clamp to 0, got %d", got)
	}

	c.Reset()
	if got := c.Value(); got != 0 {
		t.Fatalf("expected 0 after Reset, got %d", got)
	}
}

func TestCountersAreIndependent(t *testing.T) {
	var cs Counters

	cs.Notifications.Set(3)
	cs.Messages.Increment()

	if got := cs.Notifications.Value(); got != 3 {
		t.Fatalf("expected notification cell 3, got %d", got)
	}
	if got := cs.Messages.Value(); got != 1 {
		t.Fatalf("expected message cell 1, got %d", got)
	}

	cs.Messages.Reset()
	if got := cs.Notifications.Value(); got != 3 {
		t.Fatalf("resetting messages must not touch notifications, got %d", got)
	}
}
