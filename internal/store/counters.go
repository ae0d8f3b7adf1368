package store

import "sync"

// Counter is a single unread tally. It is never derived from any cache or
// list length; callers pick the cell they mean and mutate it explicitly.
type Counter struct {
	mu sync.Mutex
	n  int
}

// Set overwrites the counter with a server-reported value.
func (c *Counter) Set(n int) {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	c.n = n
	c.mu.Unlock()
}

func (c *Counter) Increment() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

// Decrement lowers the tally by one, clamped at zero.
func (c *Counter) Decrement() {
	c.mu.Lock()
	if c.n > 0 {
		c.n--
	}
	c.mu.Unlock()
}

func (c *Counter) Reset() {
	c.mu.Lock()
	c.n = 0
	c.mu.Unlock()
}

func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Counters holds the two independent unread cells of a session.
type Counters struct {
	Notifications Counter
	Messages      Counter
}
