package backoff

import "time"

// Chan creates a waiter that tracks the attempt count across Await calls.
func Chan() *Waiter {
	return &Waiter{}
}

type Waiter struct {
	attempt int
}

// Await returns a channel that fires once the strategy's delay for the
// current attempt elapses. each call advances the attempt counter.
func (t *Waiter) Await(s Strategy) <-chan time.Time {
	c := time.After(s.Backoff(t.attempt))
	t.attempt++
	return c
}

// Reset the attempt counter.
func (t *Waiter) Reset() {
	t.attempt = 0
}
