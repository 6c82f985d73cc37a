// Package backoff implements capped exponential delays for retry loops.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the delay before the given attempt.
type Strategy interface {
	Backoff(attempt int) time.Duration
}

type Option func(*strategy)

// Exponential scale the delay exponentially with each attempt.
func Exponential(scale time.Duration) Option {
	return func(s *strategy) {
		s.scale = scale
	}
}

// Maximum caps the computed delay.
func Maximum(d time.Duration) Option {
	return func(s *strategy) {
		s.maximum = d
	}
}

// Jitter applies a random adjustment of +/- r to the computed delay.
func Jitter(r float64) Option {
	return func(s *strategy) {
		s.jitter = r
	}
}

func New(options ...Option) Strategy {
	s := strategy{
		scale:   time.Second,
		maximum: time.Hour,
	}

	for _, opt := range options {
		opt(&s)
	}

	return s
}

type strategy struct {
	scale   time.Duration
	maximum time.Duration
	jitter  float64
}

func (t strategy) Backoff(attempt int) time.Duration {
	// beyond 62 doublings any scale overflows a duration.
	if attempt < 0 || attempt > 62 {
		return t.clamp(t.maximum)
	}

	d := t.scale << uint(attempt)
	if d <= 0 || d > t.maximum {
		d = t.maximum
	}

	return t.clamp(d)
}

func (t strategy) clamp(d time.Duration) time.Duration {
	if t.jitter == 0 {
		return d
	}

	adjustment := 1 + (2*rand.Float64()-1)*t.jitter
	return time.Duration(float64(d) * adjustment)
}
