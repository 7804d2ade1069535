package parser

import (
	"time"
)

// RateLimiter spaces out sequential operations by a fixed interval. The
// orchestrator uses one between episodes so the source site is not hammered.
type RateLimiter struct {
	ticker   *time.Ticker
	interval time.Duration
}

// NewRateLimiter creates a rate limiter ticking at the given interval.
//
//	limiter := parser.NewRateLimiter(2 * time.Second)
//	defer limiter.Stop()
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		ticker:   time.NewTicker(interval),
		interval: interval,
	}
}

// Wait blocks until the next tick. Call before each rate-limited operation.
func (rl *RateLimiter) Wait() {
	<-rl.ticker.C
}

// Stop releases the underlying ticker.
func (rl *RateLimiter) Stop() {
	rl.ticker.Stop()
}

// Interval returns the configured interval.
func (rl *RateLimiter) Interval() time.Duration {
	return rl.interval
}
