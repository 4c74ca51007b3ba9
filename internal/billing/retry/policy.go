// Package retry holds the backoff policy applied to transient charge failures.
package retry

import (
	"math"
	"time"

	"github.com/smallbiznis/autobill/internal/config"
)

// Policy is immutable once built and safe for concurrent use.
type Policy struct {
	maxRetries int
	base       time.Duration
	multiplier float64
	cap        time.Duration
}

func NewPolicy(cfg config.RetryConfig) Policy {
	p := Policy{
		maxRetries: cfg.MaxRetries,
		base:       cfg.BaseDelay,
		multiplier: cfg.Multiplier,
		cap:        cfg.MaxDelay,
	}
	if p.maxRetries < 0 {
		p.maxRetries = 0
	}
	if p.base <= 0 {
		p.base = time.Second
	}
	if p.multiplier < 1 {
		p.multiplier = 1
	}
	if p.cap < p.base {
		p.cap = p.base
	}
	return p
}

func DefaultPolicy() Policy {
	return NewPolicy(config.DefaultBillingConfig().Retry)
}

func (p Policy) MaxRetries() int {
	return p.maxRetries
}

// ShouldRetry reports whether attempt number n (0 is the initial call) is
// still within the retry budget.
func (p Policy) ShouldRetry(n int) bool {
	return n >= 0 && n <= p.maxRetries
}

// BackoffDelay returns min(cap, base * multiplier^n). Negative n is treated as 0.
func (p Policy) BackoffDelay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	delay := float64(p.base) * math.Pow(p.multiplier, float64(n))
	if math.IsInf(delay, 0) || math.IsNaN(delay) || delay >= float64(p.cap) {
		return p.cap
	}
	return time.Duration(delay)
}
