package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/autobill/internal/config"
)

const keyAdminTrigger = "autobill:admin:trigger:"

// AdminTriggerLimiter throttles admin endpoints that start billing work. A
// nil limiter allows everything.
type AdminTriggerLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewAdminTriggerLimiter(cfg config.Config, bucket *TokenBucket) *AdminTriggerLimiter {
	if bucket == nil || cfg.AdminTriggerRate <= 0 || cfg.AdminTriggerBurst <= 0 {
		return nil
	}
	return &AdminTriggerLimiter{
		bucket: bucket,
		rate:   cfg.AdminTriggerRate,
		burst:  cfg.AdminTriggerBurst,
	}
}

func (l *AdminTriggerLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow spends one token for client. On limiter errors the request is allowed.
func (l *AdminTriggerLimiter) Allow(ctx context.Context, client string) (bool, time.Duration, error) {
	if !l.Enabled() {
		return true, 0, nil
	}
	client = strings.TrimSpace(client)
	if client == "" {
		client = "unknown"
	}
	result, err := l.bucket.Allow(ctx, keyAdminTrigger+client, l.rate, l.burst)
	if err != nil {
		return true, 0, err
	}
	return result.Allowed, result.RetryAfter, nil
}
