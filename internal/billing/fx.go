package billing

import (
	"github.com/smallbiznis/autobill/internal/billing/domain"
	"github.com/smallbiznis/autobill/internal/billing/retry"
	"github.com/smallbiznis/autobill/internal/billing/schedule"
	"github.com/smallbiznis/autobill/internal/billing/service"
	"github.com/smallbiznis/autobill/internal/config"
	"github.com/smallbiznis/autobill/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(providePolicy),
	fx.Provide(provideSchedule),
	fx.Provide(provideRunLocker),
	fx.Provide(service.New),
)

func providePolicy(cfg config.BillingConfig) retry.Policy {
	return retry.NewPolicy(cfg.Retry)
}

func provideSchedule(cfg config.BillingConfig) (*schedule.Schedule, error) {
	return schedule.New(cfg.Schedule)
}

// provideRunLocker exposes the Redis locker when one is configured.
func provideRunLocker(locker *ratelimit.Locker) domain.RunLocker {
	if locker == nil {
		return nil
	}
	return locker
}
