package notification

import (
	"context"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	"github.com/smallbiznis/autobill/internal/config"
	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
	"github.com/smallbiznis/autobill/internal/providers/email"
	"github.com/smallbiznis/autobill/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(newDispatcher),
	fx.Provide(provideCustomerNotifier),
	fx.Provide(provideInternalNotifier),
)

func newDispatcher(lc fx.Lifecycle, log *zap.Logger) *Dispatcher {
	d := NewDispatcher(log)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.Close(ctx)
		},
	})
	return d
}

func provideCustomerNotifier(customers customerdomain.Service, provider email.Provider, d *Dispatcher) billingdomain.CustomerNotifier {
	return NewCustomerNotifier(customers, provider, d)
}

func provideInternalNotifier(cfg config.Config, provider slack.Provider, d *Dispatcher) billingdomain.InternalNotifier {
	return NewInternalNotifier(provider, cfg.Slack.Channel, d)
}
