package payment

import (
	"fmt"

	"github.com/smallbiznis/autobill/internal/config"
	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
	obsmetrics "github.com/smallbiznis/autobill/internal/observability/metrics"
	"github.com/smallbiznis/autobill/internal/payment/adapters"
	"github.com/smallbiznis/autobill/internal/payment/adapters/simulated"
	"github.com/smallbiznis/autobill/internal/payment/adapters/stripe"
	"github.com/smallbiznis/autobill/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment",
	fx.Provide(NewRegistry),
	fx.Provide(NewProvider),
)

func NewRegistry() *adapters.Registry {
	return adapters.NewRegistry(
		stripe.NewFactory(),
		simulated.NewFactory(),
	)
}

type ProviderParams struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Registry  *adapters.Registry
	Customers customerdomain.Service
	Metrics   *obsmetrics.PaymentMetrics `optional:"true"`
}

// NewProvider builds the payment provider named by PAYMENT_PROVIDER.
func NewProvider(p ProviderParams) (domain.Provider, error) {
	name := p.Cfg.Payment.Provider
	if !p.Registry.ProviderExists(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrProviderNotFound, name)
	}
	provider, err := p.Registry.NewAdapter(name, domain.AdapterConfig{
		APIKey:         p.Cfg.Payment.APIKey,
		AccountID:      p.Cfg.Payment.AccountID,
		BaseURL:        p.Cfg.Payment.BaseURL,
		FailurePercent: p.Cfg.Payment.SimulatedFailPc,
		Customers:      p.Customers,
	})
	if err != nil {
		return nil, fmt.Errorf("payment provider %q: %w", name, err)
	}
	p.Log.Info("payment.provider.ready", zap.String("provider", name))
	return newInstrumentedProvider(name, provider, p.Metrics), nil
}
