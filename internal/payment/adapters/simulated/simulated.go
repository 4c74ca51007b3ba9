// Package simulated provides an in-process payment provider for local runs.
package simulated

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/autobill/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "simulated"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Provider, error) {
	if cfg.FailurePercent < 0 || cfg.FailurePercent > 100 {
		return nil, paymentdomain.ErrInvalidConfig
	}
	seed := uint64(time.Now().UnixNano())
	return newAdapter(cfg, rand.New(rand.NewPCG(seed, seed>>1))), nil
}

// Adapter accepts or declines charges at random. Customer lookups go
// through the customer service so missing customers and currency
// mismatches surface the same way a real provider reports them.
type Adapter struct {
	customers      customerdomain.Service
	failurePercent int

	mu  sync.Mutex
	rnd *rand.Rand
}

func newAdapter(cfg paymentdomain.AdapterConfig, rnd *rand.Rand) *Adapter {
	return &Adapter{
		customers:      cfg.Customers,
		failurePercent: cfg.FailurePercent,
		rnd:            rnd,
	}
}

func (a *Adapter) Charge(ctx context.Context, invoice invoicedomain.Invoice) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if a.customers != nil {
		customer, err := a.customers.Fetch(ctx, invoice.CustomerID)
		if err != nil {
			if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, customerdomain.ErrInvalidID) {
				return false, paymentdomain.ErrCustomerNotFound
			}
			return false, err
		}
		if !strings.EqualFold(customer.Currency, invoice.Currency) {
			return false, paymentdomain.ErrCurrencyMismatch
		}
	}

	a.mu.Lock()
	networkFailure := a.failurePercent > 0 && a.rnd.IntN(100) < a.failurePercent
	accepted := a.rnd.IntN(2) == 1
	a.mu.Unlock()

	if networkFailure {
		return false, paymentdomain.ErrNetwork
	}
	return accepted, nil
}
