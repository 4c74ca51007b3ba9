package payment

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/autobill/internal/observability/metrics"
	"github.com/smallbiznis/autobill/internal/payment/domain"
)

// instrumentedProvider records the latency and result of every charge call.
type instrumentedProvider struct {
	name    string
	next    domain.Provider
	metrics *obsmetrics.PaymentMetrics
	now     func() time.Time
}

func newInstrumentedProvider(name string, next domain.Provider, metrics *obsmetrics.PaymentMetrics) domain.Provider {
	if metrics == nil {
		return next
	}
	return &instrumentedProvider{name: name, next: next, metrics: metrics, now: time.Now}
}

func (p *instrumentedProvider) Charge(ctx context.Context, invoice invoicedomain.Invoice) (bool, error) {
	start := p.now()
	ok, err := p.next.Charge(ctx, invoice)
	p.metrics.RecordCharge(ctx, p.name, chargeResult(ok, err), p.now().Sub(start))
	return ok, err
}

func chargeResult(ok bool, err error) string {
	switch {
	case err == nil && ok:
		return "accepted"
	case err == nil:
		return "declined"
	case errors.Is(err, domain.ErrNetwork):
		return "network_error"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "customer_not_found"
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, domain.ErrInvoiceAlreadyCharged):
		return "already_charged"
	default:
		return "error"
	}
}
