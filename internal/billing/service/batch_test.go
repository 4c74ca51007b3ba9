package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/autobill/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeAllEmptyGroup(t *testing.T) {
	invoices := newFakeInvoices(invoice(1, invoicedomain.InvoiceStatusPaid))
	h := newHarness(t, invoices, newFakeProvider(accept))

	report, err := h.svc.ChargeAll(context.Background(), invoicedomain.InvoiceStatusPending)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Fetched)
	assert.Equal(t, 0, h.provider.TotalCalls())
	assert.Empty(t, invoices.Updates())
}

func TestChargeAllRejectsTerminalStatuses(t *testing.T) {
	h := newHarness(t, newFakeInvoices(), newFakeProvider(accept))

	for _, status := range []invoicedomain.InvoiceStatus{invoicedomain.InvoiceStatusPaid, invoicedomain.InvoiceStatusPermanentFail, "LATE"} {
		_, err := h.svc.ChargeAll(context.Background(), status)
		assert.ErrorIs(t, err, billingdomain.ErrStatusNotChargeable)
	}
}

func TestChargeAllFetchFailure(t *testing.T) {
	invoices := newFakeInvoices()
	invoices.fetchErr = errors.New("db down")
	h := newHarness(t, invoices, newFakeProvider(accept))

	_, err := h.svc.ChargeAll(context.Background(), invoicedomain.InvoiceStatusPending)
	assert.ErrorContains(t, err, "db down")
}

func TestChargeAllRunsInvoicesConcurrentlyAndJoins(t *testing.T) {
	const n = 8
	all := make([]invoicedomain.Invoice, 0, n)
	for i := int64(1); i <= n; i++ {
		all = append(all, invoice(i, invoicedomain.InvoiceStatusPending))
	}
	invoices := newFakeInvoices(all...)

	var arrived sync.WaitGroup
	arrived.Add(n)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	var finished atomic.Int32
	h := newHarness(t, invoices, newFakeProvider(func(_ context.Context, inv invoicedomain.Invoice, _ int) (bool, error) {
		arrived.Done()
		select {
		case <-release:
		case <-time.After(5 * time.Second):
			return false, errors.New("batch did not run concurrently")
		}
		finished.Add(1)
		if inv.ID == 3 {
			return false, paymentdomain.ErrCurrencyMismatch
		}
		return true, nil
	}))

	report, err := h.svc.ChargeAll(context.Background(), invoicedomain.InvoiceStatusPending)
	require.NoError(t, err)

	assert.EqualValues(t, n, finished.Load(), "ChargeAll returned before every loop finished")
	assert.Equal(t, n-1, report.Outcomes[billingdomain.OutcomeAccepted])
	assert.Equal(t, 1, report.Outcomes[billingdomain.OutcomeCurrencyMismatch])
	for i := int64(1); i <= n; i++ {
		want := invoicedomain.InvoiceStatusPaid
		if i == 3 {
			want = invoicedomain.InvoiceStatusFailedInvalidCurrency
		}
		assert.Equal(t, want, invoices.Status(invoice(i, "").ID))
	}
	assert.Equal(t, notifierCounts{Successes: n - 1, Alerts: 1}, h.notifier.Counts())
}

func TestChargeAllRespectsConcurrencyLimit(t *testing.T) {
	const n = 10
	all := make([]invoicedomain.Invoice, 0, n)
	for i := int64(1); i <= n; i++ {
		all = append(all, invoice(i, invoicedomain.InvoiceStatusPending))
	}
	invoices := newFakeInvoices(all...)

	var inFlight, peak atomic.Int32
	h := newHarness(t, invoices, newFakeProvider(func(context.Context, invoicedomain.Invoice, int) (bool, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return true, nil
	}), withConcurrency(2))

	report, err := h.svc.ChargeAll(context.Background(), invoicedomain.InvoiceStatusPending)
	require.NoError(t, err)

	assert.Equal(t, n, report.Outcomes[billingdomain.OutcomeAccepted])
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestChargeAllOneSlowRetryDoesNotBlockOthers(t *testing.T) {
	invoices := newFakeInvoices(
		invoice(1, invoicedomain.InvoiceStatusFailedNetworkError),
		invoice(2, invoicedomain.InvoiceStatusFailedNetworkError),
	)
	h := newHarness(t, invoices, newFakeProvider(func(_ context.Context, inv invoicedomain.Invoice, _ int) (bool, error) {
		if inv.ID == 1 {
			return false, paymentdomain.ErrNetwork
		}
		return true, nil
	}))

	_, err := h.svc.ChargeAll(context.Background(), invoicedomain.InvoiceStatusFailedNetworkError)
	require.NoError(t, err)

	assert.Equal(t, 5, h.provider.Calls(1))
	assert.Equal(t, 1, h.provider.Calls(2))
	assert.Equal(t, invoicedomain.InvoiceStatusFailedNetworkError, invoices.Status(1))
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, invoices.Status(2))
}
