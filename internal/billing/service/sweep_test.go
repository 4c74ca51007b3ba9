package service

import (
	"context"
	"testing"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepPermanentFailures(t *testing.T) {
	invoices := newFakeInvoices(
		invoice(1, invoicedomain.InvoiceStatusFailedNetworkError),
		invoice(2, invoicedomain.InvoiceStatusFailedNetworkError),
		invoice(3, invoicedomain.InvoiceStatusFailedUnknownError),
	)
	h := newHarness(t, invoices, newFakeProvider(accept))

	swept, err := h.svc.SweepPermanentFailures(context.Background(), invoicedomain.InvoiceStatusFailedNetworkError)
	require.NoError(t, err)

	assert.Equal(t, 2, swept)
	assert.Equal(t, invoicedomain.InvoiceStatusPermanentFail, invoices.Status(1))
	assert.Equal(t, invoicedomain.InvoiceStatusPermanentFail, invoices.Status(2))
	assert.Equal(t, invoicedomain.InvoiceStatusFailedUnknownError, invoices.Status(3))
	assert.Equal(t, notifierCounts{Permanent: 2}, h.notifier.Counts())
	assert.Equal(t, 0, h.provider.TotalCalls())
}

func TestSweepRejectsNonFailureStatuses(t *testing.T) {
	h := newHarness(t, newFakeInvoices(), newFakeProvider(accept))

	for _, status := range []invoicedomain.InvoiceStatus{
		invoicedomain.InvoiceStatusPending,
		invoicedomain.InvoiceStatusPaid,
		invoicedomain.InvoiceStatusPermanentFail,
	} {
		_, err := h.svc.SweepPermanentFailures(context.Background(), status)
		assert.ErrorIs(t, err, billingdomain.ErrStatusNotSweepable)
	}
}

func TestSweepContinuesPastUpdateFailure(t *testing.T) {
	invoices := newFakeInvoices(
		invoice(1, invoicedomain.InvoiceStatusFailedInvalidCustomer),
		invoice(2, invoicedomain.InvoiceStatusFailedInvalidCustomer),
	)
	invoices.updateErr[1] = assert.AnError
	h := newHarness(t, invoices, newFakeProvider(accept))

	swept, err := h.svc.SweepPermanentFailures(context.Background(), invoicedomain.InvoiceStatusFailedInvalidCustomer)
	require.NoError(t, err)

	assert.Equal(t, 1, swept)
	assert.Equal(t, invoicedomain.InvoiceStatusPermanentFail, invoices.Status(2))
	assert.Equal(t, notifierCounts{Permanent: 1}, h.notifier.Counts())
}
