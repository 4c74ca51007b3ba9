package service

import (
	"context"
	"testing"
	"time"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func everyStatus() *fakeInvoices {
	return newFakeInvoices(
		invoice(1, invoicedomain.InvoiceStatusPending),
		invoice(2, invoicedomain.InvoiceStatusPaid),
		invoice(3, invoicedomain.InvoiceStatusFailedInsufficientBalance),
		invoice(4, invoicedomain.InvoiceStatusFailedInvalidCustomer),
		invoice(5, invoicedomain.InvoiceStatusFailedInvalidCurrency),
		invoice(6, invoicedomain.InvoiceStatusFailedNetworkError),
		invoice(7, invoicedomain.InvoiceStatusFailedUnknownError),
		invoice(8, invoicedomain.InvoiceStatusPermanentFail),
	)
}

func TestRunForDateFirstOfMonthBillsPendingOnly(t *testing.T) {
	invoices := everyStatus()
	h := newHarness(t, invoices, newFakeProvider(accept))

	// 2024-03-01 is a Friday; the pending cycle replaces the weekday groups.
	report, err := h.svc.RunForDate(context.Background(), day(2024, time.March, 1))
	require.NoError(t, err)

	assert.True(t, report.PendingDay)
	assert.False(t, report.SweepDay)
	require.Len(t, report.Batches, 1)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, report.Batches[0].Status)
	assert.Equal(t, 1, h.provider.TotalCalls())
	assert.Equal(t, []statusUpdate{{ID: 1, Status: invoicedomain.InvoiceStatusPaid}}, invoices.Updates())
	assert.NotEmpty(t, report.RunID)
}

func TestRunForDateProcessesWeekdayGroupsInOrder(t *testing.T) {
	invoices := everyStatus()
	h := newHarness(t, invoices, newFakeProvider(accept))

	report, err := h.svc.RunForDate(context.Background(), day(2024, time.March, 8))
	require.NoError(t, err)

	require.Len(t, report.Batches, 2)
	assert.Equal(t, invoicedomain.InvoiceStatusFailedNetworkError, report.Batches[0].Status)
	assert.Equal(t, invoicedomain.InvoiceStatusFailedInsufficientBalance, report.Batches[1].Status)
	assert.Equal(t, []statusUpdate{
		{ID: 6, Status: invoicedomain.InvoiceStatusPaid},
		{ID: 3, Status: invoicedomain.InvoiceStatusPaid},
	}, invoices.Updates())
	assert.Equal(t, 0, h.provider.Calls(1))
}

func TestRunForDateLastDayOfMonthSweeps(t *testing.T) {
	invoices := everyStatus()
	h := newHarness(t, invoices, newFakeProvider(func(context.Context, invoicedomain.Invoice, int) (bool, error) {
		return false, nil
	}))

	// 2024-02-29 is a Thursday: network errors are retried, then everything still failing is swept.
	report, err := h.svc.RunForDate(context.Background(), day(2024, time.February, 29))
	require.NoError(t, err)

	assert.True(t, report.SweepDay)
	assert.Equal(t, 5, report.Swept)
	for id := int64(3); id <= 7; id++ {
		assert.Equal(t, invoicedomain.InvoiceStatusPermanentFail, invoices.Status(invoice(id, "").ID))
	}
	assert.Equal(t, invoicedomain.InvoiceStatusPending, invoices.Status(1))
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, invoices.Status(2))

	counts := h.notifier.Counts()
	assert.Equal(t, 5, counts.Permanent)
	assert.Equal(t, 1, counts.Failures)
}

func TestRunForDateConfinesBatchFetchFailure(t *testing.T) {
	invoices := everyStatus()
	invoices.fetchErr = assert.AnError
	h := newHarness(t, invoices, newFakeProvider(accept))

	report, err := h.svc.RunForDate(context.Background(), day(2024, time.March, 6))
	require.NoError(t, err)

	assert.Len(t, report.Batches, 4)
	assert.Equal(t, 0, h.provider.TotalCalls())
}

func TestRunForDateSkipsWhenLockHeld(t *testing.T) {
	locker := newFakeLocker()
	h := newHarness(t, everyStatus(), newFakeProvider(accept), withLocker(locker))

	_, _, err := locker.TryLock(context.Background(), "autobill:run:2024-03-08", time.Hour)
	require.NoError(t, err)

	_, err = h.svc.RunForDate(context.Background(), day(2024, time.March, 8))
	assert.ErrorIs(t, err, billingdomain.ErrRunInProgress)
	assert.Equal(t, 0, h.provider.TotalCalls())
}

func TestRunForDateReleasesLock(t *testing.T) {
	locker := newFakeLocker()
	h := newHarness(t, everyStatus(), newFakeProvider(accept), withLocker(locker))

	_, err := h.svc.RunForDate(context.Background(), day(2024, time.March, 8))
	require.NoError(t, err)
	assert.Equal(t, []string{"autobill:run:2024-03-08"}, locker.released)

	_, err = h.svc.RunForDate(context.Background(), day(2024, time.March, 8))
	require.NoError(t, err)
}

func TestRunLockRenewedUntilStopped(t *testing.T) {
	locker := newFakeLocker()
	h := newHarness(t, everyStatus(), newFakeProvider(accept), withLocker(locker), withLockTTL(30*time.Millisecond))

	token, ok, err := locker.TryLock(context.Background(), "autobill:run:2024-03-08", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	stop := h.svc.renewRunLock(context.Background(), "autobill:run:2024-03-08", token)
	require.Eventually(t, func() bool { return locker.Refreshes() >= 2 }, time.Second, 5*time.Millisecond)
	stop()

	after := locker.Refreshes()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, locker.Refreshes())
}

func TestRunLockRenewalStopsWhenLockLost(t *testing.T) {
	locker := newFakeLocker()
	h := newHarness(t, everyStatus(), newFakeProvider(accept), withLocker(locker), withLockTTL(30*time.Millisecond))

	stop := h.svc.renewRunLock(context.Background(), "autobill:run:2024-03-08", "stale-token")
	time.Sleep(50 * time.Millisecond)
	stop()

	assert.Equal(t, 0, locker.Refreshes())
}

func TestRunForDateCancelled(t *testing.T) {
	h := newHarness(t, everyStatus(), newFakeProvider(accept))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.RunForDate(ctx, day(2024, time.March, 8))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.provider.TotalCalls())
}
