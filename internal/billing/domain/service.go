package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
)

// Service is the billing engine. Every method is an independent entry
// point for the cron trigger and the admin API.
type Service interface {
	RunForDate(ctx context.Context, date time.Time) (RunReport, error)
	ChargeAll(ctx context.Context, status invoicedomain.InvoiceStatus) (BatchReport, error)
	ChargeOne(ctx context.Context, invoiceID snowflake.ID) (ChargeResult, error)
	SweepPermanentFailures(ctx context.Context, status invoicedomain.InvoiceStatus) (int, error)
}

// CustomerNotifier tells customers about charge results. Calls are fire-and-forget.
type CustomerNotifier interface {
	NotifySuccess(ctx context.Context, invoice invoicedomain.Invoice)
	NotifyFailure(ctx context.Context, invoice invoicedomain.Invoice)
}

// InternalNotifier alerts operators. Calls are fire-and-forget.
type InternalNotifier interface {
	NotifyChargeFailure(ctx context.Context, invoice invoicedomain.Invoice, reason string)
	NotifyPermanentFail(ctx context.Context, invoice invoicedomain.Invoice)
}

// RunLocker guards RunForDate against concurrent runs for the same key.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

var (
	ErrRunInProgress       = errors.New("billing_run_in_progress")
	ErrStatusNotChargeable = errors.New("billing_status_not_chargeable")
	ErrStatusNotSweepable  = errors.New("billing_status_not_sweepable")
)

// ChargeResult is the final state of one attempt loop.
type ChargeResult struct {
	InvoiceID snowflake.ID
	From      invoicedomain.InvoiceStatus
	// Status is the persisted status, or From when nothing was written.
	Status   invoicedomain.InvoiceStatus
	Outcome  OutcomeKind
	Attempts int
	Err      error
}

// BatchReport summarizes one ChargeAll call.
type BatchReport struct {
	Status   invoicedomain.InvoiceStatus
	Fetched  int
	Outcomes map[OutcomeKind]int
	Errors   int
	Duration time.Duration
}

// RunReport summarizes one RunForDate call.
type RunReport struct {
	RunID      string
	Date       time.Time
	PendingDay bool
	SweepDay   bool
	Batches    []BatchReport
	Swept      int
	Duration   time.Duration
}

func (r RunReport) Outcomes() map[OutcomeKind]int {
	out := map[OutcomeKind]int{}
	for _, batch := range r.Batches {
		for kind, count := range batch.Outcomes {
			out[kind] += count
		}
	}
	return out
}
