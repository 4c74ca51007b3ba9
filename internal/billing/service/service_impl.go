package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	"github.com/smallbiznis/autobill/internal/billing/retry"
	"github.com/smallbiznis/autobill/internal/billing/schedule"
	"github.com/smallbiznis/autobill/internal/clock"
	"github.com/smallbiznis/autobill/internal/config"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	obscontext "github.com/smallbiznis/autobill/internal/observability/context"
	obsmetrics "github.com/smallbiznis/autobill/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/autobill/internal/payment/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	runLockPrefix  = "autobill:run:"
	persistTimeout = 10 * time.Second
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Sleeper  clock.Sleeper
	Policy   retry.Policy
	Schedule *schedule.Schedule

	Invoices  invoicedomain.Service
	Provider  paymentdomain.Provider
	Customers billingdomain.CustomerNotifier
	Internal  billingdomain.InternalNotifier
	Locker    billingdomain.RunLocker `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	sleeper  clock.Sleeper
	policy   retry.Policy
	schedule *schedule.Schedule

	invoices  invoicedomain.Service
	provider  paymentdomain.Provider
	customers billingdomain.CustomerNotifier
	internal  billingdomain.InternalNotifier
	locker    billingdomain.RunLocker

	concurrency int
	lockTTL     time.Duration
	metrics     *obsmetrics.BillingMetrics
	tracer      trace.Tracer
}

func New(p Params) billingdomain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		log:         p.Log.Named("billing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		sleeper:     p.Sleeper,
		policy:      p.Policy,
		schedule:    p.Schedule,
		invoices:    p.Invoices,
		provider:    p.Provider,
		customers:   p.Customers,
		internal:    p.Internal,
		locker:      p.Locker,
		concurrency: p.Cfg.BillingConcurrency,
		lockTTL:     p.Cfg.RunLockTTL,
		metrics:     obsmetrics.Billing(),
		tracer:      otel.Tracer("autobill/billing"),
	}
}

// RunForDate processes the status groups scheduled for date, then runs the
// month-end sweep when date is the last day of its month. Per-invoice and
// per-group failures are logged and counted; they never fail the run.
func (s *Service) RunForDate(ctx context.Context, date time.Time) (billingdomain.RunReport, error) {
	report := billingdomain.RunReport{
		RunID:      s.genID.Generate().String(),
		Date:       date,
		PendingDay: s.schedule.ShouldBillPendingToday(date),
		SweepDay:   s.schedule.ShouldSweepPermanentFailuresToday(date),
	}
	ctx = obscontext.WithRunID(ctx, report.RunID)

	release, err := s.acquireRunLock(ctx, date)
	if err != nil {
		return report, err
	}
	defer release()

	ctx, span := s.tracer.Start(ctx, "billing.run", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.String("billing.date", date.Format(time.DateOnly)),
	))
	defer span.End()

	startedAt := s.clock.Now()
	s.logRunStart(ctx, report)

	for _, status := range s.groupsFor(date, report.PendingDay) {
		if ctx.Err() != nil {
			break
		}
		batch, err := s.ChargeAll(ctx, status)
		if err != nil {
			s.logBatchError(ctx, status, err)
		}
		report.Batches = append(report.Batches, batch)
	}

	if report.SweepDay {
		for _, status := range s.schedule.PermanentFailableStatuses() {
			if ctx.Err() != nil {
				break
			}
			swept, err := s.SweepPermanentFailures(ctx, status)
			report.Swept += swept
			if err != nil {
				s.logSweepError(ctx, status, err)
			}
		}
	}

	report.Duration = s.clock.Now().Sub(startedAt)
	s.metrics.ObserveRunDuration(report.Duration)
	s.logRunFinish(ctx, report)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "run cancelled")
		return report, err
	}
	return report, nil
}

func (s *Service) groupsFor(date time.Time, pendingDay bool) []invoicedomain.InvoiceStatus {
	if pendingDay {
		return []invoicedomain.InvoiceStatus{invoicedomain.InvoiceStatusPending}
	}
	return s.schedule.StatusesToRetry(date.Weekday())
}

func (s *Service) acquireRunLock(ctx context.Context, date time.Time) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := runLockPrefix + date.Format(time.DateOnly)
	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		s.metrics.IncRunSkipped()
		s.logger(ctx).Info("billing.run.skipped", zap.String("lock_key", key))
		return nil, billingdomain.ErrRunInProgress
	}
	stopRenewal := s.renewRunLock(ctx, key, token)
	return func() {
		stopRenewal()
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := s.locker.Release(releaseCtx, key, token); err != nil {
			s.logger(ctx).Warn("billing.run.lock_release_failed", zap.String("lock_key", key), zap.Error(err))
		}
	}, nil
}

// renewRunLock keeps the run lock alive every third of its TTL so runs that
// outlast the TTL stay exclusive. The returned func stops renewal and waits.
func (s *Service) renewRunLock(ctx context.Context, key, token string) func() {
	interval := s.lockTTL / 3
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			renewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
			renewed, err := s.locker.Refresh(renewCtx, key, token, s.lockTTL)
			cancel()
			switch {
			case err != nil:
				s.logger(ctx).Warn("billing.run.lock_refresh_failed", zap.String("lock_key", key), zap.Error(err))
			case !renewed:
				s.logger(ctx).Warn("billing.run.lock_lost", zap.String("lock_key", key))
				return
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

// ChargeOne runs the attempt loop for a single invoice, outside any schedule.
func (s *Service) ChargeOne(ctx context.Context, invoiceID snowflake.ID) (billingdomain.ChargeResult, error) {
	invoice, err := s.invoices.Fetch(ctx, invoiceID)
	if err != nil {
		return billingdomain.ChargeResult{InvoiceID: invoiceID}, err
	}
	if invoice.Status.Terminal() {
		return billingdomain.ChargeResult{
			InvoiceID: invoice.ID,
			From:      invoice.Status,
			Status:    invoice.Status,
		}, billingdomain.ErrStatusNotChargeable
	}
	result := s.chargeInvoice(ctx, invoice)
	return result, result.Err
}
