package service

import (
	"context"
	"errors"
	"time"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	obslogger "github.com/smallbiznis/autobill/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Service) logRunStart(ctx context.Context, report billingdomain.RunReport) {
	s.logger(ctx).Info("billing.run.start",
		zap.String("date", report.Date.Format(time.DateOnly)),
		zap.String("weekday", report.Date.Weekday().String()),
		zap.Bool("pending_day", report.PendingDay),
		zap.Bool("sweep_day", report.SweepDay),
	)
}

func (s *Service) logRunFinish(ctx context.Context, report billingdomain.RunReport) {
	errorCount := 0
	for _, batch := range report.Batches {
		errorCount += batch.Errors
	}
	fields := []zap.Field{
		zap.String("date", report.Date.Format(time.DateOnly)),
		zap.Int("batches", len(report.Batches)),
		zap.Int("swept", report.Swept),
		zap.Int("error_count", errorCount),
		zap.Int64("duration_ms", report.Duration.Milliseconds()),
	}
	for kind, count := range report.Outcomes() {
		fields = append(fields, zap.Int("outcome_"+kind.String(), count))
	}
	log := s.logger(ctx)
	if errorCount > 0 {
		log.Warn("billing.run.finish", fields...)
		return
	}
	log.Info("billing.run.finish", fields...)
}

func (s *Service) logBatchStart(ctx context.Context, status invoicedomain.InvoiceStatus, fetched int) {
	s.logger(ctx).Info("billing.batch.start",
		zap.String("status", string(status)),
		zap.Int("fetched", fetched),
	)
}

func (s *Service) logBatchFinish(ctx context.Context, report billingdomain.BatchReport) {
	s.logger(ctx).Info("billing.batch.finish",
		zap.String("status", string(report.Status)),
		zap.Int("fetched", report.Fetched),
		zap.Int("error_count", report.Errors),
		zap.Int64("duration_ms", report.Duration.Milliseconds()),
	)
}

func (s *Service) logBatchError(ctx context.Context, status invoicedomain.InvoiceStatus, err error) {
	s.logger(ctx).Error("billing.batch.failed",
		zap.String("status", string(status)),
		zap.Error(err),
	)
}

func (s *Service) logSweepError(ctx context.Context, status invoicedomain.InvoiceStatus, err error) {
	s.logger(ctx).Error("billing.sweep.failed",
		zap.String("status", string(status)),
		zap.Error(err),
	)
}

func (s *Service) logChargeRetry(ctx context.Context, invoice invoicedomain.Invoice, attempt int, delay time.Duration, err error) {
	s.logger(ctx).Warn("billing.charge.retry",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int("attempt", attempt),
		zap.Duration("backoff", delay),
		zap.Error(err),
	)
}

func (s *Service) logChargeCancelled(ctx context.Context, invoice invoicedomain.Invoice, attempt int, err error) {
	s.logger(ctx).Info("billing.charge.cancelled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int("attempt", attempt),
		zap.Bool("deadline", errors.Is(err, context.DeadlineExceeded)),
	)
}

func (s *Service) logChargeUnchanged(ctx context.Context, invoice invoicedomain.Invoice, outcome billingdomain.Outcome) {
	s.logger(ctx).Info("billing.charge.already_charged",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", string(invoice.Status)),
		zap.String("outcome", outcome.Kind.String()),
	)
}

func (s *Service) logChargeResult(ctx context.Context, invoice invoicedomain.Invoice, outcome billingdomain.Outcome, decision billingdomain.Decision, attempts int) {
	fields := []zap.Field{
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("customer_id", invoice.CustomerID.String()),
		zap.String("from", string(invoice.Status)),
		zap.String("to", string(decision.Status)),
		zap.String("outcome", outcome.Kind.String()),
		zap.Int("attempts", attempts),
	}
	if outcome.Kind == billingdomain.OutcomeAccepted {
		s.logger(ctx).Info("billing.charge.paid", fields...)
		return
	}
	if outcome.Err != nil {
		fields = append(fields, zap.Error(outcome.Err))
	}
	s.logger(ctx).Warn("billing.charge.failed", fields...)
}

func (s *Service) logPersistFailed(ctx context.Context, invoice invoicedomain.Invoice, status invoicedomain.InvoiceStatus, err error) {
	s.logger(ctx).Error("billing.invoice.update_failed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", string(status)),
		zap.Error(err),
	)
}
