package service

import (
	"context"
	"fmt"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/autobill/internal/observability/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChargeAll charges every invoice currently in status. The fetch is a
// point-in-time snapshot; ChargeAll returns once every attempt loop has
// finished.
func (s *Service) ChargeAll(ctx context.Context, status invoicedomain.InvoiceStatus) (billingdomain.BatchReport, error) {
	report := billingdomain.BatchReport{
		Status:   status,
		Outcomes: map[billingdomain.OutcomeKind]int{},
	}
	if !status.Valid() || status.Terminal() {
		return report, billingdomain.ErrStatusNotChargeable
	}

	ctx, span := s.tracer.Start(ctx, "billing.charge_all", trace.WithAttributes(
		attribute.String("invoice.status", string(status)),
	))
	defer span.End()

	startedAt := s.clock.Now()
	invoices, err := s.invoices.FetchByStatus(ctx, status)
	if err != nil {
		report.Duration = s.clock.Now().Sub(startedAt)
		s.metrics.ObserveBatchDuration(obsmetrics.BatchStatusError, report.Duration)
		span.SetStatus(codes.Error, "fetch failed")
		return report, fmt.Errorf("fetch %s invoices: %w", status, err)
	}
	report.Fetched = len(invoices)
	span.SetAttributes(attribute.Int("billing.fetched", report.Fetched))
	s.logBatchStart(ctx, status, len(invoices))

	for _, result := range s.chargeBatch(ctx, invoices) {
		if result.Outcome != 0 {
			report.Outcomes[result.Outcome]++
		}
		if result.Err != nil {
			report.Errors++
		}
	}

	report.Duration = s.clock.Now().Sub(startedAt)
	s.metrics.ObserveBatchDuration(obsmetrics.BatchStatusOK, report.Duration)
	s.logBatchFinish(ctx, report)
	return report, nil
}

// chargeBatch runs one attempt loop per invoice and joins on all of them.
// Tasks never return errors, so the group never cancels siblings; a panic in
// one task is recorded as that invoice's result.
func (s *Service) chargeBatch(ctx context.Context, invoices []invoicedomain.Invoice) []billingdomain.ChargeResult {
	results := make([]billingdomain.ChargeResult, len(invoices))
	if len(invoices) == 0 {
		return results
	}

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, invoice := range invoices {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = billingdomain.ChargeResult{
						InvoiceID: invoice.ID,
						From:      invoice.Status,
						Status:    invoice.Status,
						Outcome:   billingdomain.OutcomeUnknownError,
						Err:       fmt.Errorf("charge task panic: %v", r),
					}
					s.logger(ctx).Error("billing.charge.task_panic",
						zap.String("invoice_id", invoice.ID.String()),
						zap.Any("panic", r),
					)
				}
			}()
			results[i] = s.chargeInvoice(ctx, invoice)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
