package service

import (
	"context"
	"fmt"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"go.uber.org/zap"
)

// SweepPermanentFailures moves every invoice in status to PERMANENT_FAIL, one
// at a time, with one internal notification per moved invoice. It returns the
// number of invoices moved. A failed update is logged and skipped.
func (s *Service) SweepPermanentFailures(ctx context.Context, status invoicedomain.InvoiceStatus) (int, error) {
	if !s.schedule.IsPermanentFailable(status) {
		return 0, billingdomain.ErrStatusNotSweepable
	}

	invoices, err := s.invoices.FetchByStatus(ctx, status)
	if err != nil {
		return 0, fmt.Errorf("fetch %s invoices: %w", status, err)
	}

	swept := 0
	for _, invoice := range invoices {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		if err := s.invoices.UpdateStatus(ctx, invoice.ID, invoicedomain.InvoiceStatusPermanentFail); err != nil {
			s.logPersistFailed(ctx, invoice, invoicedomain.InvoiceStatusPermanentFail, err)
			continue
		}
		swept++
		s.metrics.IncPermanentFail(string(status))
		s.metrics.IncTransition(string(status), string(invoicedomain.InvoiceStatusPermanentFail))

		updated := invoice
		updated.Status = invoicedomain.InvoiceStatusPermanentFail
		s.internal.NotifyPermanentFail(context.WithoutCancel(ctx), updated)
	}

	s.logger(ctx).Info("billing.sweep.finish",
		zap.String("status", string(status)),
		zap.Int("fetched", len(invoices)),
		zap.Int("swept", swept),
	)
	return swept, nil
}
