package service

import (
	"context"
	"fmt"

	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// chargeInvoice runs the attempt loop for one invoice. It never panics and
// never returns an error to the batch: every outcome ends in a ChargeResult.
// A cancelled ctx stops the loop before the next provider call or during
// backoff and leaves the invoice status untouched.
func (s *Service) chargeInvoice(ctx context.Context, invoice invoicedomain.Invoice) billingdomain.ChargeResult {
	ctx, span := s.tracer.Start(ctx, "billing.charge_invoice", trace.WithAttributes(
		attribute.String("invoice_id", invoice.ID.String()),
		attribute.String("invoice.status", string(invoice.Status)),
	))
	defer span.End()

	result := billingdomain.ChargeResult{
		InvoiceID: invoice.ID,
		From:      invoice.Status,
		Status:    invoice.Status,
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			s.logChargeCancelled(ctx, invoice, attempt, err)
			return result
		}

		result.Attempts++
		s.metrics.IncChargeAttempt()
		outcome := billingdomain.Classify(s.safeCharge(ctx, invoice))
		result.Outcome = outcome.Kind

		if outcome.Err != nil && ctx.Err() != nil {
			result.Err = ctx.Err()
			s.logChargeCancelled(ctx, invoice, attempt, ctx.Err())
			return result
		}

		decision := billingdomain.Decide(outcome)
		if decision.Retry {
			if s.policy.ShouldRetry(attempt + 1) {
				delay := s.policy.BackoffDelay(attempt)
				s.logChargeRetry(ctx, invoice, attempt, delay, outcome.Err)
				if err := s.sleeper.Sleep(ctx, delay); err != nil {
					result.Err = err
					s.logChargeCancelled(ctx, invoice, attempt+1, err)
					return result
				}
				continue
			}
			decision = billingdomain.Exhausted
		}

		s.apply(ctx, invoice, &result, outcome, decision)
		span.SetAttributes(
			attribute.String("billing.outcome", outcome.Kind.String()),
			attribute.Int("billing.attempts", result.Attempts),
		)
		if result.Err != nil {
			span.SetStatus(codes.Error, "status update failed")
		}
		return result
	}
}

// apply persists the decided status, then notifies. Notification happens only
// after the status write succeeded. The write runs detached from ctx so a
// shutdown cannot interrupt it once the provider has answered.
func (s *Service) apply(ctx context.Context, invoice invoicedomain.Invoice, result *billingdomain.ChargeResult, outcome billingdomain.Outcome, decision billingdomain.Decision) {
	s.metrics.IncChargeOutcome(outcome.Kind.String())

	if decision.Status == "" {
		s.logChargeUnchanged(ctx, invoice, outcome)
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.invoices.UpdateStatus(persistCtx, invoice.ID, decision.Status); err != nil {
		result.Err = fmt.Errorf("update invoice %s status to %s: %w", invoice.ID, decision.Status, err)
		s.logPersistFailed(ctx, invoice, decision.Status, err)
		return
	}
	result.Status = decision.Status
	s.metrics.IncTransition(string(invoice.Status), string(decision.Status))
	s.logChargeResult(ctx, invoice, outcome, decision, result.Attempts)

	updated := invoice
	updated.Status = decision.Status
	s.notify(persistCtx, updated, decision)
}

func (s *Service) notify(ctx context.Context, invoice invoicedomain.Invoice, decision billingdomain.Decision) {
	switch decision.Notify {
	case billingdomain.NotifyCustomerSuccess:
		s.customers.NotifySuccess(ctx, invoice)
	case billingdomain.NotifyCustomerFailure:
		s.customers.NotifyFailure(ctx, invoice)
	case billingdomain.NotifyInternal:
		s.internal.NotifyChargeFailure(ctx, invoice, decision.Reason)
	case billingdomain.NotifyNone:
	}
}

// safeCharge turns a provider panic into an unclassified error.
func (s *Service) safeCharge(ctx context.Context, invoice invoicedomain.Invoice) (accepted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			accepted = false
			err = fmt.Errorf("payment provider panic: %v", r)
			s.logger(ctx).Error("billing.charge.provider_panic",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Any("panic", r),
			)
		}
	}()
	return s.provider.Charge(ctx, invoice)
}
