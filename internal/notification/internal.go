package notification

import (
	"context"
	"fmt"

	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"github.com/smallbiznis/autobill/internal/providers/slack"
	"go.uber.org/zap"
)

// InternalNotifier posts operator alerts to Slack.
type InternalNotifier struct {
	slack      slack.Provider
	channel    string
	dispatcher *Dispatcher
}

func NewInternalNotifier(provider slack.Provider, channel string, dispatcher *Dispatcher) *InternalNotifier {
	return &InternalNotifier{slack: provider, channel: channel, dispatcher: dispatcher}
}

func (n *InternalNotifier) NotifyChargeFailure(ctx context.Context, invoice invoicedomain.Invoice, reason string) {
	message := fmt.Sprintf(":warning: Charge failed for invoice %s (customer %s, %s %s): %s. Status is now %s.",
		invoice.ID, invoice.CustomerID, FormatAmount(invoice.Amount), invoice.Currency, reason, invoice.Status)
	n.post(ctx, "internal.charge_failure", invoice, message)
}

func (n *InternalNotifier) NotifyPermanentFail(ctx context.Context, invoice invoicedomain.Invoice) {
	message := fmt.Sprintf(":no_entry: Invoice %s (customer %s, %s %s) was marked %s.",
		invoice.ID, invoice.CustomerID, FormatAmount(invoice.Amount), invoice.Currency, invoicedomain.InvoiceStatusPermanentFail)
	n.post(ctx, "internal.permanent_fail", invoice, message)
}

func (n *InternalNotifier) post(ctx context.Context, event string, invoice invoicedomain.Invoice, message string) {
	n.dispatcher.Go(ctx, event, func(ctx context.Context) error {
		return n.slack.PostMessage(ctx, n.channel, message)
	}, zap.String("invoice_id", invoice.ID.String()))
}
