package notification

import (
	"context"
	"fmt"
	"strings"

	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"github.com/smallbiznis/autobill/internal/providers/email"
	"go.uber.org/zap"
)

const (
	templateChargeSuccess = "charge_success"
	templateChargeFailure = "charge_failure"
)

// CustomerNotifier emails the invoice owner about a charge result.
type CustomerNotifier struct {
	customers  customerdomain.Service
	email      email.Provider
	dispatcher *Dispatcher
}

func NewCustomerNotifier(customers customerdomain.Service, provider email.Provider, dispatcher *Dispatcher) *CustomerNotifier {
	return &CustomerNotifier{customers: customers, email: provider, dispatcher: dispatcher}
}

func (n *CustomerNotifier) NotifySuccess(ctx context.Context, invoice invoicedomain.Invoice) {
	n.send(ctx, invoice, templateChargeSuccess)
}

func (n *CustomerNotifier) NotifyFailure(ctx context.Context, invoice invoicedomain.Invoice) {
	n.send(ctx, invoice, templateChargeFailure)
}

func (n *CustomerNotifier) send(ctx context.Context, invoice invoicedomain.Invoice, template string) {
	n.dispatcher.Go(ctx, "customer."+template, func(ctx context.Context) error {
		customer, err := n.customers.Fetch(ctx, invoice.CustomerID)
		if err != nil {
			return fmt.Errorf("fetch customer %s: %w", invoice.CustomerID, err)
		}
		if strings.TrimSpace(customer.Email) == "" {
			return fmt.Errorf("customer %s has no email", customer.ID)
		}
		return n.email.SendTemplate(ctx, []string{customer.Email}, template, email.TemplateData{
			CustomerName: customer.Name,
			InvoiceID:    invoice.ID.String(),
			Amount:       FormatAmount(invoice.Amount),
			Currency:     invoice.Currency,
			Status:       string(invoice.Status),
		})
	},
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("customer_id", invoice.CustomerID.String()),
	)
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
