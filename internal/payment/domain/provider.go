// Package domain defines the payment provider boundary used by the billing engine.
package domain

import (
	"context"
	"errors"

	customerdomain "github.com/smallbiznis/autobill/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
)

// Provider charges invoices against an external payment provider.
//
// Charge returns true when the charge was accepted and false when it was
// declined for insufficient funds. Classified failures are reported through
// the sentinel errors below; any other error is treated as unknown.
type Provider interface {
	Charge(ctx context.Context, invoice invoicedomain.Invoice) (bool, error)
}

// AdapterFactory builds a Provider for one provider name.
type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Provider, error)
}

type AdapterConfig struct {
	APIKey    string
	AccountID string
	BaseURL   string

	// FailurePercent injects network failures into simulated charges.
	FailurePercent int
	Customers      customerdomain.Service
}

var (
	ErrNetwork               = errors.New("payment_network_error")
	ErrCustomerNotFound      = errors.New("payment_customer_not_found")
	ErrCurrencyMismatch      = errors.New("payment_currency_mismatch")
	ErrInvoiceAlreadyCharged = errors.New("payment_invoice_already_charged")

	ErrProviderNotFound = errors.New("payment_provider_not_found")
	ErrInvalidConfig    = errors.New("payment_invalid_config")
)
