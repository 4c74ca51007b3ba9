// Package domain contains persistence models for invoicing.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPending                   InvoiceStatus = "PENDING"
	InvoiceStatusPaid                      InvoiceStatus = "PAID"
	InvoiceStatusFailedInsufficientBalance InvoiceStatus = "FAILED_INSUFFICIENT_BALANCE"
	InvoiceStatusFailedInvalidCustomer     InvoiceStatus = "FAILED_INVALID_CUSTOMER"
	InvoiceStatusFailedInvalidCurrency     InvoiceStatus = "FAILED_INVALID_CURRENCY"
	InvoiceStatusFailedNetworkError        InvoiceStatus = "FAILED_NETWORK_ERROR"
	InvoiceStatusFailedUnknownError        InvoiceStatus = "FAILED_UNKNOWN_ERROR"
	InvoiceStatusPermanentFail             InvoiceStatus = "PERMANENT_FAIL"
)

var allStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusPaid,
	InvoiceStatusFailedInsufficientBalance,
	InvoiceStatusFailedInvalidCustomer,
	InvoiceStatusFailedInvalidCurrency,
	InvoiceStatusFailedNetworkError,
	InvoiceStatusFailedUnknownError,
	InvoiceStatusPermanentFail,
}

// Statuses returns every invoice status in declaration order.
func Statuses() []InvoiceStatus {
	out := make([]InvoiceStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus resolves a case-insensitive status name.
func ParseStatus(raw string) (InvoiceStatus, error) {
	value := InvoiceStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !value.Valid() {
		return "", ErrInvalidStatus
	}
	return value, nil
}

func (s InvoiceStatus) Valid() bool {
	for _, status := range allStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Terminal reports whether no automated charge attempt may follow.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusPermanentFail
}

// Failed reports whether s is one of the classified, re-attemptable failure statuses.
func (s InvoiceStatus) Failed() bool {
	return s.Valid() && !s.Terminal() && s != InvoiceStatusPending
}

// Money is an amount in minor currency units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Invoice is a billable charge owned by a customer.
type Invoice struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	Amount     int64         `gorm:"not null" json:"amount"`
	Currency   string        `gorm:"type:text;not null" json:"currency"`
	Status     InvoiceStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

func (i Invoice) Money() Money {
	return Money{Amount: i.Amount, Currency: i.Currency}
}
