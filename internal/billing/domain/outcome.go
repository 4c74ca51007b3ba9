// Package domain defines the charge-attempt state machine and the billing
// engine's entry points.
package domain

import (
	"errors"
	"fmt"

	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/autobill/internal/payment/domain"
)

// OutcomeKind tags the result of a single provider call.
type OutcomeKind int

const (
	OutcomeAccepted OutcomeKind = iota + 1
	OutcomeDeclined
	OutcomeCustomerNotFound
	OutcomeCurrencyMismatch
	OutcomeAlreadyCharged
	OutcomeNetworkError
	OutcomeUnknownError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDeclined:
		return "declined"
	case OutcomeCustomerNotFound:
		return "customer_not_found"
	case OutcomeCurrencyMismatch:
		return "currency_mismatch"
	case OutcomeAlreadyCharged:
		return "already_charged"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeUnknownError:
		return "unknown_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is one classified provider result. Err is kept for logging only.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Classify folds a provider return value into exactly one Outcome.
func Classify(accepted bool, err error) Outcome {
	if err == nil {
		if accepted {
			return Outcome{Kind: OutcomeAccepted}
		}
		return Outcome{Kind: OutcomeDeclined}
	}
	switch {
	case errors.Is(err, paymentdomain.ErrNetwork):
		return Outcome{Kind: OutcomeNetworkError, Err: err}
	case errors.Is(err, paymentdomain.ErrCustomerNotFound):
		return Outcome{Kind: OutcomeCustomerNotFound, Err: err}
	case errors.Is(err, paymentdomain.ErrCurrencyMismatch):
		return Outcome{Kind: OutcomeCurrencyMismatch, Err: err}
	case errors.Is(err, paymentdomain.ErrInvoiceAlreadyCharged):
		return Outcome{Kind: OutcomeAlreadyCharged, Err: err}
	default:
		return Outcome{Kind: OutcomeUnknownError, Err: err}
	}
}

// Notify names the party told about a decision.
type Notify int

const (
	NotifyNone Notify = iota
	NotifyCustomerSuccess
	NotifyCustomerFailure
	NotifyInternal
)

// Decision is what the attempt loop does with an Outcome.
type Decision struct {
	// Status is the status to persist. Empty leaves the invoice unchanged.
	Status invoicedomain.InvoiceStatus
	Notify Notify
	Reason string
	// Retry asks the loop to back off and call the provider again. The loop
	// falls back to Exhausted once the retry budget is spent.
	Retry bool
}

// Exhausted is the decision applied when a retryable outcome runs out of budget.
var Exhausted = Decision{
	Status: invoicedomain.InvoiceStatusFailedNetworkError,
	Notify: NotifyInternal,
	Reason: "network error: retries exhausted",
}

// Decide maps an Outcome to its Decision.
func Decide(o Outcome) Decision {
	switch o.Kind {
	case OutcomeAccepted:
		return Decision{Status: invoicedomain.InvoiceStatusPaid, Notify: NotifyCustomerSuccess}
	case OutcomeDeclined:
		return Decision{Status: invoicedomain.InvoiceStatusFailedInsufficientBalance, Notify: NotifyCustomerFailure}
	case OutcomeCustomerNotFound:
		return Decision{Status: invoicedomain.InvoiceStatusFailedInvalidCustomer, Notify: NotifyInternal, Reason: "customer not found"}
	case OutcomeCurrencyMismatch:
		return Decision{Status: invoicedomain.InvoiceStatusFailedInvalidCurrency, Notify: NotifyInternal, Reason: "currency mismatch"}
	case OutcomeAlreadyCharged:
		return Decision{}
	case OutcomeNetworkError:
		return Decision{Retry: true}
	case OutcomeUnknownError:
		return Decision{Status: invoicedomain.InvoiceStatusFailedUnknownError, Notify: NotifyInternal, Reason: unknownReason(o.Err)}
	default:
		return Decision{Status: invoicedomain.InvoiceStatusFailedUnknownError, Notify: NotifyInternal, Reason: "unclassified outcome " + o.Kind.String()}
	}
}

func unknownReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	return "unknown error: " + err.Error()
}
