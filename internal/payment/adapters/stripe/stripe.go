package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/autobill/internal/payment/domain"
)

const defaultBaseURL = "https://api.stripe.com"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		apiKey:    apiKey,
		accountID: strings.TrimSpace(cfg.AccountID),
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 12 * time.Second},
	}, nil
}

// Adapter charges invoices by creating and confirming an off-session
// PaymentIntent. Customers are expected to exist in Stripe as "cus_<id>".
type Adapter struct {
	apiKey    string
	accountID string
	baseURL   string
	client    *http.Client
}

type stripePaymentIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type stripeErrorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Param       string `json:"param"`
		Message     string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) Charge(ctx context.Context, invoice invoicedomain.Invoice) (bool, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(invoice.Amount, 10))
	values.Set("currency", strings.ToLower(invoice.Currency))
	values.Set("customer", "cus_"+invoice.CustomerID.String())
	values.Set("confirm", "true")
	values.Set("off_session", "true")
	values.Set("payment_method_types[]", "card")
	values.Set("metadata[invoice_id]", invoice.ID.String())
	values.Set("metadata[customer_id]", invoice.CustomerID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/payment_intents", strings.NewReader(values.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", "invoice:"+invoice.ID.String())
	if a.accountID != "" {
		req.Header.Set("Stripe-Account", a.accountID)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", paymentdomain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return false, fmt.Errorf("%w: stripe status %d", paymentdomain.ErrNetwork, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return false, errors.New("stripe_request_failed")
		}
		return classifyError(stripeErr)
	}

	var intent stripePaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return false, err
	}
	if intent.ID == "" {
		return false, errors.New("stripe_response_invalid")
	}
	if resp.Header.Get("Idempotent-Replayed") == "true" && intent.Status == "succeeded" {
		return false, paymentdomain.ErrInvoiceAlreadyCharged
	}

	switch intent.Status {
	case "succeeded":
		return true, nil
	case "requires_payment_method":
		return false, nil
	default:
		return false, fmt.Errorf("stripe_unexpected_status: %s", intent.Status)
	}
}

func classifyError(resp stripeErrorResponse) (bool, error) {
	e := resp.Error
	switch {
	case e.Code == "card_declined" && e.DeclineCode == "insufficient_funds":
		return false, nil
	case e.DeclineCode == "currency_not_supported":
		return false, paymentdomain.ErrCurrencyMismatch
	case e.Code == "resource_missing" && e.Param == "customer":
		return false, paymentdomain.ErrCustomerNotFound
	case e.Type == "api_connection_error":
		return false, paymentdomain.ErrNetwork
	}
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = "stripe_request_failed"
	}
	return false, errors.New(message)
}
