package email

import "context"

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data TemplateData) error
}

// TemplateData feeds the embedded notice templates.
type TemplateData struct {
	Subject      string
	CustomerName string
	InvoiceID    string
	Amount       string
	Currency     string
	Status       string
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data TemplateData) error {
	return nil
}
