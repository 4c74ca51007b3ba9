package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/smallbiznis/autobill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newCapturingSMTP(cfg Config) (*SMTPProvider, *capturedMail) {
	captured := &capturedMail{}
	p := NewSMTP(cfg)
	p.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.auth = a
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return nil
	}
	return p, captured
}

func TestSendTemplateRendersNotice(t *testing.T) {
	p, captured := newCapturingSMTP(Config{Host: "mail", Port: 1025, From: "billing@autobill.local"})

	err := p.SendTemplate(context.Background(), []string{"ada@example.com"}, "charge_success", TemplateData{
		CustomerName: "Ada",
		InvoiceID:    "42",
		Amount:       "10.50",
		Currency:     "EUR",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail:1025", captured.addr)
	assert.Nil(t, captured.auth)
	assert.Equal(t, []string{"ada@example.com"}, captured.to)
	assert.Contains(t, captured.msg, "Subject: Payment received\r\n")
	assert.Contains(t, captured.msg, "10.50 EUR")
	assert.Contains(t, captured.msg, "Hi Ada")
}

func TestSendTemplateEscapesHTML(t *testing.T) {
	p, captured := newCapturingSMTP(Config{Host: "mail", Port: 25})

	err := p.SendTemplate(context.Background(), []string{"x@example.com"}, "charge_failure", TemplateData{CustomerName: "<b>Eve</b>"})
	require.NoError(t, err)
	assert.Contains(t, captured.msg, "&lt;b&gt;Eve&lt;/b&gt;")
	assert.Contains(t, captured.msg, "Subject: We could not process your payment")
}

func TestSendRequiresRecipients(t *testing.T) {
	p, _ := newCapturingSMTP(Config{Host: "mail", Port: 25})
	assert.Error(t, p.Send(context.Background(), nil, "s", "b"))
}

func TestSendTemplateUnknown(t *testing.T) {
	p, _ := newCapturingSMTP(Config{Host: "mail", Port: 25})
	assert.Error(t, p.SendTemplate(context.Background(), []string{"x@example.com"}, "missing", TemplateData{}))
}

func TestNewFromConfigWithoutHostIsNoOp(t *testing.T) {
	assert.IsType(t, &NoOpProvider{}, NewFromConfig(config.Config{}))
	assert.IsType(t, &SMTPProvider{}, NewFromConfig(config.Config{Email: config.EmailConfig{SMTPHost: "localhost"}}))
}

func TestNewFromLoadedConfigWithoutHostIsNoOp(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	assert.IsType(t, &NoOpProvider{}, NewFromConfig(config.Load()))
}
