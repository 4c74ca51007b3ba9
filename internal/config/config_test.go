package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_TYPE", "SQLite")
	t.Setenv("BILLING_CONCURRENCY", "8")
	t.Setenv("BILLING_RUN_LOCK_TTL", "30m")
	t.Setenv("SEED_DATA", "yes")
	t.Setenv("PAYMENT_PROVIDER", " Stripe ")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 8, cfg.BillingConcurrency)
	assert.Equal(t, 30*time.Minute, cfg.RunLockTTL)
	assert.True(t, cfg.SeedData)
	assert.Equal(t, "stripe", cfg.Payment.Provider)
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("BILLING_CONCURRENCY", "many")
	t.Setenv("BILLING_RUN_LOCK_TTL", "-5m")

	cfg := Load()

	assert.Equal(t, 0, cfg.BillingConcurrency)
	assert.Equal(t, 6*time.Hour, cfg.RunLockTTL)
}

func TestLoadAdminTriggerLimits(t *testing.T) {
	t.Setenv("ADMIN_TRIGGER_RATE", "1.5")
	t.Setenv("ADMIN_TRIGGER_BURST", "3")

	cfg := Load()

	assert.Equal(t, 1.5, cfg.AdminTriggerRate)
	assert.Equal(t, 3, cfg.AdminTriggerBurst)
}

func TestLoadLeavesSMTPHostEmptyWhenUnset(t *testing.T) {
	t.Setenv("SMTP_HOST", "")

	cfg := Load()
	assert.Empty(t, cfg.Email.SMTPHost)

	t.Setenv("SMTP_HOST", " mail.internal ")
	assert.Equal(t, "mail.internal", Load().Email.SMTPHost)
}
