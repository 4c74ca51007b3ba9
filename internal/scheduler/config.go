package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/autobill/internal/config"
)

const DefaultSpec = "5 0 * * *"

// Config controls when the daily billing run fires.
type Config struct {
	Spec       string
	Location   *time.Location
	RunTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Spec:       DefaultSpec,
		Location:   time.UTC,
		RunTimeout: 12 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.Spec) == "" {
		c.Spec = defaults.Spec
	}
	if c.Location == nil {
		c.Location = defaults.Location
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{Spec: cfg.BillingCron}.withDefaults()
}
