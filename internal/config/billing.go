package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BillingConfig is the charging policy: retry/backoff parameters and the
// weekday retry schedule. It is loaded once at startup and never mutated.
type BillingConfig struct {
	Retry    RetryConfig    `mapstructure:"retry"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type RetryConfig struct {
	MaxRetries int           `mapstructure:"maxRetries"`
	BaseDelay  time.Duration `mapstructure:"baseDelay"`
	Multiplier float64       `mapstructure:"multiplier"`
	MaxDelay   time.Duration `mapstructure:"maxDelay"`
}

type ScheduleConfig struct {
	// Weekdays maps a lower-case weekday name to the statuses retried that day, in order.
	Weekdays              map[string][]string `mapstructure:"weekdays"`
	PermanentFailStatuses []string            `mapstructure:"permanentFailStatuses"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Retry: RetryConfig{
			MaxRetries: 4,
			BaseDelay:  time.Second,
			Multiplier: 2,
			MaxDelay:   time.Minute,
		},
		Schedule: ScheduleConfig{
			Weekdays: map[string][]string{
				"monday":  {"FAILED_NETWORK_ERROR"},
				"tuesday": {"FAILED_NETWORK_ERROR"},
				"wednesday": {
					"FAILED_NETWORK_ERROR",
					"FAILED_INVALID_CURRENCY",
					"FAILED_INVALID_CUSTOMER",
					"FAILED_UNKNOWN_ERROR",
				},
				"thursday": {"FAILED_NETWORK_ERROR"},
				"friday":   {"FAILED_NETWORK_ERROR", "FAILED_INSUFFICIENT_BALANCE"},
				"saturday": {"FAILED_NETWORK_ERROR"},
				"sunday":   {"FAILED_NETWORK_ERROR"},
			},
			PermanentFailStatuses: []string{
				"FAILED_INSUFFICIENT_BALANCE",
				"FAILED_INVALID_CUSTOMER",
				"FAILED_INVALID_CURRENCY",
				"FAILED_NETWORK_ERROR",
				"FAILED_UNKNOWN_ERROR",
			},
		},
	}
}

// LoadBillingConfig reads billing.yml from the usual config paths. A missing
// file yields the defaults; keys present in the file override them.
func LoadBillingConfig() (BillingConfig, error) {
	v := viper.New()
	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/autobill")
	v.AddConfigPath(".")
	v.SetEnvPrefix("AUTOBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return loadBillingConfig(v)
}

func loadBillingConfig(v *viper.Viper) (BillingConfig, error) {
	cfg := DefaultBillingConfig()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return BillingConfig{}, fmt.Errorf("read billing config: %w", err)
		}
		return cfg, validateBillingConfig(cfg)
	}
	if v.IsSet("billing.schedule.permanentFailStatuses") {
		cfg.Schedule.PermanentFailStatuses = nil
	}
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, fmt.Errorf("decode billing config: %w", err)
	}
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

var weekdayNames = map[string]struct{}{
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.Retry.MaxRetries < 0 {
		return errors.New("billing.retry.maxRetries cannot be negative")
	}
	if cfg.Retry.BaseDelay <= 0 {
		return errors.New("billing.retry.baseDelay must be positive")
	}
	if cfg.Retry.Multiplier < 1 {
		return errors.New("billing.retry.multiplier must be at least 1")
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		return errors.New("billing.retry.maxDelay must not be below baseDelay")
	}
	for day := range cfg.Schedule.Weekdays {
		if _, ok := weekdayNames[strings.ToLower(day)]; !ok {
			return fmt.Errorf("billing.schedule.weekdays: unknown weekday %q", day)
		}
	}
	if len(cfg.Schedule.PermanentFailStatuses) == 0 {
		return errors.New("billing.schedule.permanentFailStatuses cannot be empty")
	}
	return nil
}
