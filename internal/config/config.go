package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string
	SeedData    bool

	OTLPEndpoint   string
	OtelEnabled    bool
	PushgatewayURL string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	DBPath     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunLockTTL    time.Duration

	// AdminTriggerRate (tokens per second) and AdminTriggerBurst bound admin run triggers per client.
	AdminTriggerRate  float64
	AdminTriggerBurst int

	Email   EmailConfig
	Slack   SlackConfig
	Payment PaymentConfig

	BillingCron        string
	BillingConcurrency int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type SlackConfig struct {
	WebhookURL string
	Channel    string
}

type PaymentConfig struct {
	Provider        string
	APIKey          string
	AccountID       string
	BaseURL         string
	SimulatedFailPc int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "autobill"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":7000"),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		SeedData:     getenvBool("SEED_DATA", false),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelEnabled:  getenvBool("OTEL_ENABLED", false),

		PushgatewayURL: strings.TrimSpace(getenv("PUSHGATEWAY_URL", "")),

		DBType:     strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "autobill"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),
		DBPath:     getenv("DATABASE_PATH", "autobill.db"),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		RunLockTTL:    getenvDuration("BILLING_RUN_LOCK_TTL", 6*time.Hour),

		AdminTriggerRate:  getenvFloat("ADMIN_TRIGGER_RATE", 0.2),
		AdminTriggerBurst: getenvInt("ADMIN_TRIGGER_BURST", 5),

		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 1025),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "billing@autobill.local"),
		},
		Slack: SlackConfig{
			WebhookURL: strings.TrimSpace(getenv("SLACK_WEBHOOK_URL", "")),
			Channel:    getenv("SLACK_CHANNEL", "#billing-alerts"),
		},
		Payment: PaymentConfig{
			Provider:        strings.ToLower(strings.TrimSpace(getenv("PAYMENT_PROVIDER", "simulated"))),
			APIKey:          strings.TrimSpace(getenv("PAYMENT_API_KEY", "")),
			AccountID:       strings.TrimSpace(getenv("PAYMENT_ACCOUNT_ID", "")),
			BaseURL:         strings.TrimSpace(getenv("PAYMENT_BASE_URL", "")),
			SimulatedFailPc: getenvInt("PAYMENT_SIMULATED_FAILURE_PERCENT", 0),
		},

		BillingCron:        getenv("BILLING_CRON", "5 0 * * *"),
		BillingConcurrency: getenvInt("BILLING_CONCURRENCY", 0),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
