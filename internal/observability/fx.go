package observability

import (
	"github.com/smallbiznis/autobill/internal/observability/metrics"
	"github.com/smallbiznis/autobill/internal/observability/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewHTTPMetrics,
		metrics.NewPushgatewayPusher,
		metrics.NewMeterProvider,
		metrics.NewPaymentMetrics,
	),
	fx.Invoke(ensureTracingProvider),
	fx.Invoke(ensureBillingMetrics),
)

func ensureTracingProvider(_ trace.TracerProvider) {}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName:    cfg.ServiceName,
		Environment:    cfg.Environment,
		PushgatewayURL: cfg.PushgatewayURL,

		OTLPEnabled:      cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
	}
}

func ensureBillingMetrics(cfg metrics.Config) {
	metrics.BillingWithConfig(cfg)
}
