package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMeterProvider configures and registers the global OTLP meter provider.
// A disabled config yields a no-op provider.
func NewMeterProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.OTLPEnabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, strings.TrimSpace(cfg.ExporterEndpoint))
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

// PaymentMetrics exposes payment provider call instruments.
type PaymentMetrics struct {
	charges  metric.Int64Counter
	duration metric.Float64Histogram
}

func NewPaymentMetrics(cfg Config, provider metric.MeterProvider) (*PaymentMetrics, error) {
	meter := provider.Meter(labelOrDefault(cfg.ServiceName, "autobill"))

	charges, err := meter.Int64Counter("autobill_payment_charges_total",
		metric.WithDescription("Payment provider charge calls by provider and result"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("autobill_payment_charge_duration_ms",
		metric.WithDescription("Payment provider charge latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &PaymentMetrics{charges: charges, duration: duration}, nil
}

// RecordCharge records one provider call.
func (m *PaymentMetrics) RecordCharge(ctx context.Context, provider, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("result", strings.TrimSpace(result)),
	)...)
	m.charges.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"provider": {},
	"result":   {},
}

// FilterAttributes drops attribute keys that could explode series cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
