package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsUnknownKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("invoice_id", "1"),
		attribute.String("customer_email", "a@b.c"),
		attribute.String("http.route", "/rest/health"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("invoice_id"), attrs[0].Key)
	assert.Equal(t, attribute.Key("http.route"), attrs[1].Key)
}

func TestSafeErrorTruncates(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.Equal(t, "first", SafeError(errors.New("first\nsecond")).Error())
	assert.Len(t, SafeError(errors.New(strings.Repeat("x", 1000))).Error(), 256)
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestNewProviderRejectsUnknownProtocol(t *testing.T) {
	_, err := NewProvider(nil, Config{Enabled: true, ExporterProtocol: "udp"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported OTLP protocol "udp"`)
}
