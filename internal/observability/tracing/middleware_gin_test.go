package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := gin.New()
	r.Use(newGinMiddleware(provider))
	r.POST("/rest/v1/admin/billInvoice/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	r.POST("/rest/v1/admin/autoBilling", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	r.GET("/rest/v1/invoices/status/:status", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/rest/v1/customers/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("db down\nstack"))
		c.Status(http.StatusInternalServerError)
	})
	return r, recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestGinMiddlewareTagsAdminInvoiceRoute(t *testing.T) {
	r, recorder := newTracedEngine(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/rest/v1/admin/billInvoice/42", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /rest/v1/admin/billInvoice/:id", spans[0].Name())
	attrs := spanAttributes(spans[0])
	assert.Equal(t, "billInvoice", attrs["admin.operation"].AsString())
	assert.Equal(t, "42", attrs["invoice_id"].AsString())
	assert.Equal(t, int64(http.StatusAccepted), attrs["http.status_code"].AsInt64())
}

func TestGinMiddlewareTagsBillingDate(t *testing.T) {
	r, recorder := newTracedEngine(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/rest/v1/admin/autoBilling?date=2026-10-01", nil))

	attrs := spanAttributes(recorder.Ended()[0])
	assert.Equal(t, "autoBilling", attrs["admin.operation"].AsString())
	assert.Equal(t, "2026-10-01", attrs["billing.date"].AsString())
}

func TestGinMiddlewareNormalizesStatusParam(t *testing.T) {
	r, recorder := newTracedEngine(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rest/v1/invoices/status/pending", nil))

	attrs := spanAttributes(recorder.Ended()[0])
	assert.Equal(t, "PENDING", attrs["invoice.status"].AsString())
	_, hasOperation := attrs["admin.operation"]
	assert.False(t, hasOperation)
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	r, recorder := newTracedEngine(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rest/v1/customers/7", nil))

	span := recorder.Ended()[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "7", spanAttributes(span)["customer_id"].AsString())
	require.Len(t, span.Events(), 1)
	for _, kv := range span.Events()[0].Attributes {
		if kv.Key == "exception.message" {
			assert.Equal(t, "db down", kv.Value.AsString())
		}
	}
}
