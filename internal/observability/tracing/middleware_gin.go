package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/autobill/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const adminRoutePrefix = "/rest/v1/admin/"

// GinMiddleware opens one server span per request. Spans on invoice,
// customer and admin routes carry the ids and statuses from the path.
func GinMiddleware() gin.HandlerFunc {
	return newGinMiddleware(otel.GetTracerProvider())
}

func newGinMiddleware(provider trace.TracerProvider) gin.HandlerFunc {
	tracer := provider.Tracer("autobill/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		method := strings.ToUpper(c.Request.Method)
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		span.SetAttributes(SafeAttributes(append(attrs, routeAttributes(c, route)...)...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

// routeAttributes maps path parameters to billing attributes.
func routeAttributes(c *gin.Context, route string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if op, ok := strings.CutPrefix(route, adminRoutePrefix); ok {
		op, _, _ = strings.Cut(op, "/")
		attrs = append(attrs, attribute.String("admin.operation", op))
		if date := strings.TrimSpace(c.Query("date")); date != "" {
			attrs = append(attrs, attribute.String("billing.date", date))
		}
	}
	if id := c.Param("id"); id != "" {
		key := "invoice_id"
		if strings.HasPrefix(route, "/rest/v1/customers/") {
			key = "customer_id"
		}
		attrs = append(attrs, attribute.String(key, id))
	}
	if status := c.Param("status"); status != "" {
		attrs = append(attrs, attribute.String("invoice.status", strings.ToUpper(status)))
	}
	return attrs
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
