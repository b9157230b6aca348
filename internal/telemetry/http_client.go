package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewInstrumentedTransport wraps base (http.DefaultTransport when nil) so every
// outgoing request becomes a client span.
func NewInstrumentedTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
	)
}

// NewInstrumentedHTTPClient returns an http.Client using NewInstrumentedTransport.
func NewInstrumentedHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewInstrumentedTransport(nil),
	}
}

// TraceExternalCall opens a client span named "{service}.{operation}".
func TraceExternalCall(ctx context.Context, service, operation, resourceID string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("external-api").Start(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("external.service", service),
			attribute.String("external.operation", operation),
		),
	)
	if resourceID != "" {
		span.SetAttributes(attribute.String("external.resource_id", resourceID))
	}
	return ctx, span
}

// RecordExternalCallError marks span as failed. statusCode is optional.
func RecordExternalCallError(span trace.Span, err error, statusCode int) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if statusCode >= 500 || statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests {
			span.SetAttributes(attribute.Bool("external.error.retryable", true))
		}
	}
}
