package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "github.com/Ramsey-B/clover/pkg/context"
)

var tracer trace.Tracer

// SetTracer installs the tracer used by StartSpan. Init calls this once
// at boot; tests can install a recording tracer directly.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan opens a span for one operation. With no tracer configured
// the context passes through untouched, so repositories and the engine
// can span unconditionally. The committee ID is stamped on every span
// when the request context carries one.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := tracer.Start(ctx, name)
	if tenantID := appctx.GetTenantID(ctx); tenantID != "" {
		span.SetAttributes(attribute.String("tenant.id", tenantID))
	}
	return ctx, span
}

// GetTraceID returns the active trace ID, or "" when the request is not
// being traced. The error envelope includes it so a 500 can be matched
// to its trace.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
