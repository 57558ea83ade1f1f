package middleware

import (
	"log/slog"
	"net/http"

	"modelql/internal/loader"
	"modelql/internal/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "modelql/graphql"

// GraphQLTracingMiddleware wraps GraphQL execution in a graphql.execute span.
// When the request carries an association loader, its batching counters are
// added to the span once execution finishes.
func GraphQLTracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, op := inspectOperation(r)
			if op == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := otel.Tracer(tracerName).Start(r.Context(), "graphql.execute",
				trace.WithAttributes(operationAttributes(op)...))
			defer span.End()

			if sc := span.SpanContext(); sc.IsValid() {
				ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithFields(
					slog.String("trace_id", sc.TraceID().String()),
					slog.String("span_id", sc.SpanID().String()),
				))
			}

			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)

			if l := loader.FromContext(r.Context()); l != nil && span.IsRecording() {
				span.SetAttributes(loaderAttributes(l.Stats())...)
			}
		})
	}
}

func operationAttributes(op *operation) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("graphql.operation.type", op.Type),
		attribute.Int("graphql.document.field_count", op.Fields),
		attribute.Int("graphql.document.depth", op.Depth),
		attribute.Int("graphql.document.variable_count", op.Variables),
	}
	if op.Name != "" {
		attrs = append(attrs, attribute.String("graphql.operation.name", op.Name))
	}
	return attrs
}

func loaderAttributes(stats loader.Stats) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int64("graphql.execution.batch_queries", stats.Queries),
		attribute.Int64("graphql.execution.cache_hits", stats.Hits),
		attribute.Int64("graphql.execution.cache_misses", stats.Misses),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		attrs = append(attrs, attribute.Float64("graphql.execution.cache_hit_ratio", float64(stats.Hits)/float64(total)))
	}
	return attrs
}
