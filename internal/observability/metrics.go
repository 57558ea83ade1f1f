package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of every modelql instrument.
const MeterName = "modelql"

// GraphQLMetrics holds request, batching and schema build instruments.
type GraphQLMetrics struct {
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter

	batchQueries      metric.Int64Counter
	batchKeys         metric.Int64Histogram
	batchResultRows   metric.Int64Histogram
	batchCacheHits    metric.Int64Counter
	batchCacheMisses  metric.Int64Counter
	batchQueriesSaved metric.Int64Counter
	batchSkipped      metric.Int64Counter

	schemaBuilds        metric.Int64Counter
	schemaBuildDuration metric.Float64Histogram
	declarationWarnings metric.Int64Counter
}

// NewGraphQLMetrics creates instruments on the given meter.
func NewGraphQLMetrics(meter metric.Meter) (*GraphQLMetrics, error) {
	m := &GraphQLMetrics{}
	var err error

	if m.requestDuration, err = meter.Float64Histogram("graphql.request.duration",
		metric.WithDescription("Duration of GraphQL requests in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	if m.requestCounter, err = meter.Int64Counter("graphql.requests.total",
		metric.WithDescription("Total number of GraphQL requests")); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if m.errorCounter, err = meter.Int64Counter("graphql.errors.total",
		metric.WithDescription("Total number of GraphQL requests with errors")); err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	if m.activeRequests, err = meter.Int64UpDownCounter("graphql.requests.active",
		metric.WithDescription("Number of active GraphQL requests")); err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	if m.batchQueries, err = meter.Int64Counter("graphql.batch.queries",
		metric.WithDescription("Number of batched association queries issued")); err != nil {
		return nil, fmt.Errorf("failed to create batch queries counter: %w", err)
	}
	if m.batchKeys, err = meter.Int64Histogram("graphql.batch.keys",
		metric.WithDescription("Number of keys drained by one batch query")); err != nil {
		return nil, fmt.Errorf("failed to create batch keys histogram: %w", err)
	}
	if m.batchResultRows, err = meter.Int64Histogram("graphql.batch.result_rows",
		metric.WithDescription("Number of rows returned by a batch query")); err != nil {
		return nil, fmt.Errorf("failed to create batch result rows histogram: %w", err)
	}
	if m.batchCacheHits, err = meter.Int64Counter("graphql.batch.cache_hits",
		metric.WithDescription("Number of loads answered from the request cache")); err != nil {
		return nil, fmt.Errorf("failed to create batch cache hits counter: %w", err)
	}
	if m.batchCacheMisses, err = meter.Int64Counter("graphql.batch.cache_misses",
		metric.WithDescription("Number of loads queued for a batch query")); err != nil {
		return nil, fmt.Errorf("failed to create batch cache misses counter: %w", err)
	}
	if m.batchQueriesSaved, err = meter.Int64Counter("graphql.batch.queries_saved",
		metric.WithDescription("Number of queries saved by batching")); err != nil {
		return nil, fmt.Errorf("failed to create batch queries saved counter: %w", err)
	}
	if m.batchSkipped, err = meter.Int64Counter("graphql.batch.skipped",
		metric.WithDescription("Number of association loads that bypassed batching")); err != nil {
		return nil, fmt.Errorf("failed to create batch skipped counter: %w", err)
	}

	if m.schemaBuilds, err = meter.Int64Counter("schema.builds.total",
		metric.WithDescription("Number of schema builds")); err != nil {
		return nil, fmt.Errorf("failed to create schema build counter: %w", err)
	}
	if m.schemaBuildDuration, err = meter.Float64Histogram("schema.build.duration",
		metric.WithDescription("Duration of schema builds in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("failed to create schema build duration histogram: %w", err)
	}
	if m.declarationWarnings, err = meter.Int64Counter("schema.declaration_warnings.total",
		metric.WithDescription("Number of field declarations skipped with a warning")); err != nil {
		return nil, fmt.Errorf("failed to create declaration warnings counter: %w", err)
	}

	return m, nil
}

// InitMetrics creates the instruments on the global meter provider.
func InitMetrics(logger *slog.Logger) (*GraphQLMetrics, error) {
	metrics, err := NewGraphQLMetrics(otel.Meter(MeterName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GraphQL metrics: %w", err)
	}
	logger.Info("custom GraphQL metrics initialized")
	return metrics, nil
}

// RecordRequest records a GraphQL request with its duration and outcome
func (m *GraphQLMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	attrs := metric.WithAttributes(
		attribute.Bool("has_errors", hasErrors),
		attribute.String("operation_type", operationType),
	)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.requestCounter.Add(ctx, 1, attrs)
	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation_type", operationType)))
	}
}

// IncrementActiveRequests increments the active requests counter
func (m *GraphQLMetrics) IncrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests decrements the active requests counter
func (m *GraphQLMetrics) DecrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, -1)
}

// RecordBatch records one drained batch.
func (m *GraphQLMetrics) RecordBatch(ctx context.Context, model string, keys, rows int) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.batchQueries.Add(ctx, 1, attrs)
	m.batchKeys.Record(ctx, int64(keys), attrs)
	m.batchResultRows.Record(ctx, int64(rows), attrs)
	if keys > 1 {
		m.batchQueriesSaved.Add(ctx, int64(keys-1), attrs)
	}
}

func (m *GraphQLMetrics) RecordBatchCacheHit(ctx context.Context, model string) {
	m.batchCacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}

func (m *GraphQLMetrics) RecordBatchCacheMiss(ctx context.Context, model string) {
	m.batchCacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}

func (m *GraphQLMetrics) RecordBatchSkipped(ctx context.Context, model, reason string) {
	m.batchSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("reason", reason),
	))
}

// RecordSchemaBuild records one schema build.
func (m *GraphQLMetrics) RecordSchemaBuild(ctx context.Context, duration time.Duration, success bool) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.schemaBuilds.Add(ctx, 1, attrs)
	m.schemaBuildDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordDeclarationWarning counts a skipped field declaration.
func (m *GraphQLMetrics) RecordDeclarationWarning(ctx context.Context, model, reason string) {
	m.declarationWarnings.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("reason", reason),
	))
}

type graphQLMetricsContextKey struct{}

// ContextWithGraphQLMetrics stores GraphQL metrics in the provided context.
func ContextWithGraphQLMetrics(ctx context.Context, metrics *GraphQLMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, graphQLMetricsContextKey{}, metrics)
}

// GraphQLMetricsFromContext retrieves GraphQL metrics from the context.
func GraphQLMetricsFromContext(ctx context.Context) *GraphQLMetrics {
	if ctx == nil {
		return nil
	}
	metrics, _ := ctx.Value(graphQLMetricsContextKey{}).(*GraphQLMetrics)
	return metrics
}
