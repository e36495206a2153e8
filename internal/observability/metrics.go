package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Pingpayio/ping-checkout-sub000"

var (
	metricsOnce     sync.Once
	repositoryOps   metric.Int64Counter
	admissionDenies metric.Int64Counter
	providerCalls   metric.Int64Counter
)

func initMetrics() {
	meter := otel.GetMeterProvider().Meter(meterName)
	repositoryOps, _ = meter.Int64Counter("repository_operations_total",
		metric.WithDescription("Repository operations by entity, operation and outcome"))
	admissionDenies, _ = meter.Int64Counter("admission_rejections_total",
		metric.WithDescription("Requests rejected by the admission pipeline, by stage and code"))
	providerCalls, _ = meter.Int64Counter("provider_calls_total",
		metric.WithDescription("Swap provider calls by operation and outcome"))
}

// RecordRepositoryOperation counts one repository call. Failures to build
// the instruments degrade to no-ops rather than failing requests.
func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	if repositoryOps == nil {
		return
	}
	repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordAdmissionRejection counts one request turned away before its handler.
func RecordAdmissionRejection(ctx context.Context, stage, code string) {
	metricsOnce.Do(initMetrics)
	if admissionDenies == nil {
		return
	}
	admissionDenies.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("code", code),
	))
}

// RecordProviderCall counts one outbound call to the swap provider.
func RecordProviderCall(ctx context.Context, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	if providerCalls == nil {
		return
	}
	providerCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
