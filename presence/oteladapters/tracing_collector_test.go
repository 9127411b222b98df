package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openshelf/presence-engine/presence/oteladapters"
)

func newCollectorWithExporter() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key string, value string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) && attr.Value.AsString() == value {
			return
		}
	}

	t.Errorf("span %s is missing attribute %s=%s", span.Name, key, value)
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	collector, exporter := newCollectorWithExporter()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "presence.scan_tag", map[string]string{
		"mode":   "automatic",
		"tag_id": "E200-1234",
	})
	collector.FinishSpan(spanCtx, "ok", map[string]string{"shelf_code": "A-12"})

	// assert
	assert.NotNil(t, ctx)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "presence.scan_tag", span.Name)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assertSpanHasAttribute(t, span, "mode", "automatic")
	assertSpanHasAttribute(t, span, "tag_id", "E200-1234")
	assertSpanHasAttribute(t, span, "shelf_code", "A-12")
}

func Test_TracingCollector_ErrorStatus(t *testing.T) {
	// arrange
	collector, exporter := newCollectorWithExporter()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "presence.log_entry", nil)
	collector.FinishSpan(spanCtx, "error", map[string]string{"error_type": "database_error"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "Operation failed", spans[0].Status.Description)
	assertSpanHasAttribute(t, spans[0], "error_type", "database_error")
}

func Test_TracingCollector_RejectedStatusIsNotAnError(t *testing.T) {
	// arrange - a confidence rejection is a domain outcome, not a failure
	collector, exporter := newCollectorWithExporter()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "presence.log_entry", nil)
	collector.FinishSpan(spanCtx, "rejected", map[string]string{"total_score": "35"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "total_score", "35")
}

func Test_TracingCollector_UnknownStatusBecomesAttribute(t *testing.T) {
	// arrange
	collector, exporter := newCollectorWithExporter()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "presence.scan_tag", nil)
	collector.FinishSpan(spanCtx, "suppressed", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "status", "suppressed")
}

func Test_SpanContext_DirectMutation(t *testing.T) {
	// arrange
	collector, exporter := newCollectorWithExporter()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "presence.scan_tag", nil)
	spanCtx.AddAttribute("book_id", "0198a8a0-0000-7000-8000-000000000001")
	spanCtx.SetStatus("ok")
	collector.FinishSpan(spanCtx, "ok", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "book_id", "0198a8a0-0000-7000-8000-000000000001")
}
