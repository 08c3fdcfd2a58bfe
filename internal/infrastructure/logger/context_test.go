package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	log, _ := observed()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}

func TestL_AddsCorrelationFields(t *testing.T) {
	log, logs := observed()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithContext(ctx, log)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithOperator(ctx, "alice")

	L(ctx).Info("restocked")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "alice", fields["operator"])
	assert.Equal(t, traceID.String(), GetTraceID(ctx))
}

func TestEnrich_NoFields(t *testing.T) {
	log, _ := observed()
	assert.Same(t, log, Enrich(context.Background(), log))
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetOperator(context.Background()))
}
