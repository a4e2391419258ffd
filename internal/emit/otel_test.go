package emit

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracerProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return tp, recorder
}

func TestOTelEmitter_Emit_CreatesSpanWithAttributes(t *testing.T) {
	tp, recorder := newTestTracerProvider()
	emitter := NewOTelEmitter(tp.Tracer("tasklisthub-test"))

	emitter.Emit(Event{
		UserID:    "user-1",
		SessionID: "session-1",
		Msg:       "session_joined",
		Meta:      map[string]interface{}{"reason": "handshake"},
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "session_joined" {
		t.Fatalf("expected span name session_joined, got %s", spans[0].Name())
	}
}

func TestOTelEmitter_Emit_SetsErrorStatusOnErrorMeta(t *testing.T) {
	tp, recorder := newTestTracerProvider()
	emitter := NewOTelEmitter(tp.Tracer("tasklisthub-test"))

	emitter.Emit(Event{
		UserID: "user-1",
		Msg:    "storage_error",
		Meta:   map[string]interface{}{"error": "append failed"},
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code.String() != "Error" {
		t.Fatalf("expected error status, got %v", spans[0].Status())
	}
}

func TestOTelEmitter_EmitBatch_CreatesSpanPerEvent(t *testing.T) {
	tp, recorder := newTestTracerProvider()
	emitter := NewOTelEmitter(tp.Tracer("tasklisthub-test"))

	err := emitter.EmitBatch(context.Background(), []Event{
		{UserID: "user-1", Msg: "a"},
		{UserID: "user-1", Msg: "b"},
	})
	if err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if len(recorder.Ended()) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(recorder.Ended()))
	}
}
