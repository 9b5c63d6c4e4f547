package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Uses the global tracer provider, so it does not run in parallel.
func TestStartSpanUnderRequestSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("civiz-api"))
	r.HandleFunc("/api/v1/visions/anonymous", func(w http.ResponseWriter, r *http.Request) {
		_, span := StartSpan(r.Context(), "imagegen.generate", attribute.String("category_id", "parks"))
		RecordError(span, errors.New("provider down"))
		span.End()
		w.WriteHeader(http.StatusCreated)
	})

	const traceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visions/anonymous", nil)
	req.Header.Set("traceparent", traceParent)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusCreated)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	inner, outer := spans[0], spans[1]
	if inner.Name != "imagegen.generate" {
		t.Errorf("inner span = %q, want imagegen.generate", inner.Name)
	}
	if inner.Parent.SpanID() != outer.SpanContext.SpanID() {
		t.Errorf("inner span parent = %s, want %s", inner.Parent.SpanID(), outer.SpanContext.SpanID())
	}
	if got := inner.SpanContext.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s, want the incoming traceparent's", got)
	}
	if inner.Status.Code != codes.Error {
		t.Errorf("inner status = %v, want Error", inner.Status.Code)
	}
}

func TestRecordErrorNil(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "ok")
	RecordError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Unset {
		t.Errorf("spans = %+v, want one span with unset status", spans)
	}
}
