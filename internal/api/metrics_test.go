package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"daily-app/internal/domain"
)

func TestRequestMetricsLogProducesObservabilityEvent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetFormatter(&log.JSONFormatter{})

	tp, exporter, restore := setupTestTracer(t)
	defer restore()

	metrics, _ := newRequestMetrics(context.Background(), logger, "/daily/tasks")
	metrics.start = metrics.start.Add(-50 * time.Millisecond)
	metrics.ObserveAuth(10 * time.Millisecond)
	metrics.ObserveStore(15 * time.Millisecond)
	metrics.SetTasksReturned(3)

	metrics.Log(http.StatusOK, nil)

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected log entry")
	}
	if entry.Message != observabilityEvent {
		t.Fatalf("unexpected message: %s", entry.Message)
	}
	if entry.Data["event.name"] != requestEventName || entry.Data["event.domain"] != requestEventDomain {
		t.Fatalf("unexpected event identity: %v/%v", entry.Data["event.name"], entry.Data["event.domain"])
	}
	attrs, ok := entry.Data["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes not logged as map: %#v", entry.Data["attributes"])
	}
	if attrs["http.route"] != "/daily/tasks" {
		t.Fatalf("unexpected route attribute: %#v", attrs["http.route"])
	}
	if attrs[attrPrefix+"tasks_returned"] != 3 {
		t.Fatalf("unexpected tasks returned: %#v", attrs[attrPrefix+"tasks_returned"])
	}
	if total, _ := attrs[attrPrefix+"total_ms"].(float64); total < 50 {
		t.Fatalf("expected total duration of at least 50ms, got %#v", attrs[attrPrefix+"total_ms"])
	}
	if entry.Data["severity_text"] != "INFO" || entry.Data["severity_number"] != 9 {
		t.Fatalf("unexpected severity: %v/%v", entry.Data["severity_text"], entry.Data["severity_number"])
	}
	if traceID, ok := entry.Data["trace_id"].(string); !ok || traceID == "" {
		t.Fatalf("expected trace_id to be recorded, got %#v", entry.Data["trace_id"])
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != requestSpanName {
		t.Fatalf("unexpected span name: %s", span.Name)
	}
	spanAttrs := attributesToMap(span.Attributes)
	if code, ok := spanAttrs["http.status_code"].(int64); !ok || code != int64(http.StatusOK) {
		t.Fatalf("unexpected http.status_code on span: %#v", spanAttrs["http.status_code"])
	}
	if span.Status.Code != codes.Ok {
		t.Fatalf("expected span status Ok, got %v", span.Status.Code)
	}
	event := findEvent(span.Events, observabilityEvent)
	if event.Name == "" {
		t.Fatalf("expected observability.event span event, got %#v", span.Events)
	}
	if attributesToMap(event.Attributes)["severity_text"] != "INFO" {
		t.Fatalf("unexpected span event severity")
	}
}

func TestRequestMetricsLogWithErrorSetsSpanStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tp, exporter, restore := setupTestTracer(t)
	defer restore()

	metrics, _ := newRequestMetrics(context.Background(), logger, "/daily/save")
	metrics.SetErrorStage("storage")
	boom := errors.New("storage failure")
	metrics.Log(http.StatusInternalServerError, boom)

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}
	if hook.LastEntry().Level != log.ErrorLevel {
		t.Fatalf("expected error level entry, got %v", hook.LastEntry().Level)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description == "" {
		t.Fatalf("expected error status with description, got %+v", spans[0].Status)
	}
	attrs := attributesToMap(findEvent(spans[0].Events, observabilityEvent).Attributes)
	if attrs["severity_text"] != "ERROR" {
		t.Fatalf("unexpected severity_text for error: %#v", attrs["severity_text"])
	}
	if attrs[attrPrefix+"error_stage"] != "storage" {
		t.Fatalf("expected error stage attribute propagated, got %#v", attrs[attrPrefix+"error_stage"])
	}
	if attrs["error.message"] != boom.Error() {
		t.Fatalf("expected error.message attribute, got %#v", attrs["error.message"])
	}
}

func TestRequestMetricsMiddlewareRecordsRoute(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tp, exporter, restore := setupTestTracer(t)
	defer restore()

	e := echo.New()
	store := &mockStore{completeFn: func(string) error { return domain.ErrTaskNotFound }}
	Register(e, store, mockAuth{}, nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/daily/complete/99", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer a.b.c")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	_ = tp.ForceFlush(context.Background())

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel {
		t.Fatalf("expected a warn-level observability entry, got %#v", entry)
	}
	attrs := entry.Data["attributes"].(map[string]any)
	if attrs["http.route"] != "/daily/complete/:id" {
		t.Fatalf("expected route template, got %#v", attrs["http.route"])
	}
	if attrs["http.status_code"] != http.StatusNotFound {
		t.Fatalf("expected status 404, got %#v", attrs["http.status_code"])
	}
	if attrs[attrPrefix+"error_stage"] != "not_found" {
		t.Fatalf("expected not_found stage, got %#v", attrs[attrPrefix+"error_stage"])
	}
	if len(exporter.GetSpans()) != 1 {
		t.Fatalf("expected one span per request, got %d", len(exporter.GetSpans()))
	}
}

func TestSeverityForStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		err        error
		wantText   string
		wantNumber int
	}{
		{name: "ok", status: http.StatusOK, wantText: "INFO", wantNumber: 9},
		{name: "redirect", status: http.StatusSeeOther, wantText: "INFO", wantNumber: 9},
		{name: "warn", status: http.StatusBadRequest, wantText: "WARN", wantNumber: 13},
		{name: "error", status: http.StatusInternalServerError, wantText: "ERROR", wantNumber: 17},
		{name: "errorFromErr", status: 0, err: errors.New("error"), wantText: "ERROR", wantNumber: 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotNumber := severityForStatus(tt.status, tt.err)
			if gotText != tt.wantText || gotNumber != tt.wantNumber {
				t.Fatalf("severityForStatus(%d, %v) = %s/%d, want %s/%d", tt.status, tt.err, gotText, gotNumber, tt.wantText, tt.wantNumber)
			}
		})
	}
}

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter, func()) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	return tp, exporter, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
		otel.SetTracerProvider(prev)
	}
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func findEvent(events []sdktrace.Event, name string) sdktrace.Event {
	for _, ev := range events {
		if ev.Name == name {
			return ev
		}
	}
	return sdktrace.Event{}
}
