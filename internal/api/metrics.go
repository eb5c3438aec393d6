package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "daily-app/internal/api"
	requestSpanName    = "daily.request"
	requestEventName   = "daily.request.completed"
	requestEventDomain = "daily.api"
	observabilityEvent = "observability.event"
	attrPrefix         = "daily.request."
)

// requestMetrics records one request as a span plus a structured log entry.
type requestMetrics struct {
	logger     *log.Logger
	route      string
	span       trace.Span
	start      time.Time
	authDur    time.Duration
	storeDur   time.Duration
	tasks      int
	duplicate  bool
	errorStage string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", route)),
	)
	return &requestMetrics{logger: logger, route: route, span: span, start: time.Now(), tasks: -1}, spanCtx
}

func (m *requestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDur = d
	}
}

func (m *requestMetrics) ObserveStore(d time.Duration) {
	if d > 0 {
		m.storeDur = d
	}
}

func (m *requestMetrics) SetTasksReturned(n int) {
	if n < 0 {
		n = 0
	}
	m.tasks = n
}

func (m *requestMetrics) SetDuplicate(dup bool) {
	m.duplicate = dup
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

func (m *requestMetrics) attributes(status int, err error) map[string]any {
	attrs := map[string]any{
		"http.route":            m.route,
		"http.status_code":      status,
		attrPrefix + "total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.authDur > 0 {
		attrs[attrPrefix+"auth_ms"] = durationToMillis(m.authDur)
	}
	if m.storeDur > 0 {
		attrs[attrPrefix+"store_ms"] = durationToMillis(m.storeDur)
	}
	if m.tasks >= 0 {
		attrs[attrPrefix+"tasks_returned"] = m.tasks
	}
	if m.duplicate {
		attrs[attrPrefix+"duplicate"] = true
	}
	if m.errorStage != "" {
		attrs[attrPrefix+"error_stage"] = m.errorStage
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}
	return attrs
}

// Log ends the span and writes the observability event.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	severityText, severityNumber := severityForStatus(status, err)
	attrs := m.attributes(status, err)

	if m.span != nil {
		kvs := toKeyValues(attrs)
		m.span.SetAttributes(kvs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(append(kvs,
			attribute.String("event.name", requestEventName),
			attribute.String("event.domain", requestEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		)...))
		switch {
		case err != nil:
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusInternalServerError:
			m.span.SetStatus(codes.Error, http.StatusText(status))
		default:
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.IsValid() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
}

// severityForStatus maps a response to OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func toKeyValues(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
