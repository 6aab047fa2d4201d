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
	tracerName         = "prism-board/api"
	observabilityEvent = "observability.event"
	requestEventDomain = "prism.board.api"
)

// requestMetrics collects per-request timings and reports them once as a
// log entry and a span.
type requestMetrics struct {
	logger     *log.Logger
	span       trace.Span
	route      string
	start      time.Time
	stages     map[string]time.Duration
	attrs      []attribute.KeyValue
	errorStage string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, route, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger: logger,
		span:   span,
		route:  route,
		start:  time.Now(),
		stages: make(map[string]time.Duration, 4),
	}, ctx
}

// Observe records how long a named stage took.
func (m *requestMetrics) Observe(stage string, d time.Duration) {
	if d > 0 {
		m.stages[stage] = d
	}
}

func (m *requestMetrics) Set(kv ...attribute.KeyValue) {
	m.attrs = append(m.attrs, kv...)
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log ends the span and writes the observability entry.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	severity, severityNumber := severityForStatus(status, err)

	attrs := append([]attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64("prism.board.total_ms", durationToMillis(time.Since(m.start))),
	}, m.attrs...)
	for stage, d := range m.stages {
		attrs = append(attrs, attribute.Float64("prism.board."+stage+"_ms", durationToMillis(d)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("prism.board.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(append(attrs,
			attribute.String("event.name", m.route),
			attribute.String("event.domain", requestEventDomain),
			attribute.String("severity_text", severity),
		)...))
		if severityNumber >= 17 {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      m.route,
		"event.domain":    requestEventDomain,
		"severity_text":   severity,
		"severity_number": severityNumber,
		"attributes":      attrMap,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	entry := m.logger.WithFields(fields)
	switch severity {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
}

// severityForStatus maps a response onto OpenTelemetry log severities.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= 500 || (err != nil && status < 400):
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
