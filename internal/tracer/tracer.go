// Package tracer records fluentdb statements and connection handshakes as
// OpenTelemetry client spans with the database semantic-convention attributes.
package tracer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span names.
const (
	QuerySpan   = "fluentdb.query"
	ConnectSpan = "fluentdb.connect"
)

var disabled trace.Tracer = noop.NewTracerProvider().Tracer("fluentdb")

// Tracer starts spans on an OpenTelemetry tracer. A nil *Tracer starts
// non-recording spans, so callers never need to check for it.
type Tracer struct {
	tracer trace.Tracer
}

// New wraps t. A nil t disables tracing.
func New(t trace.Tracer) *Tracer {
	if t == nil {
		return nil
	}
	return &Tracer{tracer: t}
}

// Enabled reports whether spans are recorded.
func (t *Tracer) Enabled() bool {
	return t != nil
}

func (t *Tracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tr := disabled
	if t != nil {
		tr = t.tracer
	}
	return tr.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// StartQuery starts the span of one statement. Finish it with EndQuery.
func (t *Tracer) StartQuery(ctx context.Context, system string) (context.Context, trace.Span) {
	return t.start(ctx, QuerySpan, attribute.String("db.system", system))
}

// StartConnect starts the span of a connection handshake. Finish it with EndConnect.
func (t *Tracer) StartConnect(ctx context.Context, system, host, database string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("db.system", system)}
	if host != "" {
		attrs = append(attrs, attribute.String("server.address", host))
	}
	if database != "" {
		attrs = append(attrs, attribute.String("db.name", database))
	}
	return t.start(ctx, ConnectSpan, attrs...)
}

// EndConnect records the handshake outcome and ends the span.
func EndConnect(span trace.Span, retried bool, err error) {
	if retried {
		span.SetAttributes(attribute.Bool("db.reconnected", true))
	}
	setStatus(span, err)
	span.End()
}

// QueryMetadata describes one executed statement.
// Statements carry their values inline, so there are no separate arguments.
type QueryMetadata struct {
	// SQL is the statement, already masked for logging
	SQL string
	// Duration includes a transparent reconnect
	Duration     time.Duration
	Rows         int
	RowsAffected int64
	// Reconnected reports whether a lost connection was re-established on the way
	Reconnected bool
	Error       error
	// Namespace is the database the session is bound to (optional)
	Namespace string
	Operation string
	// Table is the builder's table (optional)
	Table string
}

// EndQuery adds the statement attributes, records the outcome and ends the span.
// See: https://opentelemetry.io/docs/specs/semconv/database/
func EndQuery(span trace.Span, meta *QueryMetadata) {
	if span.IsRecording() {
		span.SetAttributes(queryAttributes(meta)...)
	}
	setStatus(span, meta.Error)
	span.End()
}

func queryAttributes(meta *QueryMetadata) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}

	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("db.name", meta.Namespace))
	}
	if meta.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", meta.Table))
	}
	if meta.Rows > 0 {
		attrs = append(attrs, attribute.Int("db.rows_returned", meta.Rows))
	}
	if meta.RowsAffected > 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", meta.RowsAffected))
	}
	if meta.Reconnected {
		attrs = append(attrs, attribute.Bool("db.reconnected", true))
	}
	return attrs
}

func setStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

var operations = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "TRUNCATE", "DROP", "SHOW", "PRAGMA"}

// DetectOperation returns the leading keyword of a statement: SELECT (including
// parenthesized unions and WITH), INSERT, UPDATE, DELETE, TRUNCATE, DROP, SHOW,
// PRAGMA, or UNKNOWN.
func DetectOperation(sql string) string {
	sql = strings.TrimLeft(strings.ToUpper(strings.TrimSpace(sql)), "(")
	for _, op := range operations {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	if strings.HasPrefix(sql, "WITH") {
		return "SELECT"
	}
	return "UNKNOWN"
}
