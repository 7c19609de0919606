package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecorder(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return New(tp.Tracer("test")), sr
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	assert.False(t, tr.Enabled())
	assert.Nil(t, New(nil))

	ctx, span := tr.StartQuery(context.Background(), "mysql")
	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording())

	// Must not panic.
	EndQuery(span, &QueryMetadata{SQL: "SELECT 1", Error: errors.New("boom")})
	_, span = tr.StartConnect(context.Background(), "mysql", "db", "app")
	EndConnect(span, false, nil)
}

func TestNilTracer_DoesNotEndParent(t *testing.T) {
	rec, sr := newRecorder(t)
	ctx, parent := rec.start(context.Background(), "parent")

	var tr *Tracer
	_, span := tr.StartQuery(ctx, "mysql")
	EndQuery(span, &QueryMetadata{SQL: "SELECT 1"})

	assert.Empty(t, sr.Ended())
	parent.End()
	assert.Len(t, sr.Ended(), 1)
}

func TestQuerySpan(t *testing.T) {
	tr, sr := newRecorder(t)
	require.True(t, tr.Enabled())

	_, span := tr.StartQuery(context.Background(), "mysql")
	EndQuery(span, &QueryMetadata{
		SQL:          "UPDATE `users` SET `age` = 3",
		Duration:     1500 * time.Microsecond,
		RowsAffected: 2,
		Reconnected:  true,
		Namespace:    "app",
		Operation:    "UPDATE",
		Table:        "users",
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	s := spans[0]

	assert.Equal(t, QuerySpan, s.Name())
	assert.Equal(t, trace.SpanKindClient, s.SpanKind())
	assert.Equal(t, codes.Ok, s.Status().Code)

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "mysql", attrs["db.system"].AsString())
	assert.Equal(t, "UPDATE `users` SET `age` = 3", attrs["db.statement"].AsString())
	assert.Equal(t, "UPDATE", attrs["db.operation"].AsString())
	assert.Equal(t, "app", attrs["db.name"].AsString())
	assert.Equal(t, "users", attrs["db.sql.table"].AsString())
	assert.Equal(t, int64(2), attrs["db.rows_affected"].AsInt64())
	assert.True(t, attrs["db.reconnected"].AsBool())
	assert.InDelta(t, 1.5, attrs["db.duration_ms"].AsFloat64(), 0.001)
	assert.NotContains(t, attrs, attribute.Key("db.rows_returned"))
}

func TestQuerySpan_Error(t *testing.T) {
	tr, sr := newRecorder(t)

	_, span := tr.StartQuery(context.Background(), "sqlite")
	EndQuery(span, &QueryMetadata{SQL: "SELECT * FROM nope", Operation: "SELECT", Error: errors.New("no such table: nope")})

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "no such table: nope", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestConnectSpan(t *testing.T) {
	tr, sr := newRecorder(t)

	_, span := tr.StartConnect(context.Background(), "mysql", "db.local:3306", "app")
	EndConnect(span, true, errors.New("dial tcp: connection refused"))

	s := sr.Ended()[0]
	assert.Equal(t, ConnectSpan, s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "mysql", attrs["db.system"].AsString())
	assert.Equal(t, "db.local:3306", attrs["server.address"].AsString())
	assert.Equal(t, "app", attrs["db.name"].AsString())
	assert.True(t, attrs["db.reconnected"].AsBool())
}

func TestDetectOperation(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM users", "SELECT"},
		{"  select 1", "SELECT"},
		{"(SELECT 1) UNION (SELECT 2)", "SELECT"},
		{"WITH x AS (SELECT 1) SELECT * FROM x", "SELECT"},
		{"INSERT INTO `t` SET `a` = 1", "INSERT"},
		{"UPDATE t SET a = 1", "UPDATE"},
		{"DELETE FROM t", "DELETE"},
		{"TRUNCATE `t`", "TRUNCATE"},
		{"DROP TABLE `t`", "DROP"},
		{"SHOW COLUMNS FROM `t`", "SHOW"},
		{`PRAGMA table_info("t")`, "PRAGMA"},
		{"CREATE TABLE t (id INT)", "UNKNOWN"},
		{"", "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOperation(tt.sql))
		})
	}
}
