package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSON(buf *bytes.Buffer) Logger {
	return New(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	buf.Reset()
	return rec
}

func TestSlogAdapter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(Logger)
		level string
	}{
		{"debug", func(l Logger) { l.Debug("connected", "host", "db") }, "DEBUG"},
		{"info", func(l Logger) { l.Info("connected", "host", "db") }, "INFO"},
		{"warn", func(l Logger) { l.Warn("connected", "host", "db") }, "WARN"},
		{"error", func(l Logger) { l.Error("connected", "host", "db") }, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(newJSON(&buf))

			rec := decode(t, &buf)
			assert.Equal(t, tt.level, rec["level"])
			assert.Equal(t, "connected", rec["msg"])
			assert.Equal(t, "db", rec["host"])
		})
	}
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	base := newJSON(&buf)
	scoped := base.With("component", "health")

	scoped.Warn("database health check failed", "failures", 2)
	rec := decode(t, &buf)
	assert.Equal(t, "health", rec["component"])
	assert.Equal(t, float64(2), rec["failures"])

	base.Info("query executed")
	rec = decode(t, &buf)
	assert.NotContains(t, rec, "component")
}

func TestSlogAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Nil(t *testing.T) {
	l := New(nil)
	assert.Equal(t, Discard, l)

	// Must not panic.
	l.With("k", "v").Error("dropped", "k", "v")
}
