package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info("dropped")
	logger.WithRequestID("req-1").Component("schemagen").Warn("schema declaration skipped", slog.String("model", "firsts"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "schema declaration skipped", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "schemagen", record["component"])
	assert.Equal(t, "firsts", record["model"])
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.NotNil(t, FromContext(ctx).Logger)

	logger := NewLogger(Config{Output: &bytes.Buffer{}})
	ctx = WithLogger(WithRequestIDContext(ctx, "abc"), logger)
	assert.Equal(t, "abc", GetRequestID(ctx))
	assert.Same(t, logger, FromContext(ctx))
}

type recordingHandler struct {
	level slog.Level
	err   error
	seen  *[]string
}

func (h recordingHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.seen = append(*h.seen, r.Message)
	return h.err
}

func (h recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestFanout(t *testing.T) {
	var quiet, loud []string
	failing := recordingHandler{level: slog.LevelDebug, err: errors.New("sink down"), seen: &loud}
	h := fanout{failing, recordingHandler{level: slog.LevelWarn, seen: &quiet}}

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(h)
	logger.Debug("debug only")
	logger.Warn("both")

	assert.Equal(t, []string{"debug only", "both"}, loud)
	assert.Equal(t, []string{"both"}, quiet)
	assert.EqualError(t, h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelError, "x", 0)), "sink down")
}
