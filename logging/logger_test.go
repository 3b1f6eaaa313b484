package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLogger_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf, Component: "runner"})

	logger.Debug("hidden")
	logger.Info("runner.task.done", "task_id", "t1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "runner.task.done", entry["msg"])
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "t1", entry["task_id"])
}

func TestWith_PrependsAndMerges(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "text", Output: &buf})

	l := With(With(base, "agent", "manager"), "task_id", "t9")
	l.Warn("flow.step", "index", 2)

	out := buf.String()
	assert.Contains(t, out, "agent=manager")
	assert.Contains(t, out, "task_id=t9")
	assert.Contains(t, out, "index=2")

	assert.IsType(t, NoOpLogger{}, With(nil, "k", "v"))
	assert.Same(t, base, With(base))
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZapAdapter(zap.New(core))

	l.Info("runner.batch.done", "tasks", 3)
	l.Error("runner.batch.failed", "error", "disk full")

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "runner.batch.done", first.Message)
	assert.EqualValues(t, 3, first.ContextMap()["tasks"])
}

func TestNewZapLoggerWithWriter(t *testing.T) {
	var buf bytes.Buffer
	l := NewZapLoggerWithWriter(LogLevelWarn, "json", &buf)

	l.Info("dropped")
	l.Warn("evaluation.questions.fallback", "path", "questions.json")
	require.NoError(t, l.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "evaluation.questions.fallback", entry["msg"])
	assert.Equal(t, "questions.json", entry["path"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
}
