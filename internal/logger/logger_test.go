package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)

	return &Logger{zapLogger: zap.New(core)}, logs
}

func TestLogger_Levels(t *testing.T) {
	t.Parallel()

	log, logs := newObservedLogger(t)

	log.Debug("debug msg")
	log.Info("info msg")
	log.Warn("warn msg")
	log.Error("error msg")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "debug msg", entries[0].Message)
	assert.Equal(t, "error msg", entries[3].Message)
}

func TestLogger_KeyValueFields(t *testing.T) {
	t.Parallel()

	log, logs := newObservedLogger(t)

	log.Info("fetched", "url", "https://example.com", "status", 200)

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "https://example.com", fields["url"])
	assert.EqualValues(t, 200, fields["status"])
}

func TestLogger_StrayTrailingKeyDropped(t *testing.T) {
	t.Parallel()

	log, logs := newObservedLogger(t)

	log.Info("message", "key1", "value1", "dangling")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "value1", fields["key1"])
	assert.NotContains(t, fields, "dangling")
}

func TestLogger_With(t *testing.T) {
	t.Parallel()

	log, logs := newObservedLogger(t)

	child := log.With("component", "fetcher")
	child.Info("one")
	child.Info("two")

	entries := logs.All()
	require.Len(t, entries, 2)

	for _, entry := range entries {
		assert.Equal(t, "fetcher", entry.ContextMap()["component"])
	}
}

func TestLogger_WithComponentAndError(t *testing.T) {
	t.Parallel()

	log, logs := newObservedLogger(t)

	log.WithComponent("processor").WithError(errors.New("boom")).Warn("failed")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "processor", fields["component"])
	assert.Contains(t, fields, "error")
}

func TestLogger_ZapFieldPassthrough(t *testing.T) {
	t.Parallel()

	log, logs := newObservedLogger(t)

	log.Info("typed", zap.String("direct", "field"))

	assert.Equal(t, "field", logs.All()[0].ContextMap()["direct"])
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	t.Parallel()

	// Construction must not panic on arbitrary config.
	log := New(Config{Level: "verbose", Encoding: "json"})
	require.NotNil(t, log)

	log = New(Config{Level: "debug", Development: true})
	require.NotNil(t, log)
}

func TestNoOpLogger(t *testing.T) {
	t.Parallel()

	log := NewNoOp()

	log.Debug("ignored")
	log.Info("ignored", "key", "value")
	assert.Same(t, log, log.With("a", 1))
	assert.Same(t, log, log.WithComponent("x"))
	assert.Same(t, log, log.WithError(errors.New("x")))
}
