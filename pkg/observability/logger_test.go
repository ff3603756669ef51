package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/masthead/pkg/contextkeys"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Debug("debug message")
	assert.Zero(t, buf.Len(), "debug is below info")

	logger.Info("info message")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "info message", entry["msg"])

	buf.Reset()
	logger.Errorf("failed %d times", 3)
	entry = decodeLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "failed 3 times", entry["msg"])
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.WithField("component", "audit_retention").
		WithFields(map[string]interface{}{"deleted": 2}).
		WithError(errors.New("boom")).
		Warn("pass failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "audit_retention", entry["component"])
	assert.Equal(t, float64(2), entry["deleted"])
	assert.Equal(t, "boom", entry["error"])

	assert.Same(t, logger, logger.WithError(nil))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(InfoLevel, &buf))
	ctx = contextkeys.WithRequestID(ctx, "req-123")
	ctx = contextkeys.WithActorID(ctx, 5)
	ctx = contextkeys.WithSignal(ctx, "post.saved")

	FromContext(ctx).Info("signal handled")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, float64(5), entry["actor_id"])
	assert.Equal(t, "post.saved", entry["signal"])
	assert.NotContains(t, entry, "trace_id", "no span is recording")
}

func TestGetLoggerDefault(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
}

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "retention job")
		panic("disk on fire")
	}()
	entry := decodeLine(t, &buf)
	assert.Equal(t, "disk on fire", entry["panic"])
	assert.Equal(t, "retention job", entry["where"])
	assert.Contains(t, entry["stack"], "runtime/debug")
}

func TestPanicError(t *testing.T) {
	assert.NoError(t, PanicError(nil))
	assert.EqualError(t, PanicError("oops"), "panic: oops")

	cause := errors.New("nil map")
	assert.ErrorIs(t, PanicError(cause), cause)
}
