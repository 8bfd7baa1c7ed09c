package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
)

func TestLevelGate(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableTimestamp: true})

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(DebugLevel)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "[DEBUG] visible")
}

func TestTextFormatterFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableTimestamp: true})

	logger.Info("frame written",
		String("method", "tools/call"),
		Int("bytes", 42),
		Bool("pipelined", true),
	)

	line := buf.String()
	assert.Contains(t, line, "[INFO] frame written | ")
	assert.Contains(t, line, "method=tools/call")
	assert.Contains(t, line, "bytes=42")
	assert.Contains(t, line, "pipelined=true")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(&buf, &TextFormatter{DisableTimestamp: true})
	child := parent.WithFields(String("session_id", "abc"))

	parent.Info("no session field")
	assert.NotContains(t, buf.String(), "session_id")

	buf.Reset()
	child.Info("has session field")
	assert.Contains(t, buf.String(), "session_id=abc")
}

func TestWithErrorExtractsCodeAndCategory(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableTimestamp: true})

	err := mcperrors.UnsolicitedResponse("sess-12")
	logger.WithError(err).Warn("dropping response")

	line := buf.String()
	assert.Contains(t, line, "error_code=-32902")
	assert.Contains(t, line, "error_category=protocol")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &JSONFormatter{DisableTimestamp: true})

	logger.Info("handshake complete", String("server", "echo"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "handshake complete", entry["message"])
	assert.Equal(t, "echo", entry["server"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()

	// Must be safe to use without any setup and allocate nothing visible.
	logger.Info("ignored", String("k", "v"))
	logger.WithError(assert.AnError).Error("also ignored")
	assert.Equal(t, logger, logger.WithFields(String("k", "v")))
}
