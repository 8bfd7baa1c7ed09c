package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	err := NewError(CodeSessionNotReady, "session is not ready", CategorySession, SeverityError)

	assert.Equal(t, CodeSessionNotReady, err.Code())
	assert.Equal(t, "session is not ready", err.Message())
	assert.Equal(t, CategorySession, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	assert.Equal(t, "session is not ready", err.Error())
	require.NotNil(t, err.Context())
	assert.False(t, err.Context().Timestamp.IsZero())
}

func TestWithDetail(t *testing.T) {
	err := NewError(CodeWriteError, "write failed", CategoryTransport, SeverityError)

	detailed := err.WithDetail("broken pipe")
	assert.Equal(t, "write failed: broken pipe", detailed.Error())

	// Original is not mutated
	assert.Equal(t, "write failed", err.Error())

	// Details accumulate
	more := detailed.WithDetail("after 3 frames")
	assert.Equal(t, "write failed: broken pipe; after 3 frames", more.Error())
}

func TestWrapErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := WrapError(cause, CodeSpawnError, "spawn failed", CategoryTransport, SeverityCritical)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestSpawnError(t *testing.T) {
	cause := &exec.Error{Name: "no-such-server", Err: exec.ErrNotFound}
	err := SpawnError("no-such-server", cause)

	assert.Equal(t, CodeSpawnError, err.Code())
	assert.Equal(t, CategoryTransport, err.Category())
	assert.Equal(t, SeverityCritical, err.Severity())
	assert.Contains(t, err.Error(), "no-such-server")

	data, ok := err.Data().(*TransportErrorData)
	require.True(t, ok)
	assert.Equal(t, "no-such-server", data.Command)
	assert.False(t, data.Retryable)
}

func TestTransportClosedCarriesReason(t *testing.T) {
	reason := EndOfStream()
	err := TransportClosed(reason)

	assert.Equal(t, CodeTransportClosed, err.Code())
	assert.Contains(t, err.Error(), "server stream ended")
	assert.True(t, errors.Is(err, reason))
}

func TestIncompleteFrame(t *testing.T) {
	err := IncompleteFrame(17)

	assert.Equal(t, CodeIncompleteFrame, err.Code())
	assert.Contains(t, err.Error(), "17 bytes")
}

func TestRequestTimeout(t *testing.T) {
	err := RequestTimeout("sess-1", "tools/call", 5*time.Second)

	assert.Equal(t, CodeRequestTimeout, err.Code())
	assert.Equal(t, CategoryTimeout, err.Category())
	require.NotNil(t, err.Context())
	assert.Equal(t, "sess-1", err.Context().RequestID)
	assert.Equal(t, "tools/call", err.Context().Method)
}

func TestServerErrorPreservesCode(t *testing.T) {
	err := ServerError(-32601, "method not found")

	assert.Equal(t, -32601, err.Code())
	assert.Equal(t, CategoryServer, err.Category())
	assert.Contains(t, err.Error(), "method not found")
}

func TestArgumentValidation(t *testing.T) {
	err := ArgumentValidation("send_message", []string{"recipient"})

	assert.Equal(t, CodeArgumentValidation, err.Code())
	assert.Contains(t, err.Error(), "recipient")

	data, ok := err.Data().(*ValidationErrorData)
	require.True(t, ok)
	assert.Equal(t, "send_message", data.Tool)
	assert.Equal(t, []string{"recipient"}, data.Missing)
}

func TestAsMCPError(t *testing.T) {
	mcpErr := MalformedMessage("not JSON", nil)
	wrapped := fmt.Errorf("read loop: %w", mcpErr)

	got, ok := AsMCPError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeMalformedMessage, got.Code())

	_, ok = AsMCPError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsMCPError(nil)
	assert.False(t, ok)
}

func TestIsCodeAndIsCategory(t *testing.T) {
	err := DuplicateID("sess-9")

	assert.True(t, IsCode(err, CodeDuplicateID))
	assert.False(t, IsCode(err, CodeUnsolicitedResponse))
	assert.True(t, IsCategory(err, CategoryInternal))
	assert.False(t, IsCategory(err, CategoryTransport))
}

func TestCodeRegistry(t *testing.T) {
	info, ok := GetCodeInfo(CodeTransportClosed)
	require.True(t, ok)
	assert.Equal(t, "TransportClosed", info.Name)
	assert.Equal(t, CategoryTransport, info.Category)

	assert.Equal(t, "UnknownError", GetCodeName(12345))
	assert.True(t, IsStandardJSONRPCCode(-32601))
	assert.False(t, IsStandardJSONRPCCode(100))
}
