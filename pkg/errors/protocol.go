package errors

import "fmt"

// MalformedMessage creates an error for a frame that is not a valid envelope.
// These are logged and the frame dropped; a single bad frame from a
// non-conformant server does not tear down the session.
func MalformedMessage(reason string, cause error) MCPError {
	message := fmt.Sprintf("malformed message: %s", reason)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeMalformedMessage,
		message,
		CategoryProtocol,
		SeverityWarning,
	)
}

// DuplicateID creates an error for a request id registered twice. This is an
// internal-consistency failure, not a protocol error from the server.
func DuplicateID(requestID string) MCPError {
	return NewErrorf(
		CodeDuplicateID,
		CategoryInternal,
		SeverityCritical,
		"request id %s is already pending", requestID,
	)
}

// UnsolicitedResponse creates an error for a response whose id matches no
// pending request. Non-fatal; servers may be non-conformant or the request
// may have already timed out.
func UnsolicitedResponse(requestID string) MCPError {
	return NewErrorf(
		CodeUnsolicitedResponse,
		CategoryProtocol,
		SeverityWarning,
		"response for unknown request id %s", requestID,
	)
}

// ServerError creates an error for an application-level failure reported by
// the server. The server's own code is preserved.
func ServerError(code int, message string) MCPError {
	return NewError(
		code,
		fmt.Sprintf("server error %d: %s", code, message),
		CategoryServer,
		SeverityError,
	)
}

// SessionNotReady creates an error for a request issued while the session is
// not in the Ready state
func SessionNotReady(state string) MCPError {
	return NewErrorf(
		CodeSessionNotReady,
		CategorySession,
		SeverityError,
		"session is not ready (state: %s)", state,
	)
}
