package errors

import (
	"fmt"
	"time"
)

// TransportErrorData contains structured data for transport-layer errors
type TransportErrorData struct {
	Command   string `json:"command,omitempty"`
	Operation string `json:"operation,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
	Retryable bool   `json:"retryable"`
	Reason    string `json:"reason,omitempty"`
}

// SpawnError creates an error for a server process that could not be launched
func SpawnError(command string, cause error) MCPError {
	message := fmt.Sprintf("failed to spawn server process %q", command)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeSpawnError,
		message,
		CategoryTransport,
		SeverityCritical,
	).WithData(&TransportErrorData{
		Command:   command,
		Operation: "spawn",
		Retryable: false,
		Reason:    errText(cause),
	})
}

// WriteError creates an error for a failed write to the server's input stream
func WriteError(cause error) MCPError {
	message := "write to server process failed"
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeWriteError,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Operation: "write_frame",
		Retryable: false,
		Reason:    errText(cause),
	})
}

// EndOfStream creates an error for a server stream that ended on a frame boundary
func EndOfStream() MCPError {
	return NewError(
		CodeEndOfStream,
		"server stream ended",
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Operation: "read_frame",
		Retryable: false,
		Reason:    "end of stream",
	})
}

// IncompleteFrame creates an error for a stream that ended mid-frame,
// leaving bytes without a terminating newline
func IncompleteFrame(pending int) MCPError {
	return NewErrorf(
		CodeIncompleteFrame,
		CategoryTransport,
		SeverityError,
		"server stream ended mid-frame with %d bytes pending", pending,
	).WithData(&TransportErrorData{
		Operation: "read_frame",
		Retryable: false,
		Reason:    "missing frame terminator",
	})
}

// TransportClosed creates the error delivered to every pending and future
// request once the transport has terminated
func TransportClosed(reason error) MCPError {
	message := "transport closed"
	if reason != nil {
		message = fmt.Sprintf("%s: %s", message, reason.Error())
	}

	return WrapError(
		reason,
		CodeTransportClosed,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Operation: "correlate",
		Retryable: false,
		Reason:    errText(reason),
	})
}

// RequestTimeout creates an error for a request whose deadline elapsed
func RequestTimeout(requestID, method string, timeout time.Duration) MCPError {
	message := fmt.Sprintf("request %s (%s) timed out", requestID, method)
	if timeout > 0 {
		message = fmt.Sprintf("%s after %v", message, timeout)
	}

	return NewError(
		CodeRequestTimeout,
		message,
		CategoryTimeout,
		SeverityError,
	).WithContext(&Context{
		RequestID: requestID,
		Method:    method,
		Timestamp: time.Now(),
	})
}

// RequestCancelled creates an error for a request abandoned by its caller
func RequestCancelled(requestID string, cause error) MCPError {
	return WrapError(
		cause,
		CodeRequestCancelled,
		fmt.Sprintf("request %s cancelled", requestID),
		CategoryCancelled,
		SeverityInfo,
	)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
