package errors

import (
	"fmt"
	"strings"
)

// ValidationErrorData contains structured data for argument validation errors
type ValidationErrorData struct {
	Tool    string   `json:"tool,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// ArgumentValidation creates an error for required tool arguments that are
// absent from the caller's argument map. This is a local pre-flight check;
// nothing is written to the transport.
func ArgumentValidation(tool string, missing []string) MCPError {
	return NewError(
		CodeArgumentValidation,
		fmt.Sprintf("tool %q missing required arguments: %s", tool, strings.Join(missing, ", ")),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{
		Tool:    tool,
		Missing: missing,
	})
}

// ToolNotFound creates an error for a tool name absent from the cached catalog
func ToolNotFound(tool string) MCPError {
	return NewErrorf(
		CodeToolNotFound,
		CategoryNotFound,
		SeverityError,
		"tool %q not found in catalog", tool,
	)
}

// ToolExecutionFailed creates an error for a tool call that completed at the
// protocol level but reported failure through the result's isError flag. The
// text of the result's content is carried in the message.
func ToolExecutionFailed(tool, detail string) MCPError {
	message := fmt.Sprintf("tool %q reported failure", tool)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	return NewError(
		CodeToolExecutionFailed,
		message,
		CategoryServer,
		SeverityError,
	)
}

// SchemaTooDeep creates an error for an input schema whose nesting exceeds
// the parser's depth cap
func SchemaTooDeep(depth int) MCPError {
	return NewErrorf(
		CodeSchemaTooDeep,
		CategoryValidation,
		SeverityError,
		"schema nesting exceeds depth cap of %d", depth,
	)
}
