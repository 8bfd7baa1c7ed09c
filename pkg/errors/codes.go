package errors

// JSON-RPC 2.0 standard error codes
const (
	// CodeParseError indicates invalid JSON was received
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the JSON sent is not a valid Request object
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method does not exist / is not available
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameter(s)
	CodeInvalidParams int = -32602

	// CodeInternalError indicates an internal JSON-RPC error
	CodeInternalError int = -32603
)

// Client-side error codes, grouped by layer
const (
	// Session errors (-32000 to -32099)
	CodeSessionNotReady int = -32001 // Request issued outside the Ready state

	// Capability errors (-32200 to -32299)
	CodeToolNotFound int = -32200 // Named tool absent from the cached catalog

	// Operation errors (-32300 to -32399)
	CodeRequestCancelled    int = -32300 // Caller abandoned the request locally
	CodeRequestTimeout      int = -32301 // Deadline elapsed before a response arrived
	CodeToolExecutionFailed int = -32302 // Tool ran and reported failure via isError

	// Transport errors (-32500 to -32599)
	CodeSpawnError      int = -32500 // Server process could not be launched
	CodeWriteError      int = -32501 // Write after the process closed its input
	CodeEndOfStream     int = -32502 // Stream ended cleanly on a frame boundary
	CodeIncompleteFrame int = -32503 // Stream ended mid-frame without a newline
	CodeTransportClosed int = -32504 // Transport terminated with requests pending

	// Validation errors (-32750 to -32799)
	CodeArgumentValidation int = -32750 // Required argument missing pre-flight
	CodeSchemaTooDeep      int = -32751 // Input schema nesting exceeds the depth cap

	// Protocol errors (-32900 to -32999)
	CodeMalformedMessage    int = -32900 // Frame is not a valid envelope
	CodeDuplicateID         int = -32901 // Request id already pending
	CodeUnsolicitedResponse int = -32902 // Response id matches nothing pending
)

// CodeInfo provides human-readable information about an error code
type CodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var codeRegistry = map[int]CodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryProtocol, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryProtocol, SeverityError},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryValidation, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal JSON-RPC error", CategoryInternal, SeverityError},

	CodeSessionNotReady: {CodeSessionNotReady, "SessionNotReady", "Session is not ready for requests", CategorySession, SeverityError},

	CodeToolNotFound: {CodeToolNotFound, "ToolNotFound", "Tool not present in catalog", CategoryNotFound, SeverityError},

	CodeRequestCancelled:    {CodeRequestCancelled, "RequestCancelled", "Request abandoned by caller", CategoryCancelled, SeverityInfo},
	CodeRequestTimeout:      {CodeRequestTimeout, "RequestTimeout", "Request deadline elapsed", CategoryTimeout, SeverityError},
	CodeToolExecutionFailed: {CodeToolExecutionFailed, "ToolExecutionFailed", "Tool reported execution failure", CategoryServer, SeverityError},

	CodeSpawnError:      {CodeSpawnError, "SpawnError", "Server process failed to start", CategoryTransport, SeverityCritical},
	CodeWriteError:      {CodeWriteError, "WriteError", "Write to server process failed", CategoryTransport, SeverityError},
	CodeEndOfStream:     {CodeEndOfStream, "EndOfStream", "Server stream ended", CategoryTransport, SeverityError},
	CodeIncompleteFrame: {CodeIncompleteFrame, "IncompleteFrame", "Server stream ended mid-frame", CategoryTransport, SeverityError},
	CodeTransportClosed: {CodeTransportClosed, "TransportClosed", "Transport terminated", CategoryTransport, SeverityError},

	CodeArgumentValidation: {CodeArgumentValidation, "ArgumentValidationError", "Required argument missing", CategoryValidation, SeverityError},
	CodeSchemaTooDeep:      {CodeSchemaTooDeep, "SchemaTooDeep", "Schema nesting exceeds depth cap", CategoryValidation, SeverityError},

	CodeMalformedMessage:    {CodeMalformedMessage, "MalformedMessage", "Frame is not a valid envelope", CategoryProtocol, SeverityWarning},
	CodeDuplicateID:         {CodeDuplicateID, "DuplicateID", "Request id already pending", CategoryInternal, SeverityCritical},
	CodeUnsolicitedResponse: {CodeUnsolicitedResponse, "UnsolicitedResponse", "Response matches no pending request", CategoryProtocol, SeverityWarning},
}

// GetCodeInfo returns information about an error code
func GetCodeInfo(code int) (CodeInfo, bool) {
	info, exists := codeRegistry[code]
	return info, exists
}

// GetCodeName returns the registered name of an error code
func GetCodeName(code int) string {
	if info, exists := codeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// IsStandardJSONRPCCode checks if a code is a standard JSON-RPC error code
func IsStandardJSONRPCCode(code int) bool {
	return code >= -32768 && code <= -32000
}
