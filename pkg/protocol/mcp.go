package protocol

// ProtocolVersion is the MCP protocol revision this client speaks
const ProtocolVersion = "2024-11-05"

// MCP method names
const (
	MethodInitialize    = "initialize"
	MethodInitialized   = "notifications/initialized"
	MethodPing          = "ping"
	MethodListTools     = "tools/list"
	MethodListResources = "resources/list"
	MethodListPrompts   = "prompts/list"
	MethodCallTool      = "tools/call"
	MethodReadResource  = "resources/read"
)

// ClientInfo identifies the client during the handshake
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo identifies the server. Name and Version come from the
// handshake result's serverInfo member; ProtocolVersion is the negotiated
// revision, filled in by the session when the handshake completes.
type ServerInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
}

// InitializeParams are the params of the initialize request
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      ClientInfo             `json:"clientInfo"`
}

// InitializeResult is the result of the initialize request
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
}
