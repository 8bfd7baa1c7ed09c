package protocol

import "encoding/json"

// Tool describes a callable tool advertised by the server
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Schema parses the tool's input schema into a SchemaNode tree.
// A tool without a schema yields nil.
func (t *Tool) Schema() (*SchemaNode, error) {
	return ParseSchema(t.InputSchema)
}

// ListToolsResult is the result of tools/list
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams are the params of tools/call
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// CallToolResult is the result of tools/call. Content items stay raw here;
// DecodeContent turns them into typed ContentBlocks.
type CallToolResult struct {
	Content []json.RawMessage `json:"content"`
	IsError bool              `json:"isError,omitempty"`
}
