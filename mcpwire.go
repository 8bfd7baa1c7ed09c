// Package mcpwire is a client for the Model Context Protocol over stdio.
// It spawns an MCP server as a subprocess, speaks newline-delimited
// JSON-RPC 2.0 with it, and exposes the server's tools, resources and
// prompts through a typed API.
//
// The usual entry point is NewStdioClient:
//
//	client, err := mcpwire.NewStdioClient(mcpwire.ServerConfig{
//		Command: "mcp-server-filesystem",
//		Args:    []string{"/data"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	tools, err := client.ListTools(ctx)
//	blocks, err := client.CallTool(ctx, "read_file", map[string]interface{}{
//		"path": "notes.txt",
//	})
//
// The subpackages carry the layers: pkg/transport owns the subprocess
// and framing, pkg/protocol the envelope and content model, pkg/session
// the handshake and request correlation, pkg/client the capability
// caches and typed operations.
package mcpwire

import (
	"github.com/mcpwire/mcpwire/pkg/client"
	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
	"github.com/mcpwire/mcpwire/pkg/protocol"
	"github.com/mcpwire/mcpwire/pkg/session"
)

// Client is an MCP client over a single server connection
type Client = client.Client

// ServerConfig describes the server to spawn and client behavior
type ServerConfig = client.ServerConfig

// Tool describes a callable tool advertised by the server
type Tool = protocol.Tool

// Resource describes a readable resource advertised by the server
type Resource = protocol.Resource

// Prompt describes a prompt template advertised by the server
type Prompt = protocol.Prompt

// ContentBlock is one typed unit of a tool or resource result
type ContentBlock = protocol.ContentBlock

// ClientInfo identifies this client during the handshake
type ClientInfo = protocol.ClientInfo

// ServerInfo is the server identity captured during the handshake
type ServerInfo = protocol.ServerInfo

// Content kinds, for switching on ContentBlock.Kind.
const (
	ContentText       = protocol.ContentText
	ContentStructured = protocol.ContentStructured
	ContentOpaque     = protocol.ContentOpaque
)

// Dispatch policies.
const (
	PolicyPipelined = session.PolicyPipelined
	PolicyStrict    = session.PolicyStrict
)

// Error helpers, for matching failures without importing pkg/errors.
var (
	// IsErrorCode reports whether err carries the given error code.
	IsErrorCode = mcperrors.IsCode

	// AsError extracts the structured error from err's chain.
	AsError = mcperrors.AsMCPError
)

// Common error codes callers match on.
const (
	CodeToolNotFound        = mcperrors.CodeToolNotFound
	CodeArgumentValidation  = mcperrors.CodeArgumentValidation
	CodeToolExecutionFailed = mcperrors.CodeToolExecutionFailed
	CodeRequestTimeout      = mcperrors.CodeRequestTimeout
	CodeRequestCancelled    = mcperrors.CodeRequestCancelled
	CodeTransportClosed     = mcperrors.CodeTransportClosed
	CodeSessionNotReady     = mcperrors.CodeSessionNotReady
)

// NewStdioClient creates a client that will spawn the configured server
// over stdio. Connect must be called before use.
func NewStdioClient(config ServerConfig) (*Client, error) {
	return client.New(config)
}
