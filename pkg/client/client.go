// Package client is the high-level MCP client: it spawns the server,
// drives the session handshake, caches the server's advertised
// capabilities and exposes typed operations over them.
package client

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
	"github.com/mcpwire/mcpwire/pkg/logging"
	"github.com/mcpwire/mcpwire/pkg/observability"
	"github.com/mcpwire/mcpwire/pkg/protocol"
	"github.com/mcpwire/mcpwire/pkg/session"
	"github.com/mcpwire/mcpwire/pkg/transport"
)

// ServerConfig describes the MCP server to connect to and how the client
// should behave against it
type ServerConfig struct {
	// Command is the server executable to spawn.
	Command string

	// Args are passed to the executable.
	Args []string

	// Env entries are merged over the parent environment.
	Env map[string]string

	// Stderr receives the server's stderr when set.
	Stderr io.Writer

	// ClientInfo is sent during the handshake. Name defaults to "mcpwire".
	ClientInfo protocol.ClientInfo

	// DefaultTimeout bounds every request. Zero means 30 seconds.
	DefaultTimeout time.Duration

	// Policy selects pipelined (default) or strict request dispatch.
	Policy session.Policy

	// DisableJSONTextDecoding turns off the heuristic that promotes text
	// content to structured when its payload parses as JSON.
	DisableJSONTextDecoding bool

	// OnNotification, when set, receives server notifications.
	OnNotification session.NotificationHandler

	// Logger defaults to the no-op logger.
	Logger logging.Logger

	// Metrics defaults to NopMetrics.
	Metrics observability.Metrics

	// Tracer, when set, wraps every request in a client span.
	Tracer trace.Tracer

	// Transport, when set, is used instead of spawning Command. Tests use
	// this to script a fake server.
	Transport transport.Transport
}

// Client is an MCP client over a single server connection
type Client struct {
	config  ServerConfig
	logger  logging.Logger
	metrics observability.Metrics
	session *session.Session

	// Capability caches are replaced wholesale on every successful list;
	// entries the server no longer advertises disappear with the swap.
	cacheMu      sync.RWMutex
	tools        []protocol.Tool
	toolIndex    map[string]protocol.Tool
	toolsFetched bool
	resources    []protocol.Resource
	prompts      []protocol.Prompt
}

// New creates a client from config. Connect must be called before use.
func New(config ServerConfig) (*Client, error) {
	if config.ClientInfo.Name == "" {
		config.ClientInfo.Name = "mcpwire"
	}
	if config.ClientInfo.Version == "" {
		config.ClientInfo.Version = "0.1.0"
	}
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NopMetrics{}
	}

	return &Client{
		config:  config,
		logger:  config.Logger,
		metrics: config.Metrics,
	}, nil
}

// Connect spawns the server, performs the handshake and leaves the
// session Ready. The capability caches start empty.
func (c *Client) Connect(ctx context.Context) error {
	tr := c.config.Transport
	if tr == nil {
		tr = transport.NewStdio(transport.Config{
			Command: c.config.Command,
			Args:    c.config.Args,
			Env:     c.config.Env,
			Stderr:  c.config.Stderr,
			Logger:  c.logger,
		})
	}

	s, err := session.New(session.Config{
		Transport:      tr,
		ClientInfo:     c.config.ClientInfo,
		DefaultTimeout: c.config.DefaultTimeout,
		Policy:         c.config.Policy,
		Logger:         c.logger,
		Metrics:        c.metrics,
		Tracer:         c.config.Tracer,
		OnNotification: c.config.OnNotification,
	})
	if err != nil {
		return err
	}

	if err := s.Connect(ctx); err != nil {
		return err
	}

	c.cacheMu.Lock()
	prior := c.session
	c.session = s
	c.tools = nil
	c.toolIndex = nil
	c.toolsFetched = false
	c.resources = nil
	c.prompts = nil
	c.cacheMu.Unlock()

	// A reconnect replaces the session; release the old one so its loops
	// and server process do not outlive it.
	if prior != nil {
		_ = prior.Close()
	}
	return nil
}

// Close shuts the session down and terminates the server process
func (c *Client) Close() error {
	c.cacheMu.RLock()
	s := c.session
	c.cacheMu.RUnlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

// ServerInfo returns the server identity captured during the handshake
func (c *Client) ServerInfo() protocol.ServerInfo {
	c.cacheMu.RLock()
	s := c.session
	c.cacheMu.RUnlock()
	if s == nil {
		return protocol.ServerInfo{}
	}
	return s.ServerInfo()
}

// State returns the session lifecycle state
func (c *Client) State() session.State {
	c.cacheMu.RLock()
	s := c.session
	c.cacheMu.RUnlock()
	if s == nil {
		return session.StateUninitialized
	}
	return s.State()
}

func (c *Client) currentSession() (*session.Session, error) {
	c.cacheMu.RLock()
	s := c.session
	c.cacheMu.RUnlock()
	if s == nil {
		return nil, mcperrors.SessionNotReady(session.StateUninitialized.String())
	}
	return s, nil
}

// ListTools fetches the tool catalog and replaces the cache with it. An
// empty catalog is valid and yields an empty slice.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	s, err := c.currentSession()
	if err != nil {
		return nil, err
	}

	raw, err := s.Request(ctx, protocol.MethodListTools, nil)
	if err != nil {
		return nil, err
	}

	var result protocol.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.MalformedMessage("invalid tools/list result", err)
	}
	if result.Tools == nil {
		result.Tools = []protocol.Tool{}
	}

	index := make(map[string]protocol.Tool, len(result.Tools))
	for _, tool := range result.Tools {
		index[tool.Name] = tool
	}

	c.cacheMu.Lock()
	c.tools = result.Tools
	c.toolIndex = index
	c.toolsFetched = true
	c.cacheMu.Unlock()

	c.logger.Debug("tool catalog refreshed", logging.Int("tools", len(result.Tools)))
	return append([]protocol.Tool(nil), result.Tools...), nil
}

// FindTool looks a tool up in the cached catalog
func (c *Client) FindTool(name string) (protocol.Tool, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	tool, ok := c.toolIndex[name]
	return tool, ok
}

// Tools returns the cached tool catalog without touching the server
func (c *Client) Tools() []protocol.Tool {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return append([]protocol.Tool(nil), c.tools...)
}

// ListResources fetches the resource catalog and replaces the cache
func (c *Client) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	s, err := c.currentSession()
	if err != nil {
		return nil, err
	}

	raw, err := s.Request(ctx, protocol.MethodListResources, nil)
	if err != nil {
		return nil, err
	}

	var result protocol.ListResourcesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.MalformedMessage("invalid resources/list result", err)
	}
	if result.Resources == nil {
		result.Resources = []protocol.Resource{}
	}

	c.cacheMu.Lock()
	c.resources = result.Resources
	c.cacheMu.Unlock()

	return append([]protocol.Resource(nil), result.Resources...), nil
}

// ListPrompts fetches the prompt catalog and replaces the cache
func (c *Client) ListPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	s, err := c.currentSession()
	if err != nil {
		return nil, err
	}

	raw, err := s.Request(ctx, protocol.MethodListPrompts, nil)
	if err != nil {
		return nil, err
	}

	var result protocol.ListPromptsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.MalformedMessage("invalid prompts/list result", err)
	}
	if result.Prompts == nil {
		result.Prompts = []protocol.Prompt{}
	}

	c.cacheMu.Lock()
	c.prompts = result.Prompts
	c.cacheMu.Unlock()

	return append([]protocol.Prompt(nil), result.Prompts...), nil
}

// CallTool invokes a tool and decodes its result content. When the tool
// catalog has been fetched, the name and required arguments are checked
// against it before anything is written: an unknown tool or a missing
// required argument fails locally with zero bytes on the wire.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) ([]protocol.ContentBlock, error) {
	s, err := c.currentSession()
	if err != nil {
		return nil, err
	}

	if err := c.validateCall(name, arguments); err != nil {
		return nil, err
	}

	started := time.Now()
	blocks, err := c.callTool(ctx, s, name, arguments)

	status := "ok"
	if err != nil {
		if mcpErr, ok := mcperrors.AsMCPError(err); ok {
			status = mcperrors.GetCodeName(mcpErr.Code())
		} else {
			status = "error"
		}
	}
	c.metrics.RecordToolCall(name, status, time.Since(started))

	return blocks, err
}

func (c *Client) validateCall(name string, arguments map[string]interface{}) error {
	c.cacheMu.RLock()
	fetched := c.toolsFetched
	tool, known := c.toolIndex[name]
	c.cacheMu.RUnlock()

	if !fetched {
		// Nothing to validate against; the server is the authority.
		return nil
	}
	if !known {
		return mcperrors.ToolNotFound(name)
	}

	schema, err := tool.Schema()
	if err != nil {
		return err
	}
	if missing := schema.MissingRequired(arguments); len(missing) > 0 {
		return mcperrors.ArgumentValidation(name, missing)
	}
	return nil
}

func (c *Client) callTool(ctx context.Context, s *session.Session, name string, arguments map[string]interface{}) ([]protocol.ContentBlock, error) {
	params := protocol.CallToolParams{Name: name, Arguments: arguments}
	raw, err := s.Request(ctx, protocol.MethodCallTool, params)
	if err != nil {
		return nil, err
	}

	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.MalformedMessage("invalid tools/call result", err)
	}

	blocks := protocol.DecodeContent(result.Content, protocol.ContentOptions{
		DecodeJSONText: !c.config.DisableJSONTextDecoding,
	})

	if result.IsError {
		return blocks, mcperrors.ToolExecutionFailed(name, firstText(blocks))
	}
	return blocks, nil
}

// ReadResource reads a resource by URI and decodes its content
func (c *Client) ReadResource(ctx context.Context, uri string) ([]protocol.ContentBlock, error) {
	s, err := c.currentSession()
	if err != nil {
		return nil, err
	}

	raw, err := s.Request(ctx, protocol.MethodReadResource, protocol.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, err
	}

	var result protocol.ReadResourceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.MalformedMessage("invalid resources/read result", err)
	}

	return protocol.DecodeContent(result.Content, protocol.ContentOptions{
		DecodeJSONText: !c.config.DisableJSONTextDecoding,
	}), nil
}

// Ping checks server liveness
func (c *Client) Ping(ctx context.Context) error {
	s, err := c.currentSession()
	if err != nil {
		return err
	}
	_, err = s.Request(ctx, protocol.MethodPing, nil)
	return err
}

func firstText(blocks []protocol.ContentBlock) string {
	for _, b := range blocks {
		if b.Kind == protocol.ContentText {
			return b.Text
		}
	}
	return ""
}
