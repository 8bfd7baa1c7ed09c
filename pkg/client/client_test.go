package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
	"github.com/mcpwire/mcpwire/pkg/protocol"
	"github.com/mcpwire/mcpwire/pkg/session"
	"github.com/mcpwire/mcpwire/pkg/transport"
)

const handshakeResult = `{"serverInfo":{"name":"scripted","version":"1.0"},"protocolVersion":"2024-11-05"}`

// scriptedServer answers requests from a method->result table over
// in-memory pipes.
type scriptedServer struct {
	out     *io.PipeWriter
	in      *bufio.Reader
	results map[string]string
	frames  chan []byte
}

func (ss *scriptedServer) serve() {
	for {
		line, err := ss.in.ReadBytes('\n')
		if err != nil {
			close(ss.frames)
			return
		}
		frame := line[:len(line)-1]
		ss.frames <- append([]byte(nil), frame...)

		msg, err := protocol.Decode(frame)
		if err != nil {
			continue
		}
		req, ok := msg.(*protocol.Request)
		if !ok {
			continue
		}

		result, scripted := ss.results[req.Method]
		if !scripted {
			result = `{}`
		}
		// Scripted results may be indented multi-line literals; compact
		// them so each reply is exactly one frame.
		reply := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, result)
		var compact bytes.Buffer
		if err := json.Compact(&compact, []byte(reply)); err != nil {
			continue
		}
		compact.WriteByte('\n')
		if _, err := ss.out.Write(compact.Bytes()); err != nil {
			return
		}
	}
}

// drainFrames returns every frame the client has written so far
func (ss *scriptedServer) drainFrames() [][]byte {
	var frames [][]byte
	for {
		select {
		case f := <-ss.frames:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func newConnectedClient(t *testing.T, results map[string]string, mutate ...func(*ServerConfig)) (*Client, *scriptedServer) {
	t.Helper()
	if _, ok := results[protocol.MethodInitialize]; !ok {
		results[protocol.MethodInitialize] = handshakeResult
	}

	clientReads, serverWrites := io.Pipe()
	serverReads, clientWrites := io.Pipe()

	ss := &scriptedServer{
		out:     serverWrites,
		in:      bufio.NewReader(serverReads),
		results: results,
		frames:  make(chan []byte, 64),
	}
	go ss.serve()

	config := ServerConfig{
		Transport: transport.NewStdio(transport.Config{
			Reader: clientReads,
			Writer: clientWrites,
		}),
	}
	for _, m := range mutate {
		m(&config)
	}

	c, err := New(config)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	return c, ss
}

func TestConnectAndServerInfo(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{})

	info := c.ServerInfo()
	assert.Equal(t, "scripted", info.Name)
	assert.Equal(t, "2024-11-05", info.ProtocolVersion)
}

func TestListToolsEmptyCatalog(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodListTools: `{"tools":[]}`,
	})

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tools)
	assert.Empty(t, tools)
}

func TestListToolsReplacesCacheWholesale(t *testing.T) {
	c, ss := newConnectedClient(t, map[string]string{
		protocol.MethodListTools: `{"tools":[{"name":"alpha"},{"name":"beta"}]}`,
	})

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 2)
	_, ok := c.FindTool("beta")
	assert.True(t, ok)

	// The server drops beta; the refresh must leave no stale entry.
	ss.results[protocol.MethodListTools] = `{"tools":[{"name":"alpha"}]}`
	tools, err = c.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)

	_, ok = c.FindTool("beta")
	assert.False(t, ok)
	_, ok = c.FindTool("alpha")
	assert.True(t, ok)
}

func TestCallToolDecodesStructuredContent(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodCallTool: `{"content":[{"type":"text","text":"{\"results\":[]}"}]}`,
	})

	blocks, err := c.CallTool(context.Background(), "search_contacts", map[string]interface{}{"query": "smith"})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, protocol.ContentStructured, blocks[0].Kind)
	assert.Equal(t, map[string]interface{}{"results": []interface{}{}}, blocks[0].Structured)
}

func TestCallToolPlainTextWhenHeuristicDisabled(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodCallTool: `{"content":[{"type":"text","text":"{\"results\":[]}"}]}`,
	}, func(config *ServerConfig) {
		config.DisableJSONTextDecoding = true
	})

	blocks, err := c.CallTool(context.Background(), "search_contacts", nil)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, protocol.ContentText, blocks[0].Kind)
	assert.Equal(t, `{"results":[]}`, blocks[0].Text)
}

func TestCallToolMissingRequiredArgument(t *testing.T) {
	c, ss := newConnectedClient(t, map[string]string{
		protocol.MethodListTools: `{"tools":[{
			"name":"send_message",
			"inputSchema":{
				"type":"object",
				"properties":{"recipient":{"type":"string"},"body":{"type":"string"}},
				"required":["recipient","body"]
			}
		}]}`,
	})

	_, err := c.ListTools(context.Background())
	require.NoError(t, err)
	ss.drainFrames()

	_, err = c.CallTool(context.Background(), "send_message", map[string]interface{}{"body": "hi"})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeArgumentValidation))

	mcpErr, ok := mcperrors.AsMCPError(err)
	require.True(t, ok)
	data, ok := mcpErr.Data().(*mcperrors.ValidationErrorData)
	require.True(t, ok)
	assert.Equal(t, []string{"recipient"}, data.Missing)

	// The failed call must put zero bytes on the wire.
	assert.Empty(t, ss.drainFrames())
}

func TestCallToolUnknownToolAfterFetch(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodListTools: `{"tools":[{"name":"alpha"}]}`,
	})

	_, err := c.ListTools(context.Background())
	require.NoError(t, err)

	_, err = c.CallTool(context.Background(), "no_such_tool", nil)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeToolNotFound))
}

func TestCallToolSkipsValidationBeforeFetch(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodCallTool: `{"content":[{"type":"text","text":"ok"}]}`,
	})

	// No catalog yet, so the call goes straight to the server.
	blocks, err := c.CallTool(context.Background(), "anything", nil)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
}

func TestCallToolIsErrorResult(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodCallTool: `{"content":[{"type":"text","text":"disk full"}],"isError":true}`,
	})

	blocks, err := c.CallTool(context.Background(), "write_file", nil)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeToolExecutionFailed))
	assert.ErrorContains(t, err, "disk full")
	// Content is still decoded and returned alongside the error.
	require.Len(t, blocks, 1)
}

func TestReadResourceAcceptsEitherPayloadSpelling(t *testing.T) {
	c, ss := newConnectedClient(t, map[string]string{
		protocol.MethodReadResource: `{"contents":[{"type":"text","text":"hello"}]}`,
	})

	blocks, err := c.ReadResource(context.Background(), "file:///tmp/a.txt")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "hello", blocks[0].Text)

	ss.results[protocol.MethodReadResource] = `{"content":[{"type":"text","text":"world"}]}`
	blocks, err = c.ReadResource(context.Background(), "file:///tmp/b.txt")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "world", blocks[0].Text)
}

func TestListResourcesAndPrompts(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodListResources: `{"resources":[{"uri":"file:///data","name":"data"}]}`,
		protocol.MethodListPrompts:   `{"prompts":[{"name":"summarize","arguments":[{"name":"text","required":true}]}]}`,
	})

	resources, err := c.ListResources(context.Background())
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "file:///data", resources[0].URI)

	prompts, err := c.ListPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "summarize", prompts[0].Name)
	assert.True(t, prompts[0].Arguments[0].Required)
}

func TestPing(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodPing: `{}`,
	})
	require.NoError(t, c.Ping(context.Background()))
}

func TestOperationsBeforeConnect(t *testing.T) {
	c, err := New(ServerConfig{Command: "server"})
	require.NoError(t, err)

	_, err = c.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeSessionNotReady))

	require.NoError(t, c.Close())
}

func TestReconnectClosesPriorSessionAndClearsCaches(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodListTools: `{"tools":[{"name":"alpha"}]}`,
	})

	_, err := c.ListTools(context.Background())
	require.NoError(t, err)
	first := c.session

	clientReads, serverWrites := io.Pipe()
	serverReads, clientWrites := io.Pipe()
	second := &scriptedServer{
		out: serverWrites,
		in:  bufio.NewReader(serverReads),
		results: map[string]string{
			protocol.MethodInitialize: `{"serverInfo":{"name":"second","version":"2.0"},"protocolVersion":"2024-11-05"}`,
		},
		frames: make(chan []byte, 64),
	}
	go second.serve()
	c.config.Transport = transport.NewStdio(transport.Config{
		Reader: clientReads,
		Writer: clientWrites,
	})

	require.NoError(t, c.Connect(context.Background()))

	// The replaced session must be fully released, not left running.
	assert.Equal(t, session.StateClosed, first.State())
	assert.Equal(t, "second", c.ServerInfo().Name)

	_, ok := c.FindTool("alpha")
	assert.False(t, ok, "reconnect must clear the capability caches")
}

func TestCallToolOpaqueContent(t *testing.T) {
	c, _ := newConnectedClient(t, map[string]string{
		protocol.MethodCallTool: `{"content":[{"type":"image","data":"aGk=","mimeType":"image/png"}]}`,
	})

	blocks, err := c.CallTool(context.Background(), "screenshot", nil)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, protocol.ContentOpaque, blocks[0].Kind)

	var item map[string]interface{}
	require.NoError(t, json.Unmarshal(blocks[0].Opaque, &item))
	assert.Equal(t, "image", item["type"])
}
