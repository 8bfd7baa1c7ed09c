// Package protocol defines the wire format of the MCP client core: the
// JSON-RPC envelopes, the codec that classifies raw frames, and the typed
// data model for tools, resources, prompts, schemas and result content.
// Everything here is pure: no I/O and no shared state.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
)

// JSONRPCVersion is the JSON-RPC protocol version used by MCP
const JSONRPCVersion = "2.0"

// Message is one complete protocol envelope: a request, response or
// notification. The interface is sealed; only the three envelope types
// implement it.
type Message interface {
	message()
}

// Request is an id-bearing envelope that expects a reply
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response carries either a result or an error for a prior request,
// never both
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a method-bearing envelope with no id and no reply
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (*Request) message()      {}
func (*Response) message()     {}
func (*Notification) message() {}

// Error is the JSON-RPC error member of a response
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("jsonrpc: code %d, message: %s", e.Code, e.Message)
}

// NewRequest creates a request envelope, marshaling params if non-nil
func NewRequest(id int64, method string, params interface{}) (*Request, error) {
	raw, err := marshalPayload(params)
	if err != nil {
		return nil, fmt.Errorf("marshal request params: %w", err)
	}
	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewNotification creates a notification envelope, marshaling params if non-nil
func NewNotification(method string, params interface{}) (*Notification, error) {
	raw, err := marshalPayload(params)
	if err != nil {
		return nil, fmt.Errorf("marshal notification params: %w", err)
	}
	return &Notification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  raw,
	}, nil
}

func marshalPayload(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}

// Encode serializes an envelope to a single line without the trailing
// newline. Output is deterministic: the same envelope always yields the
// same bytes.
func Encode(msg Message) ([]byte, error) {
	switch msg.(type) {
	case *Request, *Response, *Notification:
		return json.Marshal(msg)
	default:
		return nil, fmt.Errorf("encode: unknown message type %T", msg)
	}
}

// probe mirrors the envelope fields needed for classification. Raw id and
// payload members distinguish absent from null; unknown fields are ignored
// for forward compatibility.
type probe struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Decode classifies a single frame into one of the three envelopes.
//
// A frame that is not valid JSON, an id that is not an integer, or an
// id-bearing method-less frame carrying neither or both of result/error
// all yield a MalformedMessage error. The caller decides whether that is
// fatal; for frames read from a live server it is logged and dropped.
func Decode(line []byte) (Message, error) {
	var p probe
	if err := json.Unmarshal(line, &p); err != nil {
		return nil, mcperrors.MalformedMessage("invalid JSON", err)
	}

	hasID := len(p.ID) > 0 && !bytes.Equal(p.ID, []byte("null"))
	hasMethod := p.Method != ""
	hasResult := len(p.Result) > 0
	hasError := len(p.Error) > 0 && !bytes.Equal(p.Error, []byte("null"))

	switch {
	case hasMethod && hasID:
		id, err := decodeID(p.ID)
		if err != nil {
			return nil, err
		}
		return &Request{
			JSONRPC: p.JSONRPC,
			ID:      id,
			Method:  p.Method,
			Params:  p.Params,
		}, nil

	case hasMethod:
		return &Notification{
			JSONRPC: p.JSONRPC,
			Method:  p.Method,
			Params:  p.Params,
		}, nil

	case hasID:
		if hasResult && hasError {
			return nil, mcperrors.MalformedMessage("response carries both result and error", nil)
		}
		if !hasResult && !hasError {
			return nil, mcperrors.MalformedMessage("response carries neither result nor error", nil)
		}
		id, err := decodeID(p.ID)
		if err != nil {
			return nil, err
		}
		resp := &Response{JSONRPC: p.JSONRPC, ID: id}
		if hasError {
			var respErr Error
			if err := json.Unmarshal(p.Error, &respErr); err != nil {
				return nil, mcperrors.MalformedMessage("invalid error member", err)
			}
			resp.Error = &respErr
		} else {
			resp.Result = p.Result
		}
		return resp, nil

	default:
		return nil, mcperrors.MalformedMessage("frame has neither method nor id", nil)
	}
}

func decodeID(raw json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, mcperrors.MalformedMessage(fmt.Sprintf("non-integer id %s", raw), err)
	}
	return id, nil
}
