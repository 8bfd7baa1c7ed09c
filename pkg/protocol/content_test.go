package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeContentStructured(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"type":"text","text":"{\"results\":[]}"}`),
	}

	blocks := DecodeContent(items, ContentOptions{DecodeJSONText: true})
	require.Len(t, blocks, 1)

	assert.Equal(t, ContentStructured, blocks[0].Kind)
	assert.Equal(t, map[string]interface{}{"results": []interface{}{}}, blocks[0].Structured)
}

func TestDecodeContentPlainText(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"type":"text","text":"hello, world"}`),
	}

	blocks := DecodeContent(items, ContentOptions{DecodeJSONText: true})
	require.Len(t, blocks, 1)

	assert.Equal(t, ContentText, blocks[0].Kind)
	assert.Equal(t, "hello, world", blocks[0].Text)
}

func TestDecodeContentHeuristicOff(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"type":"text","text":"{\"results\":[]}"}`),
		json.RawMessage(`{"type":"text","text":"42"}`),
	}

	blocks := DecodeContent(items, ContentOptions{DecodeJSONText: false})
	require.Len(t, blocks, 2)

	assert.Equal(t, ContentText, blocks[0].Kind)
	assert.Equal(t, `{"results":[]}`, blocks[0].Text)
	assert.Equal(t, ContentText, blocks[1].Kind)
	assert.Equal(t, "42", blocks[1].Text)
}

func TestDecodeContentBareNumberHeuristic(t *testing.T) {
	// A bare number is valid JSON, so the heuristic promotes it.
	items := []json.RawMessage{
		json.RawMessage(`{"type":"text","text":"42"}`),
	}

	blocks := DecodeContent(items, ContentOptions{DecodeJSONText: true})
	require.Len(t, blocks, 1)
	assert.Equal(t, ContentStructured, blocks[0].Kind)
	assert.Equal(t, float64(42), blocks[0].Structured)
}

func TestDecodeContentOpaque(t *testing.T) {
	image := json.RawMessage(`{"type":"image","data":"aGk=","mimeType":"image/png"}`)
	items := []json.RawMessage{image}

	blocks := DecodeContent(items, ContentOptions{DecodeJSONText: true})
	require.Len(t, blocks, 1)

	assert.Equal(t, ContentOpaque, blocks[0].Kind)
	assert.Equal(t, image, blocks[0].Opaque)
}

func TestDecodeContentEmptyAndWhitespaceText(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"type":"text","text":""}`),
		json.RawMessage(`{"type":"text","text":"   "}`),
	}

	blocks := DecodeContent(items, ContentOptions{DecodeJSONText: true})
	require.Len(t, blocks, 2)

	// Whitespace-only payloads never promote to Structured.
	assert.Equal(t, ContentText, blocks[0].Kind)
	assert.Equal(t, ContentText, blocks[1].Kind)
	assert.Equal(t, "   ", blocks[1].Text)
}

func TestDecodeContentEmptyInput(t *testing.T) {
	blocks := DecodeContent(nil, ContentOptions{DecodeJSONText: true})
	assert.NotNil(t, blocks)
	assert.Empty(t, blocks)
}
