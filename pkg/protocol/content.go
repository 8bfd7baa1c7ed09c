package protocol

import (
	"encoding/json"
	"strings"
)

// ContentKind tags a ContentBlock variant
type ContentKind string

const (
	// ContentText is a plain text item
	ContentText ContentKind = "text"
	// ContentStructured is a text item whose payload parsed as JSON
	ContentStructured ContentKind = "structured"
	// ContentOpaque is any non-text item, kept as raw JSON
	ContentOpaque ContentKind = "opaque"
)

// ContentBlock is one unit of a tool or resource result. Exactly one of
// the payload fields is populated, selected by Kind. The decision is made
// once at decode time; consumers switch on Kind and never re-inspect raw
// shapes.
type ContentBlock struct {
	Kind       ContentKind
	Text       string
	Structured interface{}
	Opaque     json.RawMessage
}

// TextContent creates a text block
func TextContent(text string) ContentBlock {
	return ContentBlock{Kind: ContentText, Text: text}
}

// StructuredContent creates a structured block from a decoded JSON value
func StructuredContent(value interface{}) ContentBlock {
	return ContentBlock{Kind: ContentStructured, Structured: value}
}

// OpaqueContent creates an opaque block from a raw item
func OpaqueContent(raw json.RawMessage) ContentBlock {
	return ContentBlock{Kind: ContentOpaque, Opaque: raw}
}

// ContentOptions configures content decoding
type ContentOptions struct {
	// DecodeJSONText enables the best-effort heuristic that promotes a
	// text item to Structured when its payload parses as JSON. A server
	// emitting plain text that happens to be valid JSON (a bare number,
	// say) is then decoded as Structured; disable if that is unwanted.
	DecodeJSONText bool
}

// DecodeContent converts raw result content items into typed blocks.
// Decoding is best-effort and never fails: text items stay Text when their
// payload is not JSON (or the heuristic is off), and any non-text item
// shape becomes Opaque.
func DecodeContent(items []json.RawMessage, opts ContentOptions) []ContentBlock {
	blocks := make([]ContentBlock, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, decodeContentItem(item, opts))
	}
	return blocks
}

func decodeContentItem(item json.RawMessage, opts ContentOptions) ContentBlock {
	var shim struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(item, &shim); err != nil || shim.Type != "text" {
		return OpaqueContent(item)
	}

	if opts.DecodeJSONText {
		trimmed := strings.TrimSpace(shim.Text)
		if trimmed != "" {
			var value interface{}
			if err := json.Unmarshal([]byte(trimmed), &value); err == nil {
				return StructuredContent(value)
			}
		}
	}

	return TextContent(shim.Text)
}
