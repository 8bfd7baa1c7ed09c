package protocol

import (
	"encoding/json"
	"fmt"

	mcperrors "github.com/mcpwire/mcpwire/pkg/errors"
)

// MaxSchemaDepth caps schema tree recursion. Schemas come from an
// untrusted subprocess; pathological nesting must not recurse unboundedly.
const MaxSchemaDepth = 32

// SchemaNode is one node of a tool input schema. Only the members needed
// for pre-flight required-argument checks are modeled; anything else in
// the server's schema is ignored.
type SchemaNode struct {
	Type        string                 `json:"type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*SchemaNode `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
}

// ParseSchema parses a raw JSON schema into a SchemaNode tree, enforcing
// MaxSchemaDepth. Empty or absent input yields nil without error.
func ParseSchema(raw json.RawMessage) (*SchemaNode, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return parseSchemaNode(raw, 0)
}

func parseSchemaNode(raw json.RawMessage, depth int) (*SchemaNode, error) {
	if depth > MaxSchemaDepth {
		return nil, mcperrors.SchemaTooDeep(MaxSchemaDepth)
	}

	var shim struct {
		Type        string                     `json:"type"`
		Description string                     `json:"description"`
		Properties  map[string]json.RawMessage `json:"properties"`
		Required    []string                   `json:"required"`
	}
	if err := json.Unmarshal(raw, &shim); err != nil {
		return nil, fmt.Errorf("parse schema node: %w", err)
	}

	node := &SchemaNode{
		Type:        shim.Type,
		Description: shim.Description,
		Required:    shim.Required,
	}

	if len(shim.Properties) > 0 {
		node.Properties = make(map[string]*SchemaNode, len(shim.Properties))
		for name, rawChild := range shim.Properties {
			child, err := parseSchemaNode(rawChild, depth+1)
			if err != nil {
				return nil, err
			}
			node.Properties[name] = child
		}
	}

	return node, nil
}

// MissingRequired returns the top-level required property names absent
// from args, in schema order. A nil node requires nothing.
func (n *SchemaNode) MissingRequired(args map[string]interface{}) []string {
	if n == nil {
		return nil
	}
	var missing []string
	for _, name := range n.Required {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
