package protocol

import "encoding/json"

// Resource describes a readable resource advertised by the server
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ListResourcesResult is the result of resources/list
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ReadResourceParams are the params of resources/read
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult is the result of resources/read. Some servers spell
// the payload member "content", others "contents"; both are accepted.
type ReadResourceResult struct {
	Content []json.RawMessage `json:"content"`
}

// UnmarshalJSON accepts either spelling of the payload member
func (r *ReadResourceResult) UnmarshalJSON(data []byte) error {
	var shim struct {
		Content  []json.RawMessage `json:"content"`
		Contents []json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(data, &shim); err != nil {
		return err
	}
	if shim.Content != nil {
		r.Content = shim.Content
	} else {
		r.Content = shim.Contents
	}
	return nil
}
