package domain

import "github.com/getkin/kin-openapi/openapi3"

// ToolDefinition is the machine-readable schema handed to the model as
// part of the tool-use protocol. InputSchema is a JSON-schema-shaped
// description of the tool's parameters; it marshals to the wire format
// unmodified.
type ToolDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema *openapi3.Schema `json:"input_schema"`
}
