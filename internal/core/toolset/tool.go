// Package toolset exposes retrieval capabilities to the model as named,
// schema-described tools, and the registry that dispatches them.
package toolset

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// Tool is a capability the model may invoke. Execute never returns an
// error: every failure mode resolves to a textual result so that the
// model (and ultimately the user) always sees a plain-language message.
// Citations returns the source attributions recorded by the most recent
// execution; tools that do not attribute sources return nil.
type Tool interface {
	Definition() domain.ToolDefinition
	Execute(ctx context.Context, args map[string]any) string
	Citations() []string
	ResetCitations()
}

// describedString builds a string property schema. Description is a
// plain field on openapi3.Schema, not part of its builder chain.
func describedString(description string) *openapi3.Schema {
	schema := openapi3.NewStringSchema()
	schema.Description = description
	return schema
}

func describedInteger(description string) *openapi3.Schema {
	schema := openapi3.NewIntegerSchema()
	schema.Description = description
	return schema
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	value, ok := args[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

// intArgPtr distinguishes "absent" from an explicit zero. Arguments
// arrive JSON-decoded, so numbers are usually float64.
func intArgPtr(args map[string]any, key string) *int {
	if args == nil {
		return nil
	}
	value, ok := args[key]
	if !ok || value == nil {
		return nil
	}
	var n int
	switch typed := value.(type) {
	case float64:
		n = int(typed)
	case int:
		n = typed
	case int64:
		n = int(typed)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}
