package toolset

import (
	"context"
	"fmt"
	"sync"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// Registry holds the tools exposed to the model. Registration order is
// preserved: tool definitions sent to the model and citation collection
// both follow it.
//
// The query path builds one registry per query, but the MCP server
// shares a single registry across concurrent calls. The mutex covers
// tool execution as well as citation access, since tools record
// citations inside Execute.
type Registry struct {
	mu    sync.Mutex
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()
	r.mu.Lock()
	defer r.mu.Unlock()
	if def.Name == "" {
		return fmt.Errorf("tool must have a name in its definition")
	}
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = tool
	return nil
}

// Definitions returns tool definitions in registration order.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches to the named tool. Unknown names and argument
// validation failures come back as textual results so the model can
// read and recover from them.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	tool, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name)
	}
	if schema := tool.Definition().InputSchema; schema != nil {
		if args == nil {
			args = map[string]any{}
		}
		if err := schema.VisitJSON(args); err != nil {
			return fmt.Sprintf("Invalid arguments for tool '%s': %s", name, err)
		}
	}
	return tool.Execute(ctx, args)
}

// Citations gathers the sources recorded by each tool since the last
// reset, in registration order.
func (r *Registry) Citations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, name := range r.order {
		out = append(out, r.tools[name].Citations()...)
	}
	return out
}

func (r *Registry) ResetCitations() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tool := range r.tools {
		tool.ResetCitations()
	}
}
