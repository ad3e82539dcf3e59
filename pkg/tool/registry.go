package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"google.golang.org/genai"
)

var errToolNotFound = goerr.New("tool not found")

// Registry manages available tools for the LLM
type Registry struct {
	tools    map[string]Tool
	allTools []Tool
	decls    []*genai.FunctionDeclaration
}

// New creates a new tool registry with the given tools
func New(tools ...Tool) *Registry {
	r := &Registry{
		tools:    make(map[string]Tool),
		allTools: tools,
	}

	for _, t := range tools {
		spec := t.Spec()
		if spec == nil {
			continue
		}
		for _, fd := range spec.FunctionDeclarations {
			if _, dup := r.tools[fd.Name]; dup {
				panic(fmt.Sprintf("tool %q registered twice", fd.Name))
			}
			r.tools[fd.Name] = t
			r.decls = append(r.decls, fd)
		}
	}

	return r
}

// Specs returns all tool specifications for Gemini function calling
func (r *Registry) Specs() []*genai.Tool {
	if len(r.decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: r.decls}}
}

// Declarations returns every function declaration in registration order.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	return r.decls
}

// Names returns registered function names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.decls))
	for _, fd := range r.decls {
		names = append(names, fd.Name)
	}
	return names
}

// Prompts returns all tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.allTools {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Execute runs the tool with the given function call
func (r *Registry) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	tool, ok := r.tools[fc.Name]
	if !ok {
		return nil, goerr.Wrap(errToolNotFound, "tool not found", goerr.V("name", fc.Name))
	}

	return tool.Execute(ctx, fc)
}

// Dispatch runs fc and always returns a response. Unknown names, handler
// errors and panics are turned into {"error": ...} payloads.
func (r *Registry) Dispatch(ctx context.Context, fc genai.FunctionCall) (resp *genai.FunctionResponse) {
	logger := logging.From(ctx).With("tool", fc.Name)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool panicked", "panic", rec)
			resp = &genai.FunctionResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: map[string]any{"error": fmt.Sprintf("internal error: %v", rec)},
			}
		}
	}()

	if _, ok := r.tools[fc.Name]; !ok {
		logger.Warn("unknown function requested")
		return &genai.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: map[string]any{"error": "unknown function", "available": r.Names()},
		}
	}

	out, err := r.Execute(ctx, fc)
	if err != nil {
		logger.Warn("tool failed", "error", err)
		return &genai.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: ErrorResponse(err)}
	}
	if out == nil {
		out = &genai.FunctionResponse{Response: map[string]any{}}
	}
	out.ID, out.Name = fc.ID, fc.Name
	logger.Debug("tool executed", "args", fc.Args)
	return out
}
