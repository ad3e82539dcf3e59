package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/tool"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"
)

// Server exposes a tool registry over the Model Context Protocol.
type Server struct {
	server   *mcp.Server
	registry *tool.Registry
}

// NewServer registers every function declared in registry as an MCP tool.
func NewServer(registry *tool.Registry, version string) (*Server, error) {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "spotter",
			Version: version,
		}, nil),
		registry: registry,
	}

	for _, decl := range registry.Declarations() {
		schema, err := convertGenaiToJSONSchema(decl.Parameters)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert tool schema", goerr.V("tool", decl.Name))
		}
		s.server.AddTool(&mcp.Tool{
			Name:        decl.Name,
			Description: decl.Description,
			InputSchema: schema,
		}, s.handler(decl.Name))
	}

	return s, nil
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return textResult(map[string]any{
					"error": "invalid_arguments",
					"hint":  "arguments must be a JSON object",
				}, true)
			}
		}

		resp := s.registry.Dispatch(ctx, genai.FunctionCall{Name: name, Args: args})
		_, failed := resp.Response["error"]
		if failed {
			logging.From(ctx).Debug("mcp tool returned error", "tool", name, "response", resp.Response)
		}
		return textResult(resp.Response, failed)
	}
}

func textResult(payload map[string]any, isError bool) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: isError,
	}, nil
}

// RunStdio serves on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// HTTPHandler serves the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
