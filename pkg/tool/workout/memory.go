package workout

import (
	"context"
	"strings"

	"github.com/m-mizutani/spotter/pkg/tool"
	"google.golang.org/genai"
)

type rememberArgs struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (a *rememberArgs) Validate() error {
	a.Key = strings.TrimSpace(a.Key)
	if a.Key == "" || strings.TrimSpace(a.Value) == "" {
		return tool.NewError("invalid_arguments", "key and value are required", nil)
	}
	return nil
}

func newRememberFact(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name:        "remember_fact",
		Description: "Store a durable fact about the user (injury, goal, equipment, preference). Overwrites the same key.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"key":   {Type: genai.TypeString, Description: "Short snake_case key such as injury or goal"},
				"value": {Type: genai.TypeString},
			},
			Required: []string{"key", "value"},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args rememberArgs) (map[string]any, error) {
		if err := client.Memory.SetPinnedFact(ctx, args.Key, args.Value); err != nil {
			return nil, err
		}
		return map[string]any{"status": "ok", "key": args.Key}, nil
	})
}

type searchArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (a *searchArgs) Validate() error {
	if strings.TrimSpace(a.Query) == "" {
		return tool.NewError("invalid_arguments", "query is required", nil)
	}
	return nil
}

func newSearchMemory(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name:        "search_memory",
		Description: "Search earlier conversations by keyword, newest first.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {Type: genai.TypeString},
				"limit": {Type: genai.TypeInteger, Description: "Max results (default 5)"},
			},
			Required: []string{"query"},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args searchArgs) (map[string]any, error) {
		episodes := client.Memory.Search(ctx, args.Query, clampLimit(args.Limit, defaultMemoryLimit, 50))
		return tool.ToMap(map[string]any{
			"results": episodes,
			"count":   len(episodes),
		})
	})
}
