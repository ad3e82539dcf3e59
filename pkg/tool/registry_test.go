package tool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/tool"
	"google.golang.org/genai"
)

type echoArgs struct {
	Text  string `json:"text"`
	Times int    `json:"times"`
}

func (a *echoArgs) Validate() error {
	if a.Text == "" {
		return tool.NewError("invalid_arguments", "text is required", nil)
	}
	return nil
}

func newTestRegistry() *tool.Registry {
	echo := tool.NewFunc(&genai.FunctionDeclaration{Name: "echo"},
		func(ctx context.Context, args echoArgs) (map[string]any, error) {
			return map[string]any{"text": args.Text, "times": args.Times}, nil
		}).WithPrompt("echo repeats text")

	fail := tool.NewFunc(&genai.FunctionDeclaration{Name: "fail"},
		func(ctx context.Context, args struct{}) (map[string]any, error) {
			return nil, errors.New("backend down")
		})

	boom := tool.NewFunc(&genai.FunctionDeclaration{Name: "boom"},
		func(ctx context.Context, args struct{}) (map[string]any, error) {
			panic("kaboom")
		})

	return tool.New(echo, fail, boom)
}

func TestRegistrySpecs(t *testing.T) {
	r := newTestRegistry()

	specs := r.Specs()
	gt.A(t, specs).Length(1)
	gt.A(t, specs[0].FunctionDeclarations).Length(3)
	gt.Equal(t, r.Names(), []string{"echo", "fail", "boom"})
	gt.Equal(t, r.Prompts(context.Background()), "echo repeats text")
}

func TestRegistryDispatch(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	t.Run("typed args", func(t *testing.T) {
		resp := r.Dispatch(ctx, genai.FunctionCall{ID: "c1", Name: "echo", Args: map[string]any{"text": "hi", "times": float64(2)}})
		gt.Equal(t, resp.ID, "c1")
		gt.Equal(t, resp.Response["text"], any("hi"))
		gt.Equal(t, resp.Response["times"], any(2))
	})

	t.Run("validation error", func(t *testing.T) {
		resp := r.Dispatch(ctx, genai.FunctionCall{Name: "echo", Args: map[string]any{}})
		gt.Equal(t, resp.Response["error"], any("invalid_arguments"))
		gt.Equal(t, resp.Response["hint"], any("text is required"))
	})

	t.Run("wrong type", func(t *testing.T) {
		resp := r.Dispatch(ctx, genai.FunctionCall{Name: "echo", Args: map[string]any{"text": "x", "times": "many"}})
		gt.Equal(t, resp.Response["error"], any("invalid_arguments"))
	})

	t.Run("handler error", func(t *testing.T) {
		resp := r.Dispatch(ctx, genai.FunctionCall{Name: "fail"})
		gt.S(t, resp.Response["error"].(string)).Contains("backend down")
	})

	t.Run("panic", func(t *testing.T) {
		resp := r.Dispatch(ctx, genai.FunctionCall{Name: "boom"})
		gt.S(t, resp.Response["error"].(string)).Contains("kaboom")
	})

	t.Run("unknown", func(t *testing.T) {
		resp := r.Dispatch(ctx, genai.FunctionCall{Name: "nope"})
		gt.Equal(t, resp.Response["error"], any("unknown function"))
	})
}

func TestRegistryExecuteUnknown(t *testing.T) {
	_, err := newTestRegistry().Execute(context.Background(), genai.FunctionCall{Name: "nope"})
	gt.Error(t, err)
}

func TestToMap(t *testing.T) {
	m, err := tool.ToMap(struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{"squat", 3})
	gt.NoError(t, err)
	gt.Equal(t, m["name"], any("squat"))
	gt.Equal(t, m["count"], any(float64(3)))
}
