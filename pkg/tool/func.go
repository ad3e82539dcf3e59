package tool

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Handler is a typed tool body. Arguments are decoded into T before it runs.
type Handler[T any] func(ctx context.Context, args T) (map[string]any, error)

// Func adapts a Handler into a Tool with a single function declaration.
type Func[T any] struct {
	decl    *genai.FunctionDeclaration
	prompt  string
	handler Handler[T]
}

var _ Tool = (*Func[struct{}])(nil)

// NewFunc creates a typed tool.
func NewFunc[T any](decl *genai.FunctionDeclaration, handler Handler[T]) *Func[T] {
	return &Func[T]{decl: decl, handler: handler}
}

// WithPrompt attaches a system prompt fragment to the tool.
func (f *Func[T]) WithPrompt(prompt string) *Func[T] {
	f.prompt = prompt
	return f
}

// Name returns the function name.
func (f *Func[T]) Name() string {
	return f.decl.Name
}

func (f *Func[T]) Spec() *genai.Tool {
	return &genai.Tool{FunctionDeclarations: []*genai.FunctionDeclaration{f.decl}}
}

func (f *Func[T]) Prompt(ctx context.Context) string {
	return f.prompt
}

func (f *Func[T]) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	args, err := DecodeArgs[T](fc.Args)
	if err != nil {
		return nil, err
	}

	out, err := f.handler(ctx, args)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return &genai.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: out}, nil
}

// DecodeArgs converts model supplied arguments into T and validates them.
func DecodeArgs[T any](raw map[string]any) (T, error) {
	var args T
	if raw == nil {
		raw = map[string]any{}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return args, goerr.Wrap(err, "failed to encode arguments")
	}
	if err := json.Unmarshal(data, &args); err != nil {
		return args, NewError("invalid_arguments", "check argument names and types against the function schema",
			goerr.Wrap(err, "failed to decode arguments"))
	}

	if v, ok := any(&args).(Validator); ok {
		if err := v.Validate(); err != nil {
			return args, err
		}
	}
	return args, nil
}

// ToMap converts a JSON-serializable value into a response map.
func ToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode tool result")
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tool result")
	}
	return out, nil
}
