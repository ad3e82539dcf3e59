package tool

import (
	"context"

	"google.golang.org/genai"
)

// Tool is one function the model can call during a planning turn.
type Tool interface {
	// Spec returns the function declaration offered to the model.
	Spec() *genai.Tool

	// Execute handles one call. A returned error is rendered into the
	// response payload by the registry, never surfaced to the loop.
	Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error)

	// Prompt returns usage guidance appended to the system prompt, or "".
	Prompt(ctx context.Context) string
}

// Validator is implemented by tool arguments that check themselves after decoding.
type Validator interface {
	Validate() error
}
