package tool

import (
	"errors"
)

// Error is a tool failure the model can act on. Code becomes the "error"
// field of the function response and Hint tells the model what to do next.
type Error struct {
	Code string
	Hint string
	Err  error
}

// NewError creates an Error wrapping err.
func NewError(code, hint string, err error) *Error {
	return &Error{Code: code, Hint: hint, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorResponse renders any error as a function response payload.
func ErrorResponse(err error) map[string]any {
	var te *Error
	if errors.As(err, &te) {
		resp := map[string]any{"error": te.Code}
		if te.Hint != "" {
			resp["hint"] = te.Hint
		}
		if te.Err != nil {
			resp["detail"] = te.Err.Error()
		}
		return resp
	}
	return map[string]any{"error": err.Error()}
}
