package mcp

import (
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// convertGenaiToJSONSchema converts a Gemini genai.Schema into JSON Schema
func convertGenaiToJSONSchema(schema *genai.Schema) (*jsonschema.Schema, error) {
	if schema == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}

	out := &jsonschema.Schema{
		Description: schema.Description,
	}

	switch schema.Type {
	case genai.TypeObject:
		out.Type = "object"
	case genai.TypeString:
		out.Type = "string"
	case genai.TypeInteger:
		out.Type = "integer"
	case genai.TypeNumber:
		out.Type = "number"
	case genai.TypeBoolean:
		out.Type = "boolean"
	case genai.TypeArray:
		out.Type = "array"
	case "":
	default:
		return nil, goerr.New("unsupported schema type", goerr.V("type", strings.ToLower(string(schema.Type))))
	}

	if len(schema.Enum) > 0 {
		out.Enum = make([]any, len(schema.Enum))
		for i, v := range schema.Enum {
			out.Enum[i] = v
		}
	}

	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*jsonschema.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			converted, err := convertGenaiToJSONSchema(prop)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert property schema", goerr.V("property", name))
			}
			out.Properties[name] = converted
		}
	}

	if len(schema.Required) > 0 {
		out.Required = schema.Required
	}

	if schema.Items != nil {
		converted, err := convertGenaiToJSONSchema(schema.Items)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert items schema")
		}
		out.Items = converted
	}

	return out, nil
}
