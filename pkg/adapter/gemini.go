package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Gemini is the model endpoint used by the planning loop.
type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
}

type geminiConfig struct {
	apiKey   string
	project  string
	location string
	model    string
}

type GeminiOption func(*geminiConfig)

func WithGenerativeModel(model string) GeminiOption {
	return func(c *geminiConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAPIKey selects the Gemini API backend.
func WithAPIKey(key string) GeminiOption {
	return func(c *geminiConfig) {
		c.apiKey = key
	}
}

// WithVertexAI selects the Vertex AI backend in project and location.
func WithVertexAI(project, location string) GeminiOption {
	return func(c *geminiConfig) {
		c.project = project
		c.location = location
	}
}

// NewGemini creates a client. An API key takes precedence over Vertex AI.
func NewGemini(ctx context.Context, opts ...GeminiOption) (*GeminiClient, error) {
	cfg := &geminiConfig{
		location: "us-central1",
		model:    "gemini-2.5-flash",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	cc := &genai.ClientConfig{}
	switch {
	case cfg.apiKey != "":
		cc.APIKey = cfg.apiKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.project != "":
		cc.Project = cfg.project
		cc.Location = cfg.location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, goerr.New("either Gemini API key or Vertex AI project is required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client", goerr.V("backend", cc.Backend))
	}

	return &GeminiClient{
		client:          client,
		generativeModel: cfg.model,
	}, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.generativeModel))
	}
	return resp, nil
}
