package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Provider is an inference service whose output is constrained to a schema.
type Provider interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error)
}

// Config selects the Gemini backend and model.
type Config struct {
	Model    string
	APIKey   string
	Project  string
	Location string
	VertexAI bool
}

// Gemini implements Provider on top of the genai client.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates the shared genai client. Empty fields fall back to the
// GOOGLE_API_KEY / GOOGLE_CLOUD_* environment variables read by genai.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Project:     cfg.Project,
		Location:    cfg.Location,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	}
	if cfg.VertexAI {
		cc.Backend = genai.BackendVertexAI
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{client: client, model: model}, nil
}

// GenerateJSON asks for a JSON document matching schema and returns it with
// any markdown fences removed.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return nil, fmt.Errorf("GenerateJSON: generate content: %w", err)
	}
	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("GenerateJSON: %w", ErrEmptyResponse)
	}
	return []byte(CleanJSON(raw)), nil
}

var _ Provider = (*Gemini)(nil)
