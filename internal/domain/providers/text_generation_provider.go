package providers

import (
	"context"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
)

// GenerateRequest is a single prompt for one engine.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ObjectSchema constrains a structured response to a JSON schema.
type ObjectSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// TextGenerationProvider calls the AI answer engines.
type TextGenerationProvider interface {
	// HasCredential reports whether a credential is configured for the engine
	HasCredential(engine entities.EngineID) bool

	// GenerateText returns the engine's free-text answer
	GenerateText(ctx context.Context, engine entities.EngineID, req GenerateRequest) (string, error)

	// GenerateObject returns the raw JSON object the engine produced for the schema
	GenerateObject(ctx context.Context, engine entities.EngineID, req GenerateRequest, schema ObjectSchema) ([]byte, error)
}
