package newstrader

import (
	"context"
	"fmt"
	"strings"
)

// Token and temperature defaults shared by every backend adapter.
const (
	defaultMaxTokens = 1000
	retryMaxTokens   = 400
	retryTemperature = 0.3
	verifyMaxTokens  = 5
)

// InvokeOptions tunes a single free-form completion call. A zero MaxTokens
// means defaultMaxTokens; a nil Temperature leaves the backend default.
type InvokeOptions struct {
	MaxTokens   int
	Temperature *float64
}

func (o InvokeOptions) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return defaultMaxTokens
}

// Provider is the uniform surface the resolver talks to. One instance wraps
// one backend plus one model; instances are safe for sequential reuse but not
// required to be goroutine-safe.
type Provider interface {
	// Name returns the backend identifier ("anthropic", "openai", ...).
	Name() string
	// Model returns the configured model identifier.
	Model() string
	// Verify performs a minimal live round-trip to prove the backend is
	// reachable with the configured credentials.
	Verify(ctx context.Context) error
	// Invoke runs a free-form completion and returns the raw text.
	Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error)
	// InvokeStructured requests a schema-constrained completion and returns
	// the decoded candidate object. A (nil, nil) return means the backend
	// could not honor the schema request; the caller falls through to
	// free-form resolution.
	InvokeStructured(ctx context.Context, prompt string, maxTokens int) (map[string]any, error)
	// ContextSize reports the model's context window in tokens when the
	// backend can be probed for it. ok=false means unknown.
	ContextSize(ctx context.Context) (int, bool)
}

// ProviderConfig selects and parameterizes a backend adapter.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewProvider builds the adapter for the configured backend. The context is
// only used for client construction (the Gemini SDK requires one); calls are
// bounded by their own contexts.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "anthropic", "claude":
		return newAnthropicProvider(cfg)
	case "openai", "chatgpt":
		return newOpenAIProvider(cfg)
	case "gemini", "google":
		return newGeminiProvider(ctx, cfg)
	case "ollama":
		return newOllamaProvider(cfg), nil
	}
	return nil, NewError(ErrCodeUnsupported, fmt.Sprintf("unsupported AI provider: %q", cfg.Provider))
}

// recommendationSchemaProperties describes the recommendation object in
// JSON-schema terms, shared by the OpenAI response-format and Anthropic
// tool-input encodings.
func recommendationSchemaProperties() map[string]any {
	return map[string]any{
		FieldRecommendation: map[string]any{
			"type": "string",
			"enum": RecommendationActions,
		},
		FieldQuantity: map[string]any{
			"type":        "integer",
			"description": "Positive for Buy/Add, negative for Sell/Reduce, 0 for Hold.",
		},
		FieldReasoning: map[string]any{
			"type": "string",
		},
		FieldQuantityReasoning: map[string]any{
			"type": "string",
		},
		FieldConfidence: map[string]any{
			"type": "string",
			"enum": ConfidenceLevels,
		},
		FieldTargetPrice: map[string]any{
			"type": []string{"number", "null"},
		},
		FieldStopLoss: map[string]any{
			"type": []string{"number", "null"},
		},
	}
}

// recommendationSchemaMap returns the full JSON-schema object for backends
// that take one document rather than a property map.
func recommendationSchemaMap() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": recommendationSchemaProperties(),
		"required":   RequiredFields,
	}
}
