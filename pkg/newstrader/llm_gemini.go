package newstrader

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"
)

// geminiProvider adapts the Gemini API through the official SDK. Structured
// output uses the native response-schema support with JSON MIME type.
type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGeminiProvider(ctx context.Context, cfg ProviderConfig) (*geminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, NewError(ErrCodeInvalidInput, "gemini provider requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, WrapError(ErrCodeBackend, "failed to create gemini client", err)
	}
	return &geminiProvider{client: client, model: cfg.Model}, nil
}

func (p *geminiProvider) Name() string  { return "gemini" }
func (p *geminiProvider) Model() string { return p.model }

func (p *geminiProvider) Verify(ctx context.Context) error {
	_, err := p.Invoke(ctx, "Say OK", InvokeOptions{MaxTokens: verifyMaxTokens})
	if err != nil {
		return WrapError(ErrCodeBackend, "gemini verification failed", err)
	}
	return nil
}

func (p *geminiProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(opts.maxTokens()),
	}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*opts.Temperature))
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), config)
	if err != nil {
		return "", WrapError(ErrCodeBackend, "gemini completion failed", err)
	}
	return resp.Text(), nil
}

func (p *geminiProvider) InvokeStructured(ctx context.Context, prompt string, maxTokens int) (map[string]any, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens:  int32(maxTokens),
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiRecommendationSchema(),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), config)
	if err != nil {
		return nil, WrapError(ErrCodeBackend, "gemini structured completion failed", err)
	}

	candidate := map[string]any{}
	if err := json.Unmarshal([]byte(resp.Text()), &candidate); err != nil {
		return nil, nil
	}
	return candidate, nil
}

func (p *geminiProvider) ContextSize(ctx context.Context) (int, bool) {
	return 0, false
}

func geminiRecommendationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			FieldRecommendation: {
				Type: genai.TypeString,
				Enum: RecommendationActions,
			},
			FieldQuantity: {
				Type:        genai.TypeInteger,
				Description: "Positive for Buy/Add, negative for Sell/Reduce, 0 for Hold.",
			},
			FieldReasoning: {
				Type: genai.TypeString,
			},
			FieldQuantityReasoning: {
				Type: genai.TypeString,
			},
			FieldConfidence: {
				Type: genai.TypeString,
				Enum: ConfidenceLevels,
			},
			FieldTargetPrice: {
				Type:     genai.TypeNumber,
				Nullable: genai.Ptr(true),
			},
			FieldStopLoss: {
				Type:     genai.TypeNumber,
				Nullable: genai.Ptr(true),
			},
		},
		Required: RequiredFields,
	}
}
