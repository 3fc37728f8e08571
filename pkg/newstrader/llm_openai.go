package newstrader

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiProvider adapts the OpenAI chat-completions API. Structured output
// uses the json_schema response format with strict mode off, since the
// recommendation schema carries nullable optional fields.
type openaiProvider struct {
	client openai.Client
	model  string
}

func newOpenAIProvider(cfg ProviderConfig) (*openaiProvider, error) {
	if cfg.APIKey == "" {
		return nil, NewError(ErrCodeInvalidInput, "openai provider requires an API key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (p *openaiProvider) Name() string  { return "openai" }
func (p *openaiProvider) Model() string { return p.model }

func (p *openaiProvider) Verify(ctx context.Context) error {
	_, err := p.Invoke(ctx, "Say OK", InvokeOptions{MaxTokens: verifyMaxTokens})
	if err != nil {
		return WrapError(ErrCodeBackend, "openai verification failed", err)
	}
	return nil
}

func (p *openaiProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(opts.maxTokens())),
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", WrapError(ErrCodeBackend, "openai completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *openaiProvider) InvokeStructured(ctx context.Context, prompt string, maxTokens int) (map[string]any, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "trading_recommendation",
					Schema: recommendationSchemaMap(),
					Strict: openai.Bool(false),
				},
			},
		},
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, WrapError(ErrCodeBackend, "openai structured completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return nil, nil
	}

	candidate := map[string]any{}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &candidate); err != nil {
		return nil, nil
	}
	return candidate, nil
}

func (p *openaiProvider) ContextSize(ctx context.Context) (int, bool) {
	return 0, false
}
