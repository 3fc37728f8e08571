package newstrader

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const structuredToolName = "record_recommendation"

// anthropicProvider adapts the Anthropic Messages API. Structured output is
// implemented through forced tool use: the model must call the
// record_recommendation tool, whose input schema is the recommendation schema.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(cfg ProviderConfig) (*anthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, NewError(ErrCodeInvalidInput, "anthropic provider requires an API key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (p *anthropicProvider) Name() string  { return "anthropic" }
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) Verify(ctx context.Context) error {
	_, err := p.Invoke(ctx, "Say OK", InvokeOptions{MaxTokens: verifyMaxTokens})
	if err != nil {
		return WrapError(ErrCodeBackend, "anthropic verification failed", err)
	}
	return nil
}

func (p *anthropicProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(opts.maxTokens()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", WrapError(ErrCodeBackend, "anthropic completion failed", err)
	}

	var text string
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}

func (p *anthropicProvider) InvokeStructured(ctx context.Context, prompt string, maxTokens int) (map[string]any, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	tool := anthropic.ToolParam{
		Name:        structuredToolName,
		Description: anthropic.String("Record the final trading recommendation."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: recommendationSchemaProperties(),
			Required:   RequiredFields,
		},
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: structuredToolName},
		},
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, WrapError(ErrCodeBackend, "anthropic structured completion failed", err)
	}

	for _, block := range message.Content {
		variant, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		candidate := map[string]any{}
		if err := json.Unmarshal([]byte(variant.JSON.Input.Raw()), &candidate); err != nil {
			return nil, nil
		}
		return candidate, nil
	}
	// No tool call in the response; let the caller fall back to free-form.
	return nil, nil
}

func (p *anthropicProvider) ContextSize(ctx context.Context) (int, bool) {
	return 0, false
}
