package newstrader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultOllamaBaseURL = "http://localhost:11434"

var ollamaNumCtxRE = regexp.MustCompile(`num_ctx\s+(\d+)`)

// ollamaProvider talks to a local Ollama daemon over its raw HTTP API. It is
// the only backend whose context window can be probed, via /api/show, which
// feeds the automatic multi-step decision for small local models.
type ollamaProvider struct {
	baseURL string
	model   string
	client  *http.Client

	ctxSize   int
	ctxProbed bool
}

func newOllamaProvider(cfg ProviderConfig) *ollamaProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaProvider{
		baseURL: baseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *ollamaProvider) Name() string  { return "ollama" }
func (p *ollamaProvider) Model() string { return p.model }

func (p *ollamaProvider) Verify(ctx context.Context) error {
	_, err := p.Invoke(ctx, "Say OK", InvokeOptions{MaxTokens: verifyMaxTokens})
	if err != nil {
		return WrapError(ErrCodeBackend, "ollama verification failed", err)
	}
	return nil
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
	Options  ollamaChatOptions   `json:"options"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatOptions struct {
	NumPredict  int      `json:"num_predict"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Error   string            `json:"error,omitempty"`
}

func (p *ollamaProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	return p.chat(ctx, prompt, opts, "")
}

func (p *ollamaProvider) InvokeStructured(ctx context.Context, prompt string, maxTokens int) (map[string]any, error) {
	opts := InvokeOptions{MaxTokens: maxTokens}
	content, err := p.chat(ctx, prompt, opts, "json")
	if err != nil {
		return nil, WrapError(ErrCodeBackend, "ollama structured completion failed", err)
	}

	candidate := map[string]any{}
	if err := json.Unmarshal([]byte(content), &candidate); err != nil {
		return nil, nil
	}
	return candidate, nil
}

func (p *ollamaProvider) chat(ctx context.Context, prompt string, opts InvokeOptions, format string) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    p.model,
		Messages: []ollamaChatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Format:   format,
		Options: ollamaChatOptions{
			NumPredict:  opts.maxTokens(),
			Temperature: opts.Temperature,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", WrapError(ErrCodeInternal, "failed to encode ollama request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", WrapError(ErrCodeInternal, "failed to build ollama request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", WrapError(ErrCodeBackend, "ollama request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", WrapError(ErrCodeBackend, "failed to read ollama response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", NewError(ErrCodeBackend,
			fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", WrapError(ErrCodeBackend, "failed to decode ollama response", err)
	}
	if chatResp.Error != "" {
		return "", NewError(ErrCodeBackend, "ollama error: "+chatResp.Error)
	}
	return chatResp.Message.Content, nil
}

// ContextSize probes /api/show for the model's context window. The num_ctx
// runtime parameter wins over the architecture's context_length. The result
// is cached for the lifetime of the provider.
func (p *ollamaProvider) ContextSize(ctx context.Context) (int, bool) {
	if p.ctxProbed {
		return p.ctxSize, p.ctxSize > 0
	}
	p.ctxProbed = true

	payload, err := json.Marshal(map[string]string{"model": p.model})
	if err != nil {
		return 0, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/show", bytes.NewReader(payload))
	if err != nil {
		return 0, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		return 0, false
	}

	var show struct {
		Parameters string         `json:"parameters"`
		ModelInfo  map[string]any `json:"model_info"`
	}
	if err := json.Unmarshal(body, &show); err != nil {
		return 0, false
	}

	if m := ollamaNumCtxRE.FindStringSubmatch(show.Parameters); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			p.ctxSize = n
			return n, true
		}
	}
	for key, value := range show.ModelInfo {
		if !strings.Contains(key, "context_length") {
			continue
		}
		if f, ok := floatFromAny(value); ok && f > 0 {
			p.ctxSize = int(f)
			return p.ctxSize, true
		}
	}
	return 0, false
}
