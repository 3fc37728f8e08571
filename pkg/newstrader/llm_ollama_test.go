package newstrader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func ollamaTestServer(t *testing.T, chat func(req ollamaChatRequest) any, show func() any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			var req ollamaChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad chat request: %v", err)
			}
			_ = json.NewEncoder(w).Encode(chat(req))
		case "/api/show":
			_ = json.NewEncoder(w).Encode(show())
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestOllamaInvoke(t *testing.T) {
	t.Parallel()

	var seen ollamaChatRequest
	server := ollamaTestServer(t,
		func(req ollamaChatRequest) any {
			seen = req
			return ollamaChatResponse{Message: ollamaChatMessage{Role: "assistant", Content: "hello"}}
		},
		func() any { return map[string]any{} },
	)
	defer server.Close()

	p := newOllamaProvider(ProviderConfig{Model: "llama3", BaseURL: server.URL})
	temp := 0.3
	got, err := p.Invoke(context.Background(), "hi", InvokeOptions{MaxTokens: 400, Temperature: &temp})
	assertNoError(t, err, "invoke")

	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
	if seen.Model != "llama3" || seen.Stream {
		t.Errorf("unexpected request: %+v", seen)
	}
	if seen.Options.NumPredict != 400 {
		t.Errorf("expected num_predict 400, got %d", seen.Options.NumPredict)
	}
	if seen.Options.Temperature == nil || *seen.Options.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", seen.Options.Temperature)
	}
	if seen.Format != "" {
		t.Errorf("free-form call must not request json format, got %q", seen.Format)
	}
}

func TestOllamaInvokeStructured(t *testing.T) {
	t.Parallel()

	server := ollamaTestServer(t,
		func(req ollamaChatRequest) any {
			if req.Format != "json" {
				t.Errorf("expected json format, got %q", req.Format)
			}
			return ollamaChatResponse{Message: ollamaChatMessage{
				Role:    "assistant",
				Content: `{"Recommendation": "Hold"}`,
			}}
		},
		func() any { return map[string]any{} },
	)
	defer server.Close()

	p := newOllamaProvider(ProviderConfig{Model: "llama3", BaseURL: server.URL})
	candidate, err := p.InvokeStructured(context.Background(), "prompt", 0)
	assertNoError(t, err, "invoke structured")

	if candidate == nil || candidate[FieldRecommendation] != "Hold" {
		t.Errorf("unexpected candidate: %v", candidate)
	}
}

func TestOllamaInvokeStructured_NonJSON(t *testing.T) {
	t.Parallel()

	server := ollamaTestServer(t,
		func(req ollamaChatRequest) any {
			return ollamaChatResponse{Message: ollamaChatMessage{Role: "assistant", Content: "not json"}}
		},
		func() any { return map[string]any{} },
	)
	defer server.Close()

	p := newOllamaProvider(ProviderConfig{Model: "llama3", BaseURL: server.URL})
	candidate, err := p.InvokeStructured(context.Background(), "prompt", 0)

	// Unhonored schema means (nil, nil), not an error.
	if candidate != nil || err != nil {
		t.Errorf("expected nil/nil, got %v / %v", candidate, err)
	}
}

func TestOllamaInvoke_ErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	p := newOllamaProvider(ProviderConfig{Model: "missing", BaseURL: server.URL})
	_, err := p.Invoke(context.Background(), "hi", InvokeOptions{})
	if !IsErrorCode(err, ErrCodeBackend) {
		t.Errorf("expected BACKEND_ERROR, got %v", err)
	}
}

func TestOllamaContextSize_FromParameters(t *testing.T) {
	t.Parallel()

	server := ollamaTestServer(t,
		func(req ollamaChatRequest) any { return ollamaChatResponse{} },
		func() any {
			return map[string]any{
				"parameters": "num_ctx                        4096\nstop    \"<|end|>\"",
				"model_info": map[string]any{"llama.context_length": 8192},
			}
		},
	)
	defer server.Close()

	p := newOllamaProvider(ProviderConfig{Model: "llama3", BaseURL: server.URL})
	size, ok := p.ContextSize(context.Background())
	if !ok || size != 4096 {
		t.Errorf("expected num_ctx 4096 to win, got %d/%v", size, ok)
	}

	// Cached after the first probe.
	size, ok = p.ContextSize(context.Background())
	if !ok || size != 4096 {
		t.Errorf("expected cached result, got %d/%v", size, ok)
	}
}

func TestOllamaContextSize_FromModelInfo(t *testing.T) {
	t.Parallel()

	server := ollamaTestServer(t,
		func(req ollamaChatRequest) any { return ollamaChatResponse{} },
		func() any {
			return map[string]any{
				"model_info": map[string]any{"qwen2.context_length": float64(32768)},
			}
		},
	)
	defer server.Close()

	p := newOllamaProvider(ProviderConfig{Model: "qwen2", BaseURL: server.URL})
	size, ok := p.ContextSize(context.Background())
	if !ok || size != 32768 {
		t.Errorf("expected 32768 from model_info, got %d/%v", size, ok)
	}
}

func TestOllamaContextSize_Unknown(t *testing.T) {
	t.Parallel()

	server := ollamaTestServer(t,
		func(req ollamaChatRequest) any { return ollamaChatResponse{} },
		func() any { return map[string]any{} },
	)
	defer server.Close()

	p := newOllamaProvider(ProviderConfig{Model: "llama3", BaseURL: server.URL})
	if size, ok := p.ContextSize(context.Background()); ok {
		t.Errorf("expected unknown context size, got %d", size)
	}
}

func TestOllamaDefaultBaseURL(t *testing.T) {
	t.Parallel()

	p := newOllamaProvider(ProviderConfig{Model: "llama3"})
	if p.baseURL != defaultOllamaBaseURL {
		t.Errorf("expected default base url, got %q", p.baseURL)
	}
}
