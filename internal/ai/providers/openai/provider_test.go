package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yildizm/AttendSum/internal/ai"
	"github.com/yildizm/AttendSum/internal/config"
)

const testAPIKey = "test-api-key"

func testProvider(t *testing.T, baseURL string, mutate func(*Config)) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIKey = testAPIKey
	cfg.BaseURL = baseURL + "/v1"
	if mutate != nil {
		mutate(cfg)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p.baseDelay = time.Millisecond
	return p
}

func TestProvider_New(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "nil config uses defaults",
			config:  nil,
			wantErr: true, // openai needs a key
		},
		{
			name:   "ollama needs no key",
			config: &Config{Name: "ollama", BaseURL: "http://localhost:11434/v1", Model: "llama3.2", MaxTokens: 512, Timeout: time.Second},
		},
		{
			name:    "invalid scheme",
			config:  &Config{Name: "ollama", BaseURL: "ftp://localhost", Model: "llama3.2", MaxTokens: 512, Timeout: time.Second},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  &Config{Name: "ollama", BaseURL: "http://localhost:11434/v1", MaxTokens: 512, Timeout: time.Second},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			config:  &Config{Name: "ollama", BaseURL: "http://localhost:11434/v1", Model: "m", MaxTokens: 512, Temperature: 3, Timeout: time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !ai.IsConfigurationError(err) {
				t.Errorf("expected configuration error, got %T", err)
			}
			if !tt.wantErr && p == nil {
				t.Error("New() returned nil provider without error")
			}
		})
	}
}

func TestFromSettings(t *testing.T) {
	c := FromSettings(config.AIConfig{
		Provider:   "ollama",
		Model:      "llama3.2",
		Endpoint:   "http://localhost:11434/v1",
		Timeout:    10 * time.Second,
		MaxRetries: 1,
	})
	if c.Name != "ollama" || c.Model != "llama3.2" || c.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("FromSettings() = %+v", c)
	}
	if c.Timeout != 10*time.Second || c.MaxRetries != 1 || c.MaxTokens != DefaultMaxTokens {
		t.Errorf("FromSettings() = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected /v1/chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer "+testAPIKey {
			t.Errorf("Expected Bearer %s, got %s", testAPIKey, auth)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != DefaultModel {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Summarise" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}

		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:   DefaultModel,
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: `{"headline":"ok"}`}, FinishReason: "stop"}},
			Usage:   chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer server.Close()

	p := testProvider(t, server.URL, nil)
	resp, err := p.Complete(context.Background(), &ai.CompletionRequest{
		SystemPrompt: "You are terse",
		Prompt:       "Summarise",
		JSONResponse: true,
		RequestID:    "req-1",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != `{"headline":"ok"}` || resp.FinishReason != "stop" || resp.RequestID != "req-1" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Usage.Total != 15 || resp.Usage.Prompt != 10 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestProvider_CompleteRequiresPrompt(t *testing.T) {
	p := testProvider(t, "http://127.0.0.1:1", nil)
	_, err := p.Complete(context.Background(), &ai.CompletionRequest{})
	var pe *ai.ProviderError
	if !errors.As(err, &pe) || pe.Type != ai.ErrTypeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestProvider_ErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ai.ErrorType
		wantMsg  string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`, wantType: ai.ErrTypeAuthentication, wantMsg: "bad key"},
		{name: "bad request", status: http.StatusBadRequest, body: `{}`, wantType: ai.ErrTypeValidation, wantMsg: "request failed with status 400"},
		{name: "missing model", status: http.StatusNotFound, body: `{"error":{"message":"model not found"}}`, wantType: ai.ErrTypeModelUnavailable, wantMsg: "model not found"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantType: ai.ErrTypeRateLimit},
		{name: "server error", status: http.StatusBadGateway, body: `not json`, wantType: ai.ErrTypeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := testProvider(t, server.URL, func(c *Config) { c.MaxRetries = 0 })
			_, err := p.Complete(context.Background(), &ai.CompletionRequest{Prompt: "hi"})

			var pe *ai.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Type != tt.wantType || pe.StatusCode != tt.status {
				t.Errorf("error = %+v", pe)
			}
			if tt.wantMsg != "" && pe.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", pe.Message, tt.wantMsg)
			}
		})
	}
}

func TestProvider_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "done"}}},
		})
	}))
	defer server.Close()

	p := testProvider(t, server.URL, func(c *Config) { c.MaxRetries = 2 })
	resp, err := p.Complete(context.Background(), &ai.CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "done" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("content = %q after %d calls", resp.Content, calls)
	}
}

func TestProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Expected /v1/models, got %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"llama3.2"},{"id":"gpt-4o-mini"}]}`)
	}))
	defer server.Close()

	if err := testProvider(t, server.URL, nil).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	missing := testProvider(t, server.URL, func(c *Config) { c.Model = "mistral" })
	err := missing.HealthCheck(context.Background())
	if !errors.Is(err, &ai.ProviderError{Type: ai.ErrTypeModelUnavailable}) {
		t.Errorf("expected model unavailable, got %v", err)
	}
}
