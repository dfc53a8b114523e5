package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yildizm/AttendSum/internal/ai"
)

type Provider struct {
	config    *Config
	client    *http.Client
	baseURL   *url.URL
	baseDelay time.Duration
}

func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, ai.NewConfigurationError(config.Name, "base_url", fmt.Sprintf("invalid base URL: %v", err))
	}

	return &Provider{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		baseURL:   baseURL,
		baseDelay: time.Second,
	}, nil
}

func (p *Provider) Name() string {
	return p.config.Name
}

func (p *Provider) Model() string {
	return p.config.Model
}

func (p *Provider) Complete(ctx context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if req == nil || req.Prompt == "" {
		return nil, ai.NewProviderError(ai.ErrTypeValidation, "prompt is required", p.Name())
	}

	body, err := json.Marshal(newChatRequest(p.config, req))
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal request", p.Name(), err)
	}

	resp, err := p.doRequestWithRetry(ctx, http.MethodPost, "chat/completions", body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode response", p.Name(), err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, ai.NewProviderError(ai.ErrTypeProvider, "response contained no choices", p.Name())
	}

	return chatResp.completion(req.RequestID), nil
}

// HealthCheck lists the models and checks the configured one is served
func (p *Provider) HealthCheck(ctx context.Context) error {
	resp, err := p.doRequestWithRetry(ctx, http.MethodGet, "models", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return p.handleErrorResponse(resp)
	}

	var models modelList
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode models response", p.Name(), err)
	}
	if models.has(p.config.Model) {
		return nil
	}
	return ai.NewProviderError(ai.ErrTypeModelUnavailable, fmt.Sprintf("model %q is not available", p.config.Model), p.Name())
}

func (p *Provider) setHeaders(req *http.Request) {
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (p *Provider) doRequestWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	endpoint := p.baseURL.JoinPath(path)
	attempts := p.config.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		var reqBody io.Reader = http.NoBody
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
		if err != nil {
			return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to create request", p.Name(), err)
		}
		p.setHeaders(req)

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ai.NewProviderErrorWithCause(ai.ErrTypeTimeout, "request cancelled", p.Name(), ctx.Err())
			}
			if attempt == attempts-1 {
				return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "request failed after retries", p.Name(), err)
			}
			if err := p.wait(ctx, p.baseDelay<<attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			if attempt == attempts-1 {
				return resp, nil
			}
			_ = resp.Body.Close()

			delay := p.baseDelay << attempt
			if retryHeader := resp.Header.Get("Retry-After"); retryHeader != "" {
				if seconds, err := strconv.Atoi(retryHeader); err == nil {
					delay = time.Duration(seconds) * time.Second
				}
			}
			if err := p.wait(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}

	return nil, ai.NewProviderError(ai.ErrTypeNetwork, "max retries exceeded", p.Name())
}

func (p *Provider) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ai.NewProviderErrorWithCause(ai.ErrTypeTimeout, "request cancelled", p.Name(), ctx.Err())
	}
}

func (p *Provider) handleErrorResponse(resp *http.Response) error {
	message := fmt.Sprintf("request failed with status %d", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err == nil {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
			message = eb.Error.Message
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ai.NewHTTPError(ai.ErrTypeAuthentication, resp.StatusCode, message, p.Name())
	case resp.StatusCode == http.StatusTooManyRequests:
		return ai.NewHTTPError(ai.ErrTypeRateLimit, resp.StatusCode, message, p.Name())
	case resp.StatusCode == http.StatusNotFound:
		return ai.NewHTTPError(ai.ErrTypeModelUnavailable, resp.StatusCode, message, p.Name())
	case resp.StatusCode == http.StatusBadRequest:
		return ai.NewHTTPError(ai.ErrTypeValidation, resp.StatusCode, message, p.Name())
	default:
		return ai.NewHTTPError(ai.ErrTypeProvider, resp.StatusCode, message, p.Name())
	}
}

var _ ai.Provider = (*Provider)(nil)
