package ai

import "context"

// Provider completes prompts against a chat model
type Provider interface {
	// Name returns the provider name (e.g., "openai", "ollama")
	Name() string

	// Complete sends one prompt and returns the model's reply
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck verifies the endpoint answers and the model exists
	HealthCheck(ctx context.Context) error
}
