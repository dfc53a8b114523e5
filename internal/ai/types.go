package ai

// CompletionRequest is one prompt sent to a Provider. Zero MaxTokens,
// Temperature and Model fall back to the provider settings.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	Model        string
	MaxTokens    int
	Temperature  float64

	// JSONResponse asks the model for a single JSON object
	JSONResponse bool

	// RequestID is forwarded as the end-user id and logged with the reply
	RequestID string
}

type CompletionResponse struct {
	Content      string
	FinishReason string
	Model        string
	RequestID    string
	Usage        TokenUsage
}

type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}
