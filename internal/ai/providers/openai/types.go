package openai

import (
	"github.com/yildizm/AttendSum/internal/ai"
)

// Wire types for the OpenAI-compatible /v1 API. Ollama serves the same
// shapes under its /v1 prefix, so only the fields both send are kept.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	User           string          `json:"user,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (l modelList) has(id string) bool {
	for _, m := range l.Data {
		if m.ID == id {
			return true
		}
	}
	return false
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// newChatRequest fills the gaps in req from the provider config
func newChatRequest(cfg *Config, req *ai.CompletionRequest) *chatRequest {
	out := &chatRequest{
		Model:       firstSet(req.Model, cfg.Model),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		User:        req.RequestID,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = cfg.MaxTokens
	}
	if out.Temperature == 0 {
		out.Temperature = cfg.Temperature
	}
	if req.JSONResponse {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	if req.SystemPrompt != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	out.Messages = append(out.Messages, chatMessage{Role: "user", Content: req.Prompt})
	return out
}

func (r *chatResponse) completion(requestID string) *ai.CompletionResponse {
	choice := r.Choices[0]
	return &ai.CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        r.Model,
		RequestID:    requestID,
		Usage: ai.TokenUsage{
			Prompt:     r.Usage.PromptTokens,
			Completion: r.Usage.CompletionTokens,
			Total:      r.Usage.TotalTokens,
		},
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
