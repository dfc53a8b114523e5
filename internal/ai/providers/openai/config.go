package openai

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yildizm/AttendSum/internal/ai"
	"github.com/yildizm/AttendSum/internal/config"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.3
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 2
)

// Config configures a provider speaking the OpenAI chat completions API.
// Ollama serves the same API under /v1 and needs no key.
type Config struct {
	Name        string        `json:"name"`
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
	MaxRetries  int           `json:"max_retries"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:        "openai",
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
	}
}

// FromSettings builds a provider config from the ai section of the configuration
func FromSettings(s config.AIConfig) *Config {
	c := DefaultConfig()
	if s.Provider != "" {
		c.Name = s.Provider
	}
	if s.Endpoint != "" {
		c.BaseURL = s.Endpoint
	}
	if s.Model != "" {
		c.Model = s.Model
	}
	if s.Timeout > 0 {
		c.Timeout = s.Timeout
	}
	c.APIKey = s.APIKey
	c.MaxRetries = s.MaxRetries
	return c
}

func (c *Config) requiresKey() bool {
	return c.Name == "openai"
}

func (c *Config) Validate() error {
	if c.requiresKey() && c.APIKey == "" {
		return ai.NewConfigurationError(c.Name, "api_key", "API key is required")
	}

	if c.BaseURL == "" {
		return ai.NewConfigurationError(c.Name, "base_url", "base URL is required")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ai.NewConfigurationError(c.Name, "base_url", fmt.Sprintf("invalid base URL: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ai.NewConfigurationError(c.Name, "base_url", "base URL must be http or https")
	}

	if strings.TrimSpace(c.Model) == "" {
		return ai.NewConfigurationError(c.Name, "model", "model is required")
	}

	if c.MaxTokens <= 0 {
		return ai.NewConfigurationError(c.Name, "max_tokens", "max tokens must be positive")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return ai.NewConfigurationError(c.Name, "temperature", "temperature must be between 0 and 2")
	}

	if c.Timeout <= 0 {
		return ai.NewConfigurationError(c.Name, "timeout", "timeout must be positive")
	}

	if c.MaxRetries < 0 {
		return ai.NewConfigurationError(c.Name, "max_retries", "max retries cannot be negative")
	}

	return nil
}
