package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Expected API timeout 30s, got %v", cfg.API.Timeout)
	}
	if cfg.API.ReportTimeout != 300*time.Second {
		t.Errorf("Expected report timeout 300s, got %v", cfg.API.ReportTimeout)
	}
	if cfg.Output.DefaultFormat != "text" {
		t.Errorf("Expected output format text, got %s", cfg.Output.DefaultFormat)
	}
	if cfg.Dashboard.PageSize != 10 {
		t.Errorf("Expected page size 10, got %d", cfg.Dashboard.PageSize)
	}
	if cfg.AI.Enabled {
		t.Error("Expected AI to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "missing base url",
			modify:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: true,
			errMsg:  "api.base_url is required",
		},
		{
			name:    "base url not a url",
			modify:  func(c *Config) { c.API.BaseURL = "localhost" },
			wantErr: true,
			errMsg:  "invalid api.base_url",
		},
		{
			name:    "invalid output format",
			modify:  func(c *Config) { c.Output.DefaultFormat = "xml" },
			wantErr: true,
			errMsg:  "invalid output.default_format: xml (must be one of: text, json, markdown, csv, table)",
		},
		{
			name:    "invalid color mode",
			modify:  func(c *Config) { c.Output.ColorMode = "sometimes" },
			wantErr: true,
			errMsg:  "invalid output.color_mode",
		},
		{
			name:    "zero page size",
			modify:  func(c *Config) { c.Dashboard.PageSize = 0 },
			wantErr: true,
			errMsg:  "invalid dashboard.page_size",
		},
		{
			name:    "unknown report type",
			modify:  func(c *Config) { c.Reports.DefaultType = "weekly" },
			wantErr: true,
			errMsg:  "invalid reports.default_type",
		},
		{
			name:    "listen addr without port",
			modify:  func(c *Config) { c.Session.ListenAddr = "localhost" },
			wantErr: true,
			errMsg:  "invalid session.listen_addr",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.AI.MaxRetries = -1 },
			wantErr: true,
			errMsg:  "invalid ai.max_retries",
		},
		{
			name:    "invalid AI provider",
			modify:  func(c *Config) { c.AI.Provider = "anthropic" },
			wantErr: true,
			errMsg:  "invalid ai.provider: anthropic (must be one of: openai, ollama)",
		},
		{
			name: "enabled AI without model",
			modify: func(c *Config) {
				c.AI.Enabled = true
				c.AI.Model = ""
			},
			wantErr: true,
			errMsg:  "ai.model is required",
		},
		{
			name: "openai without key",
			modify: func(c *Config) {
				c.AI.Enabled = true
				c.AI.Provider = "openai"
			},
			wantErr: true,
			errMsg:  "ai.api_key is required",
		},
		{
			name: "disabled AI ignores missing model",
			modify: func(c *Config) {
				c.AI.Model = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected validation error, but got none")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestSampleConfigsDecode(t *testing.T) {
	for name, sample := range map[string]string{
		"full":    SampleConfig(),
		"minimal": MinimalSampleConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := decodeInto(cfg, []byte(sample)); err != nil {
				t.Fatalf("sample config does not decode: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("sample config is invalid: %v", err)
			}
		})
	}
}
