package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete application configuration
type Config struct {
	Version   string          `yaml:"version" json:"version"`
	API       APIConfig       `yaml:"api" json:"api"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`
	Reports   ReportsConfig   `yaml:"reports" json:"reports"`
	AI        AIConfig        `yaml:"ai" json:"ai"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" json:"snapshot"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// APIConfig points at the attendance backend
type APIConfig struct {
	BaseURL       string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	AuthURL       string        `yaml:"auth_url" json:"auth_url" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	ReportTimeout time.Duration `yaml:"report_timeout" json:"report_timeout" validate:"gt=0"`
}

// SessionConfig configures where the token lives and who may hand one over
type SessionConfig struct {
	TokenFile       string   `yaml:"token_file" json:"token_file" validate:"required"`
	Watch           bool     `yaml:"watch" json:"watch"`                                             // follow token file changes
	ListenAddr      string   `yaml:"listen_addr" json:"listen_addr" validate:"required,hostname_port"` // message listener address
	AllowedOrigins  []string `yaml:"allowed_origins" json:"allowed_origins"`                         // empty means loopback only
	PublicEndpoints []string `yaml:"public_endpoints" json:"public_endpoints"`                       // empty means built-in list
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat   string `yaml:"default_format" json:"default_format" validate:"omitempty,oneof=text json markdown csv table"`
	ColorMode       string `yaml:"color_mode" json:"color_mode" validate:"omitempty,oneof=auto always never"`
	Emoji           bool   `yaml:"emoji" json:"emoji"`
	Verbose         bool   `yaml:"verbose" json:"verbose"`
	TimestampFormat string `yaml:"timestamp_format" json:"timestamp_format"`
}

// DashboardConfig configures the interactive dashboard
type DashboardConfig struct {
	PageSize      int    `yaml:"page_size" json:"page_size" validate:"gte=1,lte=100"`
	GradeSortDesc bool   `yaml:"grade_sort_desc" json:"grade_sort_desc"`
	SchoolSort    string `yaml:"school_sort" json:"school_sort" validate:"oneof=risk name students"`
}

// ReportsConfig configures report downloads
type ReportsConfig struct {
	Directory   string `yaml:"directory" json:"directory" validate:"required"`
	DefaultType string `yaml:"default_type" json:"default_type" validate:"oneof=summary detailed below_85 tier1 tier4"`
}

// AIConfig configures the optional briefing provider
type AIConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	Provider   string        `yaml:"provider" json:"provider" validate:"omitempty,oneof=openai ollama"` // openai|ollama
	Model      string        `yaml:"model" json:"model"`
	Endpoint   string        `yaml:"endpoint" json:"endpoint" validate:"omitempty,url"`
	APIKey     string        `yaml:"api_key" json:"api_key"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries" validate:"gte=0"`
}

// SnapshotConfig configures the snapshot history database
type SnapshotConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

// LoggingConfig configures the activity log
type LoggingConfig struct {
	ActivityFile string `yaml:"activity_file" json:"activity_file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:       "http://localhost:8000/api/alerts",
			AuthURL:       "http://localhost:8000/api/auth",
			Timeout:       30 * time.Second,
			ReportTimeout: 300 * time.Second,
		},
		Session: SessionConfig{
			TokenFile:  "~/.config/attendsum/token",
			Watch:      true,
			ListenAddr: "127.0.0.1:8787",
		},
		Output: OutputConfig{
			DefaultFormat:   "text",
			ColorMode:       "auto",
			Emoji:           true,
			TimestampFormat: "2006-01-02 15:04:05",
		},
		Dashboard: DashboardConfig{
			PageSize:   10,
			SchoolSort: "risk",
		},
		Reports: ReportsConfig{
			Directory:   "~/Downloads",
			DefaultType: "summary",
		},
		AI: AIConfig{
			Enabled:    false,
			Provider:   "ollama",
			Model:      "llama3.2",
			Endpoint:   "http://localhost:11434/v1",
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidation(err)
	}
	if err := c.validateAIConfig(); err != nil {
		return err
	}
	return nil
}

// validateAIConfig checks the settings a briefing needs once AI is enabled
func (c *Config) validateAIConfig() error {
	if !c.AI.Enabled {
		return nil
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required when ai.enabled is true")
	}
	if c.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint is required when ai.enabled is true")
	}
	if c.AI.Provider == "openai" && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required for the openai provider")
	}
	return nil
}

// describeValidation turns the first validator failure into a readable error
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "oneof":
		return fmt.Errorf("invalid %s: %v (must be one of: %s)", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Errorf("invalid %s: %v is not a URL", field, fe.Value())
	case "hostname_port":
		return fmt.Errorf("invalid %s: %v is not host:port", field, fe.Value())
	default:
		return fmt.Errorf("invalid %s: %v (%s=%s)", field, fe.Value(), fe.Tag(), fe.Param())
	}
}
