package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ATTENDSUM_"

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.attendsum.yaml",               // Project-specific config (highest priority)
	"~/.config/attendsum/config.yaml", // User config
	"/etc/attendsum/config.yaml",      // System config (lowest priority)
}

// EnvFiles are dotenv files read before environment overrides are applied.
// Variables already set in the environment win.
var EnvFiles = []string{".env"}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	envFiles    []string
	getenv      func(string) string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		envFiles:    EnvFiles,
		getenv:      os.Getenv,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables, including .env files
// 3. ./.attendsum.yaml
// 4. ~/.config/attendsum/config.yaml
// 5. /etc/attendsum/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so higher ones overwrite
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := ExpandPath(l.configPaths[i])
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	if err := l.loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.Session.TokenFile = ExpandPath(config.Session.TokenFile)
	config.Reports.Directory = ExpandPath(config.Reports.Directory)
	config.Logging.ActivityFile = ExpandPath(config.Logging.ActivityFile)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML file over config. Keys missing from the file
// keep their current values.
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return decodeInto(config, data)
}

func decodeInto(config *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadEnvFiles reads the dotenv files that exist. godotenv never
// overwrites variables that are already set.
func (l *Loader) loadEnvFiles() error {
	var existing []string
	for _, f := range l.envFiles {
		if fileExists(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// API Config
		"API_BASE_URL":       func(v string) error { config.API.BaseURL = v; return nil },
		"API_AUTH_URL":       func(v string) error { config.API.AuthURL = v; return nil },
		"API_TIMEOUT":        func(v string) error { return parseDuration(v, &config.API.Timeout) },
		"API_REPORT_TIMEOUT": func(v string) error { return parseDuration(v, &config.API.ReportTimeout) },

		// Session Config
		"SESSION_TOKEN_FILE":  func(v string) error { config.Session.TokenFile = v; return nil },
		"SESSION_WATCH":       func(v string) error { return parseBool(v, &config.Session.Watch) },
		"SESSION_LISTEN_ADDR": func(v string) error { config.Session.ListenAddr = v; return nil },
		"SESSION_ALLOWED_ORIGINS": func(v string) error {
			config.Session.AllowedOrigins = splitList(v)
			return nil
		},
		"SESSION_PUBLIC_ENDPOINTS": func(v string) error {
			config.Session.PublicEndpoints = splitList(v)
			return nil
		},

		// Output Config
		"OUTPUT_DEFAULT_FORMAT":   func(v string) error { config.Output.DefaultFormat = v; return nil },
		"OUTPUT_COLOR_MODE":       func(v string) error { config.Output.ColorMode = v; return nil },
		"OUTPUT_EMOJI":            func(v string) error { return parseBool(v, &config.Output.Emoji) },
		"OUTPUT_VERBOSE":          func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"OUTPUT_TIMESTAMP_FORMAT": func(v string) error { config.Output.TimestampFormat = v; return nil },

		// Dashboard Config
		"DASHBOARD_PAGE_SIZE":       func(v string) error { return parseInt(v, &config.Dashboard.PageSize) },
		"DASHBOARD_GRADE_SORT_DESC": func(v string) error { return parseBool(v, &config.Dashboard.GradeSortDesc) },
		"DASHBOARD_SCHOOL_SORT":     func(v string) error { config.Dashboard.SchoolSort = v; return nil },

		// Reports Config
		"REPORTS_DIRECTORY":    func(v string) error { config.Reports.Directory = v; return nil },
		"REPORTS_DEFAULT_TYPE": func(v string) error { config.Reports.DefaultType = v; return nil },

		// AI Config
		"AI_ENABLED":     func(v string) error { return parseBool(v, &config.AI.Enabled) },
		"AI_PROVIDER":    func(v string) error { config.AI.Provider = v; return nil },
		"AI_MODEL":       func(v string) error { config.AI.Model = v; return nil },
		"AI_ENDPOINT":    func(v string) error { config.AI.Endpoint = v; return nil },
		"AI_API_KEY":     func(v string) error { config.AI.APIKey = v; return nil },
		"AI_TIMEOUT":     func(v string) error { return parseDuration(v, &config.AI.Timeout) },
		"AI_MAX_RETRIES": func(v string) error { return parseInt(v, &config.AI.MaxRetries) },

		// Snapshot and logging
		"DB_DSN":        func(v string) error { config.Snapshot.DSN = v; return nil },
		"ACTIVITY_FILE": func(v string) error { config.Logging.ActivityFile = v; return nil },
	}

	for suffix, setter := range envMappings {
		envVar := EnvPrefix + suffix
		if value := l.getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, ExpandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := ExpandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// ExpandPath expands ~ to the home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
