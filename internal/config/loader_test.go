package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestLoader returns a loader that sees only env and no search paths
func newTestLoader(env map[string]string) *Loader {
	return &Loader{
		getenv: func(k string) string { return env[k] },
	}
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if len(loader.configPaths) != 3 {
		t.Errorf("Expected 3 config paths, got %d", len(loader.configPaths))
	}
	if len(loader.envFiles) != 1 {
		t.Errorf("Expected 1 env file, got %d", len(loader.envFiles))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := newTestLoader(nil).LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000/api/alerts" {
		t.Errorf("Expected default base URL, got %s", cfg.API.BaseURL)
	}
	if strings.HasPrefix(cfg.Session.TokenFile, "~") {
		t.Errorf("Expected token file to be expanded, got %s", cfg.Session.TokenFile)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	configContent := `version: "1.0"
api:
  base_url: "https://attendance.example.org/api/alerts"
  timeout: 45s
session:
  watch: false
  allowed_origins: ["https://portal.example.org"]
output:
  default_format: "json"
dashboard:
  page_size: 25
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := newTestLoader(nil).LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from file: %v", err)
	}

	if cfg.API.BaseURL != "https://attendance.example.org/api/alerts" {
		t.Errorf("Expected base URL from file, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", cfg.API.Timeout)
	}
	if cfg.API.AuthURL != "http://localhost:8000/api/auth" {
		t.Errorf("Expected auth URL to keep its default, got %s", cfg.API.AuthURL)
	}
	if cfg.Session.Watch {
		t.Error("Expected watch to be disabled by the file")
	}
	if len(cfg.Session.AllowedOrigins) != 1 {
		t.Errorf("Expected 1 allowed origin, got %v", cfg.Session.AllowedOrigins)
	}
	if cfg.Output.DefaultFormat != "json" {
		t.Errorf("Expected output format json, got %s", cfg.Output.DefaultFormat)
	}
	if !cfg.Output.Emoji {
		t.Error("Expected emoji to keep its default")
	}
	if cfg.Dashboard.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", cfg.Dashboard.PageSize)
	}
}

func TestLoadConfigRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "invalid YAML",
			content: `api:
  base_url: "http://localhost
  timeout: 30s
`,
		},
		{
			name: "unknown key",
			content: `api:
  base_uri: "http://localhost:8000"
`,
		},
		{
			name: "fails validation",
			content: `output:
  default_format: "xml"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("Failed to write test config file: %v", err)
			}
			if _, err := newTestLoader(nil).LoadConfig(configPath); err == nil {
				t.Error("Expected error loading config, but got none")
			}
		})
	}
}

func TestLoadConfigSearchPathPriority(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "system.yaml")
	high := filepath.Join(dir, "project.yaml")

	if err := os.WriteFile(low, []byte("output:\n  default_format: csv\ndashboard:\n  page_size: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(high, []byte("output:\n  default_format: markdown\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := newTestLoader(nil)
	loader.configPaths = []string{high, filepath.Join(dir, "missing.yaml"), low}

	cfg, err := loader.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Output.DefaultFormat != "markdown" {
		t.Errorf("Expected project file to win, got %s", cfg.Output.DefaultFormat)
	}
	if cfg.Dashboard.PageSize != 5 {
		t.Errorf("Expected page size from system file, got %d", cfg.Dashboard.PageSize)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	loader := newTestLoader(map[string]string{
		"ATTENDSUM_API_BASE_URL":            "https://api.example.org/alerts",
		"ATTENDSUM_API_REPORT_TIMEOUT":      "10m",
		"ATTENDSUM_SESSION_ALLOWED_ORIGINS": "https://a.example.org, https://b.example.org,",
		"ATTENDSUM_OUTPUT_EMOJI":            "false",
		"ATTENDSUM_DASHBOARD_PAGE_SIZE":     "20",
		"ATTENDSUM_AI_ENABLED":              "true",
		"ATTENDSUM_DB_DSN":                  "postgres://localhost/attendsum",
	})
	cfg := DefaultConfig()

	if err := loader.applyEnvOverrides(cfg); err != nil {
		t.Fatalf("Failed to apply env overrides: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.org/alerts" {
		t.Errorf("Expected base URL override, got %s", cfg.API.BaseURL)
	}
	if cfg.API.ReportTimeout != 10*time.Minute {
		t.Errorf("Expected report timeout 10m, got %v", cfg.API.ReportTimeout)
	}
	expectedOrigins := []string{"https://a.example.org", "https://b.example.org"}
	if len(cfg.Session.AllowedOrigins) != len(expectedOrigins) {
		t.Fatalf("Expected origins %v, got %v", expectedOrigins, cfg.Session.AllowedOrigins)
	}
	for i, o := range expectedOrigins {
		if cfg.Session.AllowedOrigins[i] != o {
			t.Errorf("Expected origin %s, got %s", o, cfg.Session.AllowedOrigins[i])
		}
	}
	if cfg.Output.Emoji {
		t.Error("Expected emoji to be disabled")
	}
	if cfg.Dashboard.PageSize != 20 {
		t.Errorf("Expected page size 20, got %d", cfg.Dashboard.PageSize)
	}
	if !cfg.AI.Enabled {
		t.Error("Expected AI to be enabled")
	}
	if cfg.Snapshot.DSN != "postgres://localhost/attendsum" {
		t.Errorf("Expected DSN override, got %s", cfg.Snapshot.DSN)
	}
}

func TestApplyEnvOverridesInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"invalid int", "ATTENDSUM_DASHBOARD_PAGE_SIZE", "not-a-number"},
		{"invalid bool", "ATTENDSUM_SESSION_WATCH", "not-a-bool"},
		{"invalid duration", "ATTENDSUM_API_TIMEOUT", "not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newTestLoader(map[string]string{tt.envVar: tt.value})
			err := loader.applyEnvOverrides(DefaultConfig())
			if err == nil {
				t.Error("Expected error for invalid env var value, but got none")
			} else if !strings.Contains(err.Error(), tt.envVar) {
				t.Errorf("Expected error to name %s, got %v", tt.envVar, err)
			}
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	const key = "ATTENDSUM_TEST_DOTENV_VALUE"
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte(key+"=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	loader := &Loader{envFiles: []string{envFile, "/path/that/does/not/exist.env"}, getenv: os.Getenv}
	if err := loader.loadEnvFiles(); err != nil {
		t.Fatalf("loadEnvFiles() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("Expected value from env file, got %q", got)
	}

	t.Setenv(key, "from-env")
	if err := loader.loadEnvFiles(); err != nil {
		t.Fatalf("loadEnvFiles() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-env" {
		t.Errorf("Expected existing variable to win, got %q", got)
	}
}

func TestParseHelpers(t *testing.T) {
	var duration time.Duration
	if err := parseDuration("30s", &duration); err != nil || duration != 30*time.Second {
		t.Errorf("parseDuration(30s) = %v, %v", duration, err)
	}
	if err := parseDuration("invalid", &duration); err == nil {
		t.Error("Expected error for invalid duration, but got none")
	}

	var value int
	if err := parseInt("42", &value); err != nil || value != 42 {
		t.Errorf("parseInt(42) = %d, %v", value, err)
	}
	if err := parseInt("not-a-number", &value); err == nil {
		t.Error("Expected error for invalid int, but got none")
	}

	var flag bool
	if err := parseBool("true", &flag); err != nil || !flag {
		t.Errorf("parseBool(true) = %v, %v", flag, err)
	}
	if err := parseBool("not-a-bool", &flag); err == nil {
		t.Error("Expected error for invalid bool, but got none")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/reports"); got != filepath.Join(home, "reports") {
		t.Errorf("ExpandPath(~/reports) = %s", got)
	}
	if got := ExpandPath("/var/reports"); got != "/var/reports" {
		t.Errorf("ExpandPath(/var/reports) = %s", got)
	}
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{name: "valid yaml file", path: "config.yaml"},
		{name: "valid yml file", path: "config.yml"},
		{name: "relative path with valid extension", path: "./configs/app.yaml"},
		{
			name:    "path traversal attempt",
			path:    "../../../etc/passwd",
			wantErr: true,
			errMsg:  "path traversal not allowed",
		},
		{
			name:    "non-yaml file",
			path:    "config.txt",
			wantErr: true,
			errMsg:  "config file must have .yaml or .yml extension",
		},
		{
			name:    "proc filesystem access",
			path:    "/proc/version.yaml",
			wantErr: true,
			errMsg:  "access to system files not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error message to contain '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
