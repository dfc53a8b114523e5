package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yildizm/AttendSum/internal/ai"
	"github.com/yildizm/AttendSum/internal/ai/providers/openai"
	"github.com/yildizm/AttendSum/internal/apiclient"
	"github.com/yildizm/AttendSum/internal/briefing"
	"github.com/yildizm/AttendSum/internal/config"
	"github.com/yildizm/AttendSum/internal/dashboard"
	"github.com/yildizm/AttendSum/internal/logger"
	"github.com/yildizm/AttendSum/internal/report"
	"github.com/yildizm/AttendSum/internal/session"
)

// app bundles the collaborators one command invocation needs. Close
// releases the session and the activity log.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *session.FileStore
	session  *session.Session
	client   *apiclient.Client
	activity io.Closer
}

func newApp() (*app, error) {
	cfg := GetGlobalConfig()
	a := &app{cfg: cfg}

	a.log = logger.NewWithCallback("attendsum", isVerbose)
	if path := cfg.Logging.ActivityFile; path != "" {
		f, err := openActivityLog(path)
		if err != nil {
			return nil, err
		}
		a.activity = f
		a.log.SetActivityOutput(f)
	}

	a.store = session.NewFileStore(cfg.Session.TokenFile)
	sess, err := session.New(a.store,
		session.WithPublicEndpoints(cfg.Session.PublicEndpoints),
		session.WithAllowedOrigins(cfg.Session.AllowedOrigins),
		session.WithLogger(a.log.WithComponent("session")),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	a.session = sess

	client, err := apiclient.New(apiclient.Config{
		BaseURL:       cfg.API.BaseURL,
		AuthURL:       cfg.API.AuthURL,
		Timeout:       cfg.API.Timeout,
		ReportTimeout: cfg.API.ReportTimeout,
	}, sess, a.log.WithComponent("api"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	return a, nil
}

func openActivityLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create activity log directory: %w", err)
	}
	// #nosec G304 - path comes from the configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	return f, nil
}

// Close releases everything newApp opened
func (a *app) Close() {
	if a.session != nil {
		_ = a.session.Close()
	}
	if a.activity != nil {
		_ = a.activity.Close()
	}
}

// controller builds a dashboard controller over the API client with
// report storage and, when enabled, AI briefings
func (a *app) controller() (*dashboard.Controller, error) {
	opts := []dashboard.ControllerOption{
		dashboard.WithReportSink(report.NewStore(a.cfg.Reports.Directory)),
		dashboard.WithLogger(a.log.WithComponent("dashboard")),
	}
	if a.cfg.AI.Enabled {
		writer, err := a.briefer()
		if err != nil {
			return nil, err
		}
		opts = append(opts, dashboard.WithBriefer(writer))
	}
	return dashboard.NewController(a.client, opts...), nil
}

// aiProvider creates the chat provider from the ai settings. Ollama is
// reached through its OpenAI compatible endpoint.
func (a *app) aiProvider() (ai.Provider, error) {
	if !a.cfg.AI.Enabled {
		return nil, fmt.Errorf("AI briefings are disabled (set ai.enabled: true)")
	}
	provider, err := openai.New(openai.FromSettings(a.cfg.AI))
	if err != nil {
		return nil, withAIHint(fmt.Errorf("failed to create AI provider: %w", err))
	}
	return provider, nil
}

// briefer creates the AI briefing writer
func (a *app) briefer() (*briefing.Writer, error) {
	provider, err := a.aiProvider()
	if err != nil {
		return nil, err
	}
	return briefing.New(provider, a.log.WithComponent("briefing")), nil
}
