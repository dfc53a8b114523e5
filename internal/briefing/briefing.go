// Package briefing asks a chat model for a short narrative of an analysis.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yildizm/AttendSum/internal/ai"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/dashboard"
	"github.com/yildizm/AttendSum/internal/logger"
	"github.com/yildizm/go-promptfmt"
)

const (
	defaultMaxTokens   = 600
	defaultTemperature = 0.3
)

// Briefing is a parsed model reply
type Briefing struct {
	Headline string   `json:"headline"`
	Summary  string   `json:"summary"`
	Concerns []string `json:"concerns,omitempty"`
	Actions  []string `json:"actions,omitempty"`
	Model    string   `json:"model,omitempty"`
	Raw      bool     `json:"raw"`
}

// Writer produces briefings with a provider
type Writer struct {
	provider ai.Provider
	log      *logger.Logger
}

// New creates a writer. log may be nil.
func New(provider ai.Provider, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Discard()
	}
	return &Writer{provider: provider, log: log}
}

// Generate briefs an analysis for criteria, optionally with grade risks
func (w *Writer) Generate(ctx context.Context, analysis *common.Analysis, criteria common.Criteria, grades []common.GradeRisk) (*Briefing, error) {
	if analysis == nil {
		return nil, errors.New("no analysis to brief")
	}

	prompt := NewAttendancePattern().
		WithAnalysis(analysis).
		WithCriteria(criteria).
		WithGradeRisks(grades).
		Build()

	req := &ai.CompletionRequest{
		Prompt:       prompt.String(),
		SystemPrompt: prompt.SystemPrompt,
		MaxTokens:    defaultMaxTokens,
		Temperature:  defaultTemperature,
		JSONResponse: true,
		RequestID:    uuid.NewString(),
	}

	resp, err := w.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("briefing request failed: %w", err)
	}

	w.log.DebugWithFields("briefing received", []logger.Field{
		logger.F("provider", w.provider.Name()),
		logger.F("model", resp.Model),
		logger.F("request_id", req.RequestID),
		logger.F("tokens", resp.Usage.Total),
	})

	b := parseBriefing(resp.Content)
	b.Model = resp.Model
	return b, nil
}

// Brief renders a briefing as text for the dashboard
func (w *Writer) Brief(ctx context.Context, analysis *common.Analysis, filters dashboard.Filters) (string, error) {
	b, err := w.Generate(ctx, analysis, filters.Criteria(), nil)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// parseBriefing reads the JSON reply; anything else is kept as the summary
func parseBriefing(content string) *Briefing {
	var r Response
	result := promptfmt.NewResponse(content).TryParseJSON(&r)
	if !result.Success || (r.Headline == "" && r.Summary == "") {
		return &Briefing{Summary: strings.TrimSpace(content), Raw: true}
	}
	return &Briefing{
		Headline: strings.TrimSpace(r.Headline),
		Summary:  strings.TrimSpace(r.Summary),
		Concerns: r.Concerns,
		Actions:  r.Actions,
	}
}

// String renders the briefing as plain text
func (b *Briefing) String() string {
	var sb strings.Builder
	if b.Headline != "" {
		sb.WriteString(b.Headline + "\n\n")
	}
	if b.Summary != "" {
		sb.WriteString(b.Summary + "\n")
	}
	writeList(&sb, "Concerns", b.Concerns)
	writeList(&sb, "Actions", b.Actions)
	return strings.TrimRight(sb.String(), "\n")
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n" + title + ":\n")
	for _, it := range items {
		sb.WriteString("• " + strings.TrimSpace(it) + "\n")
	}
}

var _ dashboard.Briefer = (*Writer)(nil)
