package briefing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yildizm/AttendSum/internal/ai"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/dashboard"
)

type stubProvider struct {
	reply string
	err   error
	last  *ai.CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.CompletionResponse{Content: s.reply, Model: "stub-model"}, nil
}

func (s *stubProvider) HealthCheck(context.Context) error { return nil }

func sampleAnalysis() *common.Analysis {
	return &common.Analysis{
		SummaryStatistics: common.SummaryStatistics{
			TotalStudents:     1200,
			Below85Students:   300,
			Below85Percentage: 25,
			Tier1Students:     600,
			Tier1Percentage:   50,
			Tier4Students:     60,
			Tier4Percentage:   5,
		},
		KeyInsights:     []common.TextItem{common.PlainItem("Grade 9 attendance fell 4.2% since October")},
		Recommendations: []common.TextItem{common.PlainItem("Schedule family meetings for Tier 4 students")},
	}
}

func TestGenerateParsesJSON(t *testing.T) {
	p := &stubProvider{reply: `{"headline":"One in four students below 85%","summary":"Attendance is concentrated in grade 9.","concerns":["Grade 9"],"actions":["Call families"]}`}
	w := New(p, nil)

	b, err := w.Generate(context.Background(), sampleAnalysis(), common.Criteria{DistrictCode: "12"}, []common.GradeRisk{
		{Grade: "9", RiskPercentage: 31.5, StudentCount: 200},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if b.Raw || b.Headline != "One in four students below 85%" || len(b.Actions) != 1 {
		t.Errorf("briefing = %+v", b)
	}
	if b.Model != "stub-model" {
		t.Errorf("Model = %q", b.Model)
	}

	req := p.last
	if req == nil {
		t.Fatal("provider was not called")
	}
	if !req.JSONResponse || req.RequestID == "" || req.SystemPrompt == "" {
		t.Errorf("request = %+v", req)
	}
	for _, want := range []string{"district 12", "Students: 1200", "Below 85% attendance: 300 (25.0%)"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, req.Prompt)
		}
	}
}

func TestGenerateKeepsPlainReply(t *testing.T) {
	w := New(&stubProvider{reply: "Attendance is broadly stable this month."}, nil)
	b, err := w.Generate(context.Background(), sampleAnalysis(), common.Criteria{}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !b.Raw || b.Summary != "Attendance is broadly stable this month." {
		t.Errorf("briefing = %+v", b)
	}
}

func TestGenerateErrors(t *testing.T) {
	w := New(&stubProvider{err: ai.NewProviderError(ai.ErrTypeNetwork, "down", "stub")}, nil)

	if _, err := w.Generate(context.Background(), nil, common.Criteria{}, nil); err == nil {
		t.Error("expected error without analysis")
	}

	_, err := w.Generate(context.Background(), sampleAnalysis(), common.Criteria{}, nil)
	if !errors.Is(err, &ai.ProviderError{Type: ai.ErrTypeNetwork}) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestBriefImplementsDashboardBriefer(t *testing.T) {
	var b dashboard.Briefer = New(&stubProvider{reply: `{"headline":"H","summary":"S","actions":["A"]}`}, nil)

	text, err := b.Brief(context.Background(), sampleAnalysis(), dashboard.Filters{District: "12"})
	if err != nil {
		t.Fatalf("Brief() error = %v", err)
	}
	if text != "H\n\nS\n\nActions:\n• A" {
		t.Errorf("Brief() = %q", text)
	}
}

func TestScopeLabel(t *testing.T) {
	tests := []struct {
		criteria common.Criteria
		want     string
	}{
		{common.Criteria{}, "all districts"},
		{common.Criteria{DistrictCode: "12"}, "district 12"},
		{common.Criteria{DistrictCode: "12", SchoolCode: "0034", GradeCode: "9"}, "district 12, school 0034, grade 9"},
	}
	for _, tt := range tests {
		if got := scopeLabel(tt.criteria); got != tt.want {
			t.Errorf("scopeLabel(%+v) = %q, want %q", tt.criteria, got, tt.want)
		}
	}
}

func TestPatternWithoutAnalysis(t *testing.T) {
	prompt := NewAttendancePattern().Build()
	if !strings.Contains(prompt.String(), "No attendance data") {
		t.Errorf("prompt = %q", prompt.String())
	}
}
