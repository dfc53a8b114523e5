package briefing

import (
	"fmt"
	"strings"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/views"
	"github.com/yildizm/go-promptfmt"
)

const systemPrompt = "You are an attendance analyst for a school district. " +
	"Write short, factual briefings for administrators. Only use the figures you are given."

// AttendancePattern builds the briefing prompt for one analysis
type AttendancePattern struct {
	promptfmt.BasePattern
	Analysis   *common.Analysis
	Criteria   common.Criteria
	GradeRisks []common.GradeRisk
	MaxItems   int
}

// Response is the JSON shape the model is asked for
type Response struct {
	Headline string   `json:"headline"`
	Summary  string   `json:"summary"`
	Concerns []string `json:"concerns"`
	Actions  []string `json:"actions"`
}

// NewAttendancePattern creates a pattern with default limits
func NewAttendancePattern() *AttendancePattern {
	return &AttendancePattern{
		BasePattern: promptfmt.BasePattern{
			Description: "Summarises attendance tiers, insights and recommendations for administrators",
			Tags:        []string{"attendance", "briefing"},
		},
		MaxItems: 8,
	}
}

func (p *AttendancePattern) WithAnalysis(a *common.Analysis) *AttendancePattern {
	p.Analysis = a
	return p
}

func (p *AttendancePattern) WithCriteria(c common.Criteria) *AttendancePattern {
	p.Criteria = c
	return p
}

func (p *AttendancePattern) WithGradeRisks(rows []common.GradeRisk) *AttendancePattern {
	p.GradeRisks = rows
	return p
}

func (p *AttendancePattern) Build() *promptfmt.Prompt {
	if p.Analysis == nil {
		return promptfmt.New().
			System(systemPrompt).
			User("No attendance data is loaded. Reply with a one-sentence note saying so.").
			Build()
	}

	stats := p.Analysis.SummaryStatistics
	pb := promptfmt.New().
		System(systemPrompt).
		User("Write a briefing for %s.\n\nStudents: %d\nBelow 85%% attendance: %d (%.1f%%)\nTier 4 (<80%%): %d (%.1f%%)",
			scopeLabel(p.Criteria),
			stats.TotalStudents,
			stats.Below85Students, stats.Below85Percentage,
			stats.Tier4Students, stats.Tier4Percentage)

	pb.AddContext("tiers", p.tiersContext(stats))

	if text := p.listContext("Key insights", p.Analysis.KeyInsights); text != "" {
		pb.AddContext("insights", text)
	}
	if text := p.listContext("Recommendations", p.Analysis.Recommendations); text != "" {
		pb.AddContext("recommendations", text)
	}
	if len(p.GradeRisks) > 0 {
		pb.AddContext("grade_risks", p.gradeContext())
	}

	return pb.ExpectJSON(&Response{}).Build()
}

func (p *AttendancePattern) tiersContext(stats common.SummaryStatistics) string {
	var b strings.Builder
	b.WriteString("Attendance tiers:\n")
	for tier := 1; tier <= 4; tier++ {
		fmt.Fprintf(&b, "- %s: %d students (%.1f%%)\n", views.TierTitle(tier), stats.TierStudents(tier), stats.TierPercentage(tier))
	}
	if stats.SchoolPrediction != nil {
		fmt.Fprintf(&b, "- Predicted school attendance: %.1f%%\n", *stats.SchoolPrediction)
	}
	if stats.GradePrediction != nil {
		fmt.Fprintf(&b, "- Predicted grade attendance: %.1f%%\n", *stats.GradePrediction)
	}
	return b.String()
}

func (p *AttendancePattern) listContext(title string, items []common.TextItem) string {
	texts := views.Texts(items)
	if len(texts) == 0 {
		return ""
	}
	if p.MaxItems > 0 && len(texts) > p.MaxItems {
		texts = texts[:p.MaxItems]
	}
	return title + ":\n- " + strings.Join(texts, "\n- ") + "\n"
}

func (p *AttendancePattern) gradeContext() string {
	totals := views.SummarizeGradeRisks(p.GradeRisks)

	var b strings.Builder
	fmt.Fprintf(&b, "Grade risk (average %.1f%%, highest grade %s at %.1f%%):\n", totals.AverageRisk, totals.HighestGrade, totals.HighestRisk)
	for _, r := range views.SortGradeRisks(p.GradeRisks, false) {
		fmt.Fprintf(&b, "- Grade %s: %.1f%% of %d students\n", r.Grade, r.RiskPercentage, r.StudentCount)
	}
	return b.String()
}

func scopeLabel(c common.Criteria) string {
	if c.IsGlobal() {
		return "all districts"
	}
	var parts []string
	if c.DistrictCode != "" {
		parts = append(parts, "district "+c.DistrictCode)
	}
	if c.SchoolCode != "" {
		parts = append(parts, "school "+c.SchoolCode)
	}
	if c.GradeCode != "" {
		parts = append(parts, "grade "+c.GradeCode)
	}
	return strings.Join(parts, ", ")
}
