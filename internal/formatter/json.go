package formatter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/views"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

func (f *jsonFormatter) Format(r *Report) ([]byte, error) {
	if r == nil || r.Analysis == nil {
		return nil, fmt.Errorf("no analysis to format")
	}

	output := &ReportOutput{
		Title:           title(r),
		Scope:           scope(r.Criteria),
		Criteria:        r.Criteria,
		Summary:         createSummaryOutput(r.Analysis.SummaryStatistics),
		Insights:        views.CategorizeInsights(r.Analysis.KeyInsights),
		Recommendations: views.CategorizeRecommendations(r.Analysis.Recommendations),
		Alerts:          r.Analysis.AlertsNotifications,
		Schools:         r.Schools,
		Briefing:        r.Briefing,
	}
	if !r.Generated.IsZero() {
		output.Generated = &r.Generated
	}
	if len(r.GradeRisks) > 0 {
		totals := views.SummarizeGradeRisks(r.GradeRisks)
		output.GradeRisks = &GradeRiskOutput{
			Grades: views.SortGradeRisks(r.GradeRisks, false),
			Totals: totals,
		}
	}

	return json.MarshalIndent(output, "", "  ")
}

// ReportOutput is the JSON document
type ReportOutput struct {
	Title           string                      `json:"title"`
	Scope           string                      `json:"scope"`
	Criteria        common.Criteria             `json:"criteria"`
	Generated       *time.Time                  `json:"generated,omitempty"`
	Summary         *SummaryOutput              `json:"summary"`
	Insights        []views.InsightCategory     `json:"insights"`
	Recommendations []views.RecommendationGroup `json:"recommendations"`
	Alerts          *common.AlertsNotifications `json:"alerts,omitempty"`
	GradeRisks      *GradeRiskOutput            `json:"grade_risks,omitempty"`
	Schools         *views.SchoolTable          `json:"schools,omitempty"`
	Briefing        string                      `json:"briefing,omitempty"`
}

// SummaryOutput is the summary section
type SummaryOutput struct {
	TotalStudents    int          `json:"total_students"`
	Cards            []CardOutput `json:"cards"`
	SchoolPrediction *float64     `json:"school_prediction,omitempty"`
	GradePrediction  *float64     `json:"grade_prediction,omitempty"`
}

// CardOutput is one summary card
type CardOutput struct {
	Title      string  `json:"title"`
	Students   int     `json:"students"`
	Percentage float64 `json:"percentage"`
}

// GradeRiskOutput is the grade breakdown with totals
type GradeRiskOutput struct {
	Grades []common.GradeRisk    `json:"grades"`
	Totals views.GradeRiskTotals `json:"totals"`
}

func createSummaryOutput(stats common.SummaryStatistics) *SummaryOutput {
	cards := views.SummaryCards(stats)
	out := &SummaryOutput{
		TotalStudents:    stats.TotalStudents,
		Cards:            make([]CardOutput, 0, len(cards)),
		SchoolPrediction: stats.SchoolPrediction,
		GradePrediction:  stats.GradePrediction,
	}
	for _, c := range cards {
		out.Cards = append(out.Cards, CardOutput{Title: c.Title, Students: c.Students, Percentage: c.Percentage})
	}
	return out
}
