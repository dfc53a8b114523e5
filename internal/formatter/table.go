package formatter

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/yildizm/AttendSum/internal/views"
)

// tableFormatter renders the numeric sections as ASCII tables
type tableFormatter struct{}

// NewTable creates a new table formatter
func NewTable() Formatter {
	return &tableFormatter{}
}

func (f *tableFormatter) Format(r *Report) ([]byte, error) {
	if r == nil || r.Analysis == nil {
		return nil, fmt.Errorf("no analysis to format")
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s: %s\n\n", title(r), scope(r.Criteria))

	summary := newTable(&b, "Metric", "Students", "Percentage")
	for _, c := range views.SummaryCards(r.Analysis.SummaryStatistics) {
		summary.Append([]string{c.Title, formatNumber(c.Students), formatPercent(c.Percentage)})
	}
	summary.Render()

	if len(r.GradeRisks) > 0 {
		b.WriteString("\nGrade Risk\n")
		grades := newTable(&b, "Grade", "Risk", "Students", "Level")
		for _, g := range views.SortGradeRisks(r.GradeRisks, false) {
			grades.Append([]string{g.Grade, formatPercent(g.RiskPercentage), formatNumber(g.StudentCount), views.RiskLevelFor(g.RiskPercentage).String()})
		}
		totals := views.SummarizeGradeRisks(r.GradeRisks)
		grades.SetFooter([]string{"Total", formatPercent(totals.AverageRisk), formatNumber(totals.TotalStudents), totals.AverageLevel})
		grades.Render()
	}

	if r.Schools != nil && len(r.Schools.Rows) > 0 {
		fmt.Fprintf(&b, "\nSchool Risk (page %d of %d)\n", r.Schools.Page, r.Schools.PageCount)
		schools := newTable(&b, "School", "District", "Risk", "Students", "Level")
		for _, s := range r.Schools.Rows {
			schools.Append([]string{s.SchoolName, s.District, formatPercent(s.RiskPercentage), formatNumber(s.StudentCount), s.Level.String()})
		}
		schools.Render()
	}

	recs := views.CategorizeRecommendations(r.Analysis.Recommendations)
	if len(recs) > 0 {
		b.WriteString("\nRecommendations\n")
		table := newTable(&b, "Priority", "Recommendation")
		table.SetColWidth(80)
		for _, g := range recs {
			for _, it := range g.Items {
				table.Append([]string{string(g.Priority), oneLine(it.Text, 0)})
			}
		}
		table.Render()
	}

	return b.Bytes(), nil
}

func newTable(b *bytes.Buffer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(b)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
