package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/views"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(r *Report) ([]byte, error) {
	if r == nil || r.Analysis == nil {
		return nil, fmt.Errorf("no analysis to format")
	}

	generated := r.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title(r))
	fmt.Fprintf(&b, "Scope: %s  \nGenerated: %s\n\n", scope(r.Criteria), generated.Format("2006-01-02 15:04:05"))

	f.writeTableOfContents(&b, r)
	f.writeSummaryTable(&b, r.Analysis.SummaryStatistics)
	f.writeAlerts(&b, r.Analysis.AlertsNotifications)
	f.writeInsights(&b, views.CategorizeInsights(r.Analysis.KeyInsights))
	f.writeRecommendations(&b, views.CategorizeRecommendations(r.Analysis.Recommendations))
	if len(r.GradeRisks) > 0 {
		f.writeGradeRisks(&b, r.GradeRisks)
	}
	if r.Schools != nil && len(r.Schools.Rows) > 0 {
		f.writeSchools(&b, r.Schools)
	}
	if r.Briefing != "" {
		b.WriteString("## Briefing\n\n" + strings.TrimSpace(r.Briefing) + "\n")
	}

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeTableOfContents(b *strings.Builder, r *Report) {
	b.WriteString("## Table of Contents\n")
	b.WriteString("- [Summary](#summary)\n")
	if a := r.Analysis.AlertsNotifications; a != nil && a.TotalBelow60 > 0 {
		b.WriteString("- [Alerts](#alerts)\n")
	}
	b.WriteString("- [Key Insights](#key-insights)\n")
	b.WriteString("- [Recommendations](#recommendations)\n")
	if len(r.GradeRisks) > 0 {
		b.WriteString("- [Grade Risk](#grade-risk)\n")
	}
	if r.Schools != nil && len(r.Schools.Rows) > 0 {
		b.WriteString("- [School Risk](#school-risk)\n")
	}
	if r.Briefing != "" {
		b.WriteString("- [Briefing](#briefing)\n")
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeSummaryTable(b *strings.Builder, stats common.SummaryStatistics) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Students | Percentage |\n")
	b.WriteString("|--------|---------:|-----------:|\n")
	for _, c := range views.SummaryCards(stats) {
		fmt.Fprintf(b, "| %s | %s | %s |\n", escapeMarkdownCell(c.Title), formatNumber(c.Students), formatPercent(c.Percentage))
	}
	b.WriteString("\n")

	if stats.SchoolPrediction != nil {
		fmt.Fprintf(b, "- School prediction: **%s**\n", formatPercent(*stats.SchoolPrediction))
	}
	if stats.GradePrediction != nil {
		fmt.Fprintf(b, "- Grade prediction: **%s**\n", formatPercent(*stats.GradePrediction))
	}
	if stats.SchoolPrediction != nil || stats.GradePrediction != nil {
		b.WriteString("\n")
	}
}

func (f *markdownFormatter) writeAlerts(b *strings.Builder, alerts *common.AlertsNotifications) {
	if alerts == nil || alerts.TotalBelow60 == 0 {
		return
	}
	b.WriteString("## Alerts\n\n")
	fmt.Fprintf(b, "**%s** students are below 60%% attendance.\n\n", formatNumber(alerts.TotalBelow60))

	if len(alerts.ByDistrict)+len(alerts.BySchool)+len(alerts.ByGrade) == 0 {
		return
	}
	b.WriteString("| Group | Name | Students |\n")
	b.WriteString("|-------|------|---------:|\n")
	for _, d := range alerts.ByDistrict {
		fmt.Fprintf(b, "| District | %s | %s |\n", escapeMarkdownCell(d.District), formatNumber(d.Count))
	}
	for _, s := range alerts.BySchool {
		fmt.Fprintf(b, "| School | %s | %s |\n", escapeMarkdownCell(s.School), formatNumber(s.Count))
	}
	for _, g := range alerts.ByGrade {
		fmt.Fprintf(b, "| Grade | %s | %s |\n", escapeMarkdownCell(g.Grade), formatNumber(g.Count))
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeInsights(b *strings.Builder, categories []views.InsightCategory) {
	b.WriteString("## Key Insights\n\n")
	if len(categories) == 0 {
		b.WriteString("_" + views.NoContent + "_\n\n")
		return
	}
	for _, cat := range categories {
		fmt.Fprintf(b, "### %s\n\n", cat.Name)
		for _, it := range cat.Items {
			fmt.Fprintf(b, "- %s _(%s, %d%% confidence)_\n", views.HighlightLead(it.Text, nil), it.Priority, it.Confidence)
		}
		b.WriteString("\n")
	}
}

func (f *markdownFormatter) writeRecommendations(b *strings.Builder, groups []views.RecommendationGroup) {
	b.WriteString("## Recommendations\n\n")
	if len(groups) == 0 {
		b.WriteString("_" + views.NoContent + "_\n\n")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(b, "### %s priority\n\n", priorityLabel(g.Priority))
		for i, it := range g.Items {
			fmt.Fprintf(b, "%d. %s\n", i+1, views.Highlight(it.Text, nil))
		}
		b.WriteString("\n")
	}
}

func (f *markdownFormatter) writeGradeRisks(b *strings.Builder, rows []common.GradeRisk) {
	totals := views.SummarizeGradeRisks(rows)

	b.WriteString("## Grade Risk\n\n")
	fmt.Fprintf(b, "Average risk **%s** (%s) across %s students.\n\n", formatPercent(totals.AverageRisk), totals.AverageLevel, formatNumber(totals.TotalStudents))
	b.WriteString("| Grade | Risk | Students | Level |\n")
	b.WriteString("|-------|-----:|---------:|-------|\n")
	for _, r := range views.SortGradeRisks(rows, false) {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", escapeMarkdownCell(r.Grade), formatPercent(r.RiskPercentage), formatNumber(r.StudentCount), views.RiskLevelFor(r.RiskPercentage))
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeSchools(b *strings.Builder, t *views.SchoolTable) {
	b.WriteString("## School Risk\n\n")
	fmt.Fprintf(b, "Page %d of %d, %d of %d schools.\n\n", t.Page, t.PageCount, t.Matched, t.Total)
	b.WriteString("| School | Risk | Students | Level |\n")
	b.WriteString("|--------|-----:|---------:|-------|\n")
	for _, r := range t.Rows {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", escapeMarkdownCell(r.SchoolName), formatPercent(r.RiskPercentage), formatNumber(r.StudentCount), r.Level)
	}
	b.WriteString("\n")
}

// escapeMarkdownCell keeps a value inside one table cell
func escapeMarkdownCell(s string) string {
	return strings.ReplaceAll(oneLine(s, 0), "|", "\\|")
}

func priorityLabel(p views.Priority) string {
	s := strings.ToLower(string(p))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
