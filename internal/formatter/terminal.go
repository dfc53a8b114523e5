package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/emoji"
	"github.com/yildizm/AttendSum/internal/views"
	"github.com/yildizm/go-termfmt"
)

const maxTerminalRows = 10

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = !emoji.IsEmojiDisabled()
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(r *Report) ([]byte, error) {
	if r == nil || r.Analysis == nil {
		return nil, fmt.Errorf("no analysis to format")
	}

	var b strings.Builder
	f.writeHeader(&b, title(r), scope(r.Criteria))
	f.writeSummary(&b, r.Analysis.SummaryStatistics)
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
		f.writeBriefing(&b, r.Briefing)
	}

	return []byte(b.String()), nil
}

// writeHeader writes a box drawn header
func (f *terminalFormatter) writeHeader(b *strings.Builder, header, subtitle string) {
	width := max(len(header), len(subtitle))

	b.WriteString("╔" + strings.Repeat("═", width+2) + "╗\n")
	b.WriteString("║ " + header + strings.Repeat(" ", width-len(header)) + " ║\n")
	b.WriteString("║ " + subtitle + strings.Repeat(" ", width-len(subtitle)) + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", width+2) + "╝\n\n")
}

// writeSummary writes the tier cards as a tree
func (f *terminalFormatter) writeSummary(b *strings.Builder, stats common.SummaryStatistics) {
	b.WriteString(termfmt.GetEmoji("statistics", f.opts) + " Summary\n")

	cards := views.SummaryCards(stats)
	items := make([]termfmt.TreeItem, 0, len(cards)+2)
	for _, c := range cards {
		items = append(items, termfmt.TreeItem{
			Label: fmt.Sprintf("%s %s", f.symbol(c.EmojiKey), c.Title),
			Value: fmt.Sprintf("%s (%s)", formatNumber(c.Students), formatPercent(c.Percentage)),
		})
	}
	if stats.SchoolPrediction != nil {
		items = append(items, termfmt.TreeItem{Label: "School prediction", Value: formatPercent(*stats.SchoolPrediction)})
	}
	if stats.GradePrediction != nil {
		items = append(items, termfmt.TreeItem{Label: "Grade prediction", Value: formatPercent(*stats.GradePrediction)})
	}
	if len(items) > 0 {
		items[len(items)-1].Last = true
	}

	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

// writeAlerts writes the below-60% counts
func (f *terminalFormatter) writeAlerts(b *strings.Builder, alerts *common.AlertsNotifications) {
	if alerts == nil || alerts.TotalBelow60 == 0 {
		return
	}
	fmt.Fprintf(b, "%s Alerts: %s students below 60%% attendance\n", f.symbol("bell"), formatNumber(alerts.TotalBelow60))

	var items []termfmt.TreeItem
	for _, d := range alerts.ByDistrict {
		items = append(items, termfmt.TreeItem{Label: "District " + d.District, Value: formatNumber(d.Count)})
	}
	for _, s := range alerts.BySchool {
		items = append(items, termfmt.TreeItem{Label: s.School, Value: formatNumber(s.Count)})
	}
	for _, g := range alerts.ByGrade {
		items = append(items, termfmt.TreeItem{Label: "Grade " + g.Grade, Value: formatNumber(g.Count)})
	}
	if len(items) > 0 {
		items[len(items)-1].Last = true
		b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
	}
	b.WriteString("\n")
}

// writeInsights writes categorized insights with confidence bars
func (f *terminalFormatter) writeInsights(b *strings.Builder, categories []views.InsightCategory) {
	b.WriteString(termfmt.GetEmoji("insights", f.opts) + " Key Insights\n")
	if len(categories) == 0 {
		b.WriteString("  " + views.NoContent + "\n\n")
		return
	}

	items := make([]termfmt.TreeItem, 0, len(categories))
	for i, cat := range categories {
		children := make([]termfmt.TreeItem, 0, len(cat.Items))
		for j, it := range cat.Items {
			bar := termfmt.CreateConfidenceBar(float64(it.Confidence)/100, f.opts)
			children = append(children, termfmt.TreeItem{
				Label: fmt.Sprintf("%s [%s] %s", bar, it.Priority, views.HighlightLead(it.Text, f.emphasis)),
				Last:  j == len(cat.Items)-1,
			})
		}
		items = append(items, termfmt.TreeItem{
			Label:    fmt.Sprintf("%s %s", f.symbol(cat.EmojiKey), cat.Name),
			Value:    fmt.Sprintf("(%d)", len(cat.Items)),
			Children: children,
			Last:     i == len(categories)-1,
		})
	}

	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

// writeRecommendations writes recommendations grouped by urgency
func (f *terminalFormatter) writeRecommendations(b *strings.Builder, groups []views.RecommendationGroup) {
	b.WriteString(termfmt.GetEmoji("recommendations", f.opts) + " Recommendations\n")
	if len(groups) == 0 {
		b.WriteString("  " + views.NoContent + "\n\n")
		return
	}

	for _, g := range groups {
		fmt.Fprintf(b, "%s %s priority\n", f.symbol(g.EmojiKey), g.Priority)
		for _, it := range g.Items {
			b.WriteString("• " + views.Highlight(it.Text, f.emphasis) + "\n")
		}
	}
	b.WriteString("\n")
}

// writeGradeRisks writes the grade breakdown in grade order
func (f *terminalFormatter) writeGradeRisks(b *strings.Builder, rows []common.GradeRisk) {
	totals := views.SummarizeGradeRisks(rows)
	fmt.Fprintf(b, "%s Grade Risk (average %s, %s)\n", f.symbol("grade"), formatPercent(totals.AverageRisk), totals.AverageLevel)

	sorted := views.SortGradeRisks(rows, false)
	items := make([]termfmt.TreeItem, 0, len(sorted))
	for i, r := range sorted {
		level := views.RiskLevelFor(r.RiskPercentage)
		items = append(items, termfmt.TreeItem{
			Label: fmt.Sprintf("%s Grade %s", f.symbol(level.EmojiKey()), r.Grade),
			Value: fmt.Sprintf("%s of %s students (%s)", formatPercent(r.RiskPercentage), formatNumber(r.StudentCount), level),
			Last:  i == len(sorted)-1,
		})
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

// writeSchools writes one page of the school table
func (f *terminalFormatter) writeSchools(b *strings.Builder, t *views.SchoolTable) {
	fmt.Fprintf(b, "%s School Risk (page %d of %d, %d of %d schools)\n", f.symbol("school"), t.Page, t.PageCount, t.Matched, t.Total)

	rows := t.Rows
	if len(rows) > maxTerminalRows {
		rows = rows[:maxTerminalRows]
	}
	for i, r := range rows {
		branch := "├─"
		if i == len(rows)-1 {
			branch = "└─"
		}
		fmt.Fprintf(b, "%s %s %s %s (%s students, %s)\n", branch, f.symbol(r.Level.EmojiKey()), r.SchoolName,
			formatPercent(r.RiskPercentage), formatNumber(r.StudentCount), r.Level)
	}
	b.WriteString("\n")
}

func (f *terminalFormatter) writeBriefing(b *strings.Builder, text string) {
	fmt.Fprintf(b, "%s Briefing\n", f.symbol("brain"))
	b.WriteString(strings.Repeat("─", 50) + "\n")
	b.WriteString(strings.TrimSpace(text) + "\n")
}

func (f *terminalFormatter) symbol(key string) string {
	return emoji.GetEmoji(key)
}

// emphasis marks highlighted spans. Without color the text is left as is.
func (f *terminalFormatter) emphasis(s string) string {
	if f.opts == nil || !f.opts.Color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}
