package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/dashboard"
	"github.com/yildizm/AttendSum/internal/emoji"
	"github.com/yildizm/AttendSum/internal/views"
)

const maxTextItems = 6

func (m *Model) View() string {
	if m.picking != "" {
		return m.picker.View()
	}

	sections := []string{m.renderHeader()}
	if banners := m.renderErrors(); banners != "" {
		sections = append(sections, banners)
	}
	if m.state.UI.ShowFilters {
		sections = append(sections, m.renderFilters())
	}

	switch {
	case m.state.Loading.Initial:
		sections = append(sections, m.spinner.View()+" Loading attendance data...")
	case m.state.Analysis == nil:
		sections = append(sections, m.styles.Render(m.styles.Muted, "No analysis loaded. Press a to apply filters."))
	default:
		sections = append(sections, m.renderSummary())
		switch m.pane {
		case PaneGrades:
			sections = append(sections, m.renderGrades())
		case PaneSchools:
			sections = append(sections, m.renderSchools())
		default:
			sections = append(sections, m.renderOverview())
		}
	}

	sections = append(sections, m.renderStatus(), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := m.styles.Render(m.styles.Title, emoji.GetEmoji("statistics")+" Attendance Dashboard")

	tabs := make([]string, len(paneNames))
	for i, name := range paneNames {
		if Pane(i) == m.pane {
			tabs[i] = m.styles.Render(m.styles.Selected, " "+name+" ")
		} else {
			tabs[i] = m.styles.Render(m.styles.Muted, " "+name+" ")
		}
	}

	auth := m.styles.Render(m.styles.Success, "signed in")
	switch {
	case m.state.Auth.NeedsLogin:
		auth = m.styles.Render(m.styles.Error, emoji.GetEmoji("lock")+" session expired, run attendsum login")
	case !m.state.Auth.Authenticated:
		auth = m.styles.Render(m.styles.Warning, emoji.GetEmoji("lock")+" not signed in")
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", strings.Join(tabs, ""), "  ", auth)
}

// renderErrors shows one banner per error category
func (m *Model) renderErrors() string {
	e := m.state.Errors
	var banners []string
	for _, msg := range []string{e.General, e.Filter, e.GradeRisk, e.SchoolRisk, e.Briefing} {
		if msg != "" {
			banners = append(banners, m.styles.Render(m.styles.Banner, emoji.GetEmoji("error")+" "+msg))
		}
	}
	if e.Download != "" {
		banners = append(banners, m.styles.Render(m.styles.Banner, emoji.GetEmoji("report")+" "+e.Download+"  (e to dismiss)"))
	}
	return strings.Join(banners, "\n")
}

func (m *Model) renderFilters() string {
	f, o := m.state.Filters, m.state.Options
	value := func(opts []common.Option, v string, loading bool) string {
		switch {
		case loading:
			return m.spinner.View()
		case v == "":
			return m.styles.Render(m.styles.Muted, "All")
		}
		return dashboard.Label(opts, v)
	}

	line := fmt.Sprintf("%s District: %s   %s School: %s   %s Grade: %s",
		emoji.GetEmoji("district"), value(o.Districts, f.District, m.state.Loading.Options),
		emoji.GetEmoji("school"), value(o.Schools, f.School, m.state.Loading.Schools),
		emoji.GetEmoji("grade"), value(o.Grades, f.Grade, m.state.Loading.Grades))

	if applied := m.state.AnalysisCriteria; applied != f.Criteria() {
		line += "  " + m.styles.Render(m.styles.Warning, "(press a to apply)")
	}
	return m.styles.Render(m.styles.Panel, line)
}

func (m *Model) renderSummary() string {
	cards := views.SummaryCards(m.state.Analysis.SummaryStatistics)
	rendered := make([]string, len(cards))
	for i, c := range cards {
		body := fmt.Sprintf("%s %s\n%s\n%s",
			emoji.GetEmoji(c.EmojiKey), c.Title,
			m.styles.Render(m.styles.Header, fmt.Sprintf("%d", c.Students)),
			m.styles.Render(m.styles.Muted, fmt.Sprintf("%.1f%%", c.Percentage)))
		rendered[i] = m.styles.Render(m.styles.Card, body)
	}

	var rows []string
	const perRow = 3
	for i := 0; i < len(rendered); i += perRow {
		end := min(i+perRow, len(rendered))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered[i:end]...))
	}

	stats := m.state.Analysis.SummaryStatistics
	var predictions []string
	if stats.SchoolPrediction != nil {
		predictions = append(predictions, fmt.Sprintf("School prediction %.1f%%", *stats.SchoolPrediction))
	}
	if stats.GradePrediction != nil {
		predictions = append(predictions, fmt.Sprintf("Grade prediction %.1f%%", *stats.GradePrediction))
	}
	if len(predictions) > 0 {
		rows = append(rows, m.styles.Render(m.styles.Info, strings.Join(predictions, "   ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderOverview() string {
	var b strings.Builder
	emphasis := func(s string) string { return m.styles.Render(m.styles.Emphasis, s) }

	if alerts := m.state.Analysis.AlertsNotifications; m.state.UI.NotificationsEnabled && alerts != nil && alerts.TotalBelow60 > 0 {
		fmt.Fprintf(&b, "%s %s\n\n", emoji.GetEmoji("bell"),
			m.styles.Render(m.styles.Warning, fmt.Sprintf("%d students below 60%% attendance", alerts.TotalBelow60)))
	}

	b.WriteString(m.styles.Render(m.styles.Subheader, "Key Insights") + "\n")
	categories := views.CategorizeInsights(m.state.Analysis.KeyInsights)
	if len(categories) == 0 {
		b.WriteString(m.styles.Render(m.styles.Muted, views.NoContent) + "\n")
	}
	shown := 0
	for _, cat := range categories {
		fmt.Fprintf(&b, "%s %s\n", emoji.GetEmoji(cat.EmojiKey), cat.Name)
		for _, it := range cat.Items {
			if shown == maxTextItems {
				break
			}
			fmt.Fprintf(&b, "  • %s %s\n", m.styles.Render(m.styles.Muted, fmt.Sprintf("%d%%", it.Confidence)), views.HighlightLead(it.Text, emphasis))
			shown++
		}
	}

	b.WriteString("\n" + m.styles.Render(m.styles.Subheader, "Recommendations") + "\n")
	groups := views.CategorizeRecommendations(m.state.Analysis.Recommendations)
	if len(groups) == 0 {
		b.WriteString(m.styles.Render(m.styles.Muted, views.NoContent) + "\n")
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "%s %s\n", emoji.GetEmoji(g.EmojiKey), g.Priority)
		for _, it := range g.Items {
			b.WriteString("  • " + views.Highlight(it.Text, emphasis) + "\n")
		}
	}

	if m.state.Loading.ProcessingAI {
		b.WriteString("\n" + m.spinner.View() + " Writing briefing...\n")
	} else if m.state.Briefing != "" {
		b.WriteString("\n" + m.styles.Render(m.styles.Subheader, emoji.GetEmoji("brain")+" Briefing") + "\n")
		b.WriteString(m.state.Briefing + "\n")
	}

	return m.styles.Render(m.styles.Focused, strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderGrades() string {
	var b strings.Builder

	title := "Grade Risk"
	if school := m.state.GradeSchool(); school != "" {
		title += " - " + dashboard.Label(m.state.Options.Schools, school)
	}
	b.WriteString(m.styles.Render(m.styles.Subheader, title) + "\n")

	switch {
	case m.state.Loading.GradeRisks:
		b.WriteString(m.spinner.View() + " Loading grade risks...")
		return m.styles.Render(m.styles.Focused, b.String())
	case len(m.state.GradeRisks) == 0:
		b.WriteString(m.styles.Render(m.styles.Muted, "No grade data. Select a district or school."))
		return m.styles.Render(m.styles.Focused, b.String())
	}

	totals := views.SummarizeGradeRisks(m.state.GradeRisks)
	fmt.Fprintf(&b, "Average %.1f%% (%s), highest grade %s at %.1f%%\n\n",
		totals.AverageRisk, totals.AverageLevel, totals.HighestGrade, totals.HighestRisk)

	order := "ascending"
	if m.gradeDesc {
		order = "descending"
	}
	fmt.Fprintf(&b, "%-8s %8s %10s  %s\n", "Grade", "Risk", "Students", "Level")
	rows, pages := m.gradeRows()
	for _, r := range rows {
		level := views.RiskLevelFor(r.RiskPercentage)
		fmt.Fprintf(&b, "%-8s %7.1f%% %10d  %s\n", r.Grade, r.RiskPercentage, r.StudentCount,
			m.styles.Render(m.styles.Risk(level), emoji.GetEmoji(level.EmojiKey())+" "+level.String()))
	}
	fmt.Fprintf(&b, "\n%s", m.styles.Render(m.styles.Muted, fmt.Sprintf("Page %d of %d, grades %s", m.gradePage, pages, order)))

	return m.styles.Render(m.styles.Focused, b.String())
}

func (m *Model) renderSchools() string {
	var b strings.Builder
	b.WriteString(m.styles.Render(m.styles.Subheader, "School Risk") + "\n")

	switch {
	case !views.ShowSchoolTable(m.state.UI.GlobalView, m.state.Filters.District, m.state.Filters.School):
		b.WriteString(m.styles.Render(m.styles.Muted, "Select a district to see its schools."))
		return m.styles.Render(m.styles.Focused, b.String())
	case m.state.Loading.SchoolRisks:
		b.WriteString(m.spinner.View() + " Loading school risks...")
		return m.styles.Render(m.styles.Focused, b.String())
	}

	if m.searching {
		b.WriteString(m.search.View() + "\n")
	} else if m.schoolQuery.Search != "" {
		b.WriteString(m.styles.Render(m.styles.Muted, "Search: "+m.schoolQuery.Search) + "\n")
	}

	t := m.schoolTable()
	fmt.Fprintf(&b, "Average risk %.1f%%\n\n", m.state.SchoolRiskAverage)
	fmt.Fprintf(&b, "  %-32s %8s %10s  %s\n", "School", "Risk", "Students", "Level")
	if len(t.Rows) == 0 {
		b.WriteString(m.styles.Render(m.styles.Muted, "  No schools match") + "\n")
	}
	for i, r := range t.Rows {
		line := fmt.Sprintf("%-32s %7.1f%% %10d  ", truncate(r.SchoolName, 32), r.RiskPercentage, r.StudentCount)
		line += m.styles.Render(m.styles.Risk(r.Level), r.Level.String())
		if i == m.schoolCursor {
			b.WriteString(m.styles.Render(m.styles.Selected, "> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	order := "asc"
	if m.schoolQuery.Desc {
		order = "desc"
	}
	fmt.Fprintf(&b, "\n%s", m.styles.Render(m.styles.Muted,
		fmt.Sprintf("Page %d of %d, %d of %d schools, sorted by %s %s", t.Page, t.PageCount, t.Matched, t.Total, m.schoolQuery.SortKey, order)))

	return m.styles.Render(m.styles.Focused, b.String())
}

func (m *Model) renderStatus() string {
	var parts []string
	if m.state.Loading.ApplyingFilters || m.state.Loading.Resetting || (m.state.Loading.Analysis && !m.state.Loading.Initial) {
		parts = append(parts, m.spinner.View()+" Updating analysis")
	}
	if m.state.Loading.DownloadingReport {
		parts = append(parts, m.spinner.View()+" Downloading report")
	} else if r := m.state.LastReport; r != nil {
		parts = append(parts, m.styles.Render(m.styles.Success, fmt.Sprintf("%s Saved %s report to %s", emoji.GetEmoji("success"), r.Type, r.Path)))
	}
	parts = append(parts, m.styles.Render(m.styles.Muted, "Report: "+string(m.ReportType())))
	if !m.aiEnabled {
		parts = append(parts, m.styles.Render(m.styles.Muted, "AI off"))
	}
	return strings.Join(parts, "   ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
