package report

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/views"
)

// DefaultChartBars caps the number of bars in a school chart
const DefaultChartBars = 15

// RenderGradeChart draws the grade breakdown as a PNG bar chart, in grade order
func RenderGradeChart(w io.Writer, title string, rows []common.GradeRisk) error {
	if len(rows) == 0 {
		return fmt.Errorf("no grade risk data to chart")
	}

	sorted := views.SortGradeRisks(rows, false)
	bars := make([]chart.Value, 0, len(sorted))
	for _, r := range sorted {
		bars = append(bars, chart.Value{Label: r.Grade, Value: r.RiskPercentage})
	}
	return renderBars(w, title, bars)
}

// RenderSchoolChart draws the riskiest schools as a PNG bar chart
func RenderSchoolChart(w io.Writer, title string, rows []common.SchoolRisk, limit int) error {
	if len(rows) == 0 {
		return fmt.Errorf("no school risk data to chart")
	}
	if limit <= 0 {
		limit = DefaultChartBars
	}

	sorted := append([]common.SchoolRisk(nil), rows...)
	views.SortSchools(sorted, views.SortByRisk, true)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	bars := make([]chart.Value, 0, len(sorted))
	for _, r := range sorted {
		bars = append(bars, chart.Value{Label: shortLabel(r.SchoolName, 14), Value: r.RiskPercentage})
	}
	return renderBars(w, title, bars)
}

func renderBars(w io.Writer, title string, bars []chart.Value) error {
	top := 100.0
	for _, b := range bars {
		if b.Value > top {
			top = b.Value
		}
	}

	ch := chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		Height:     512,
		Width:      max(512, 70*len(bars)),
		BarWidth:   40,
		YAxis: chart.YAxis{
			Name:  "% at risk",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func shortLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
