package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/yildizm/AttendSum/internal/views"
)

// csvFormatter flattens the numeric parts of a report into CSV rows
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func (f *csvFormatter) Format(r *Report) ([]byte, error) {
	if r == nil || r.Analysis == nil {
		return nil, fmt.Errorf("no analysis to format")
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	headers := []string{"Section", "Name", "Students", "Percentage", "Level", "Detail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	var records [][]string
	for _, c := range views.SummaryCards(r.Analysis.SummaryStatistics) {
		records = append(records, []string{"summary", c.Title, strconv.Itoa(c.Students), formatFloat(c.Percentage), "", ""})
	}
	for _, g := range views.SortGradeRisks(r.GradeRisks, false) {
		level := views.RiskLevelFor(g.RiskPercentage)
		records = append(records, []string{"grade", g.Grade, strconv.Itoa(g.StudentCount), formatFloat(g.RiskPercentage), level.String(), ""})
	}
	if r.Schools != nil {
		for _, s := range r.Schools.Rows {
			records = append(records, []string{"school", s.SchoolName, strconv.Itoa(s.StudentCount), formatFloat(s.RiskPercentage), s.Level.String(), s.District})
		}
	}
	for _, cat := range views.CategorizeInsights(r.Analysis.KeyInsights) {
		for _, it := range cat.Items {
			records = append(records, []string{"insight", cat.Name, "", "", string(it.Priority), oneLine(it.Text, 200)})
		}
	}
	for _, g := range views.CategorizeRecommendations(r.Analysis.Recommendations) {
		for _, it := range g.Items {
			records = append(records, []string{"recommendation", string(g.Priority), "", "", string(it.Priority), oneLine(it.Text, 200)})
		}
	}

	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}
	return b.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
