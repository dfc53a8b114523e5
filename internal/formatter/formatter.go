// Package formatter renders an attendance report in the supported output
// formats.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/views"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// Report is everything one invocation renders. Only Analysis is required.
type Report struct {
	Title      string
	Criteria   common.Criteria
	Analysis   *common.Analysis
	GradeRisks []common.GradeRisk
	Schools    *views.SchoolTable
	Briefing   string
	Generated  time.Time
}

// Formats lists the accepted --format values
var Formats = []string{"text", "json", "markdown", "csv", "table"}

// New returns the formatter for format
func New(format string, color bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text", "terminal":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	case "csv":
		return NewCSV(), nil
	case "table":
		return NewTable(), nil
	}
	return nil, fmt.Errorf("unsupported format: %s (use %s)", format, strings.Join(Formats, ", "))
}

// scope describes the criteria in words
func scope(c common.Criteria) string {
	if c.IsGlobal() {
		return "All districts"
	}
	parts := make([]string, 0, 3)
	if c.DistrictCode != "" {
		parts = append(parts, "District "+c.DistrictCode)
	}
	if c.SchoolCode != "" {
		parts = append(parts, "School "+c.SchoolCode)
	}
	if c.GradeCode != "" {
		parts = append(parts, "Grade "+c.GradeCode)
	}
	return strings.Join(parts, " / ")
}

func title(r *Report) string {
	if r.Title != "" {
		return r.Title
	}
	return "Attendance Summary"
}
