// Package common holds the attendance data model shared by the API client,
// the dashboard state and the views.
package common

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Option is a selectable filter value
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	District string `json:"district,omitempty"`
	School   string `json:"school,omitempty"`
}

// FilterOptions is the full option set returned by the backend
type FilterOptions struct {
	Districts []Option `json:"districts"`
	Schools   []Option `json:"schools"`
	Grades    []Option `json:"grades"`
}

// Criteria narrows an analysis request. Empty fields are omitted on the wire.
type Criteria struct {
	DistrictCode string `json:"districtCode,omitempty"`
	SchoolCode   string `json:"schoolCode,omitempty"`
	GradeCode    string `json:"gradeCode,omitempty"`
}

// IsGlobal reports whether no filter is applied
func (c Criteria) IsGlobal() bool {
	return c.DistrictCode == "" && c.SchoolCode == "" && c.GradeCode == ""
}

// Key identifies the criteria for caching
func (c Criteria) Key() string {
	return c.DistrictCode + "|" + c.SchoolCode + "|" + c.GradeCode
}

// GradeRisk is one grade's share of at-risk students
type GradeRisk struct {
	Grade          string  `json:"grade"`
	RiskPercentage float64 `json:"risk_percentage"`
	StudentCount   int     `json:"student_count"`
}

// UnmarshalJSON accepts numeric grade labels
func (g *GradeRisk) UnmarshalJSON(data []byte) error {
	var raw struct {
		Grade          json.RawMessage `json:"grade"`
		RiskPercentage float64         `json:"risk_percentage"`
		StudentCount   int             `json:"student_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Grade = flexibleString(raw.Grade)
	g.RiskPercentage = raw.RiskPercentage
	g.StudentCount = raw.StudentCount
	return nil
}

// SchoolRisk is one school's share of at-risk students
type SchoolRisk struct {
	SchoolID       string  `json:"school_id,omitempty"`
	SchoolName     string  `json:"school_name"`
	RiskPercentage float64 `json:"risk_percentage"`
	StudentCount   int     `json:"student_count"`
	RiskLevel      string  `json:"risk_level"`
	District       string  `json:"district,omitempty"`
}

// ReportType names a downloadable report
type ReportType string

const (
	ReportSummary  ReportType = "summary"
	ReportDetailed ReportType = "detailed"
	ReportBelow85  ReportType = "below_85"
	ReportTier1    ReportType = "tier1"
	ReportTier4    ReportType = "tier4"
)

// ReportTypes lists every report the backend can produce
var ReportTypes = []ReportType{ReportSummary, ReportDetailed, ReportBelow85, ReportTier1, ReportTier4}

// ParseReportType validates a report name
func ParseReportType(s string) (ReportType, bool) {
	for _, r := range ReportTypes {
		if string(r) == strings.ToLower(strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

var districtCodeRe = regexp.MustCompile(`^D\d+$`)

// DistrictCode strips the "D" prefix from codes like "D12"
func DistrictCode(code string) string {
	if districtCodeRe.MatchString(code) {
		return code[1:]
	}
	return code
}

// SchoolCode returns the last "-" separated segment of a school value,
// or the whole value when that segment is empty
func SchoolCode(value string) string {
	parts := strings.Split(value, "-")
	if code := parts[len(parts)-1]; code != "" {
		return code
	}
	return value
}

// BuildCriteria turns filter selections into backend criteria
func BuildCriteria(district, school, grade string) Criteria {
	return Criteria{
		DistrictCode: DistrictCode(district),
		SchoolCode:   SchoolCode(school),
		GradeCode:    grade,
	}
}
