// Package dashboard holds the application state: the filter cascade, the
// per-request loading and error flags, and the fetched payloads. State only
// changes through Reduce; the Controller issues the requests.
package dashboard

import (
	"github.com/yildizm/AttendSum/internal/common"
)

// Concern is an independent kind of request. Requests for different
// concerns never wait on each other.
type Concern string

const (
	ConcernOptions     Concern = "options"
	ConcernSchools     Concern = "schools"
	ConcernGrades      Concern = "grades"
	ConcernAnalysis    Concern = "analysis"
	ConcernGradeRisks  Concern = "grade-risks"
	ConcernSchoolRisks Concern = "school-risks"
	ConcernReport      Concern = "report"
	ConcernBriefing    Concern = "briefing"
)

// Messages stored when a load fails without a more specific reason
const (
	MsgOptionsFailed    = "Failed to load filter options. Please try again."
	MsgInitialFailed    = "Failed to load initial data. Please try again."
	MsgGradeRiskFailed  = "Failed to load grade risk data"
	MsgDownloadPrefix   = "Error downloading report: "
	MsgSchoolRiskFailed = "Failed to load school risk data"
)

// Loading has one flag per request kind
type Loading struct {
	Initial           bool `json:"initial"`
	Analysis          bool `json:"analysis"`
	ApplyingFilters   bool `json:"applying_filters"`
	Resetting         bool `json:"resetting"`
	Options           bool `json:"options"`
	Schools           bool `json:"schools"`
	Grades            bool `json:"grades"`
	GradeRisks        bool `json:"grade_risks"`
	SchoolRisks       bool `json:"school_risks"`
	DownloadingReport bool `json:"downloading_report"`
	ProcessingAI      bool `json:"processing_ai"`
}

// Any reports whether any request is outstanding
func (l Loading) Any() bool {
	return l.Initial || l.Analysis || l.Options || l.Schools || l.Grades ||
		l.GradeRisks || l.SchoolRisks || l.DownloadingReport || l.ProcessingAI
}

// Errors has one message per error category. Download is never touched by
// failures of other requests.
type Errors struct {
	General    string `json:"general,omitempty"`
	Filter     string `json:"filter,omitempty"`
	GradeRisk  string `json:"grade_risk,omitempty"`
	SchoolRisk string `json:"school_risk,omitempty"`
	Download   string `json:"download,omitempty"`
	Briefing   string `json:"briefing,omitempty"`
}

// Any reports whether any error is set
func (e Errors) Any() bool {
	return e != Errors{}
}

// UI holds view toggles
type UI struct {
	GlobalView           bool `json:"global_view"`
	ShowFilters          bool `json:"show_filters"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// Auth mirrors the session for display
type Auth struct {
	Authenticated bool `json:"authenticated"`
	NeedsLogin    bool `json:"needs_login"`
}

// SavedReport describes the last downloaded report
type SavedReport struct {
	Type  common.ReportType `json:"type"`
	Path  string            `json:"path"`
	Bytes int               `json:"bytes"`
}

// AnalysisMode says why an analysis request was issued
type AnalysisMode int

const (
	ModeRefresh AnalysisMode = iota
	ModeInitial
	ModeApply
	ModeReset
)

// State is the whole dashboard state. Treat it as a value: Reduce returns a
// new State and never mutates maps or slices it was given.
type State struct {
	Filters  Filters          `json:"filters"`
	Options  Options          `json:"options"`
	Loading  Loading          `json:"loading"`
	Errors   Errors           `json:"errors"`
	UI       UI               `json:"ui"`
	Auth     Auth             `json:"auth"`
	Analysis *common.Analysis `json:"analysis,omitempty"`

	// AnalysisCriteria is what Analysis was fetched for
	AnalysisCriteria common.Criteria `json:"analysis_criteria"`

	GradeRisks              []common.GradeRisk  `json:"grade_risks"`
	SchoolRisks             []common.SchoolRisk `json:"school_risks"`
	SchoolRiskAverage       float64             `json:"school_risk_average"`
	SelectedSchoolForGrades string              `json:"selected_school_for_grades,omitempty"`
	LastReport              *SavedReport        `json:"last_report,omitempty"`
	Briefing                string              `json:"briefing,omitempty"`

	cache  map[string]*common.Analysis
	latest map[Concern]uint64
}

// Initial is the state at startup: an initial load pending, filters shown
func Initial() State {
	return State{
		Loading: Loading{Initial: true, Analysis: true},
		UI:      UI{ShowFilters: true, NotificationsEnabled: true},
	}
}

// Cached returns the cached analysis for criteria
func (s State) Cached(c common.Criteria) (*common.Analysis, bool) {
	a, ok := s.cache[c.Key()]
	return a, ok
}

// CacheSize is the number of cached analyses
func (s State) CacheSize() int {
	return len(s.cache)
}

// Latest returns the newest sequence number started for concern
func (s State) Latest(c Concern) uint64 {
	return s.latest[c]
}

// GradeSchool is the school whose grade breakdown is wanted
func (s State) GradeSchool() string {
	if s.SelectedSchoolForGrades != "" {
		return s.SelectedSchoolForGrades
	}
	return s.Filters.School
}
