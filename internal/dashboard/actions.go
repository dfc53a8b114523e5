package dashboard

import (
	"github.com/yildizm/AttendSum/internal/common"
)

// Action is a state transition. Results of requests carry the sequence
// number their request was started with.
type Action interface {
	isAction()
}

// SetFilter changes one cascade level
type SetFilter struct {
	Field Field
	Value string
}

// ResetFilters clears every filter and the grade school selection
type ResetFilters struct{}

// SelectSchoolForGrades picks the school whose grades are broken down
type SelectSchoolForGrades struct {
	School string
}

// ToggleFilters shows or hides the filter panel
type ToggleFilters struct{}

// ToggleNotifications enables or disables alert notifications
type ToggleNotifications struct{}

// ClearErrors clears every error except Download
type ClearErrors struct{}

// ClearDownloadError dismisses the download banner
type ClearDownloadError struct{}

// ClearCache drops cached analyses
type ClearCache struct{}

// SessionChanged mirrors a session change into state
type SessionChanged struct {
	Authenticated bool
	NeedsLogin    bool
}

// Started marks a request as in flight
type Started struct {
	Concern Concern
	Seq     uint64
	Mode    AnalysisMode
}

// Failed records a request failure
type Failed struct {
	Concern Concern
	Seq     uint64
	Message string
	// NeedsLogin is set when the failure signed the session out
	NeedsLogin bool
}

// OptionsLoaded carries the full option lists
type OptionsLoaded struct {
	Seq     uint64
	Options common.FilterOptions
}

// SchoolsLoaded carries the schools of a district
type SchoolsLoaded struct {
	Seq      uint64
	District string
	Schools  []common.Option
}

// GradesLoaded carries the grades of a school
type GradesLoaded struct {
	Seq    uint64
	School string
	Grades []common.Option
}

// AnalysisLoaded carries a fresh or cached analysis
type AnalysisLoaded struct {
	Seq      uint64
	Criteria common.Criteria
	Analysis *common.Analysis
}

// GradeRisksLoaded carries a grade breakdown
type GradeRisksLoaded struct {
	Seq    uint64
	Grades []common.GradeRisk
}

// SchoolRisksLoaded carries a school breakdown
type SchoolRisksLoaded struct {
	Seq     uint64
	Schools []common.SchoolRisk
	Average float64
}

// ReportSaved records a downloaded report
type ReportSaved struct {
	Seq    uint64
	Report SavedReport
}

// BriefingLoaded carries an AI narrative of the analysis
type BriefingLoaded struct {
	Seq  uint64
	Text string
}

func (SetFilter) isAction()             {}
func (ResetFilters) isAction()          {}
func (SelectSchoolForGrades) isAction() {}
func (ToggleFilters) isAction()         {}
func (ToggleNotifications) isAction()   {}
func (ClearErrors) isAction()           {}
func (ClearDownloadError) isAction()    {}
func (ClearCache) isAction()            {}
func (SessionChanged) isAction()        {}
func (Started) isAction()               {}
func (Failed) isAction()                {}
func (OptionsLoaded) isAction()         {}
func (SchoolsLoaded) isAction()         {}
func (GradesLoaded) isAction()          {}
func (AnalysisLoaded) isAction()        {}
func (GradeRisksLoaded) isAction()      {}
func (SchoolRisksLoaded) isAction()     {}
func (ReportSaved) isAction()           {}
func (BriefingLoaded) isAction()        {}
