package dashboard

import (
	"github.com/yildizm/AttendSum/internal/common"
)

// Reduce applies a to s and returns the new state. Results whose sequence
// number is older than the newest request started for the same concern
// are dropped, so a slow superseded response never overwrites a newer one.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetFilter:
		return reduceSetFilter(s, a)

	case ResetFilters:
		s.Filters = s.Filters.Reset()
		s.Options.Schools = s.Options.NarrowSchools("")
		s.Options.Grades = nil
		s.SelectedSchoolForGrades = ""
		s.GradeRisks = nil
		s.Errors.Filter = ""
		s.UI.GlobalView = true

	case SelectSchoolForGrades:
		s.SelectedSchoolForGrades = a.School

	case ToggleFilters:
		s.UI.ShowFilters = !s.UI.ShowFilters

	case ToggleNotifications:
		s.UI.NotificationsEnabled = !s.UI.NotificationsEnabled

	case ClearErrors:
		s.Errors = Errors{Download: s.Errors.Download}

	case ClearDownloadError:
		s.Errors.Download = ""

	case ClearCache:
		s.cache = nil

	case SessionChanged:
		s.Auth = Auth{Authenticated: a.Authenticated, NeedsLogin: a.NeedsLogin}

	case Started:
		if a.Seq < s.latest[a.Concern] {
			return s
		}
		s.latest = withSeq(s.latest, a.Concern, a.Seq)
		s = setLoading(s, a.Concern, true, a.Mode)
		s = setError(s, a.Concern, "")

	case Failed:
		if s.stale(a.Concern, a.Seq) {
			return s
		}
		s = setLoading(s, a.Concern, false, ModeRefresh)
		s = setError(s, a.Concern, a.Message)
		if a.NeedsLogin {
			s.Auth = Auth{Authenticated: false, NeedsLogin: true}
		}

	case OptionsLoaded:
		if s.stale(ConcernOptions, a.Seq) {
			return s
		}
		s.Options.Districts = NormalizeDistricts(a.Options.Districts)
		s.Options.AllSchools = append([]common.Option(nil), a.Options.Schools...)
		s.Options.AllGrades = append([]common.Option(nil), a.Options.Grades...)
		s.Options.Schools = s.Options.NarrowSchools(s.Filters.District)
		s.Options.Grades = s.Options.NarrowGrades(s.Filters.School)
		s = setLoading(s, ConcernOptions, false, ModeRefresh)

	case SchoolsLoaded:
		if s.stale(ConcernSchools, a.Seq) {
			return s
		}
		s.Options.AllSchools = mergeSchools(s.Options.AllSchools, a.District, a.Schools)
		s.Options.Schools = s.Options.NarrowSchools(s.Filters.District)
		s = setLoading(s, ConcernSchools, false, ModeRefresh)

	case GradesLoaded:
		if s.stale(ConcernGrades, a.Seq) {
			return s
		}
		s.Options.AllGrades = mergeGrades(s.Options.AllGrades, a.School, a.Grades)
		s.Options.Grades = s.Options.NarrowGrades(s.Filters.School)
		s = setLoading(s, ConcernGrades, false, ModeRefresh)

	case AnalysisLoaded:
		if s.stale(ConcernAnalysis, a.Seq) {
			return s
		}
		s.Analysis = a.Analysis
		s.AnalysisCriteria = a.Criteria
		s.UI.GlobalView = a.Criteria.IsGlobal()
		s.cache = withCached(s.cache, a.Criteria, a.Analysis)
		s = setLoading(s, ConcernAnalysis, false, ModeRefresh)
		s.Errors.General = ""

	case GradeRisksLoaded:
		if s.stale(ConcernGradeRisks, a.Seq) {
			return s
		}
		s.GradeRisks = a.Grades
		s = setLoading(s, ConcernGradeRisks, false, ModeRefresh)
		s.Errors.GradeRisk = ""

	case SchoolRisksLoaded:
		if s.stale(ConcernSchoolRisks, a.Seq) {
			return s
		}
		s.SchoolRisks = a.Schools
		s.SchoolRiskAverage = a.Average
		s = setLoading(s, ConcernSchoolRisks, false, ModeRefresh)
		s.Errors.SchoolRisk = ""

	case ReportSaved:
		if s.stale(ConcernReport, a.Seq) {
			return s
		}
		report := a.Report
		s.LastReport = &report
		s = setLoading(s, ConcernReport, false, ModeRefresh)
		s.Errors.Download = ""

	case BriefingLoaded:
		if s.stale(ConcernBriefing, a.Seq) {
			return s
		}
		s.Briefing = a.Text
		s = setLoading(s, ConcernBriefing, false, ModeRefresh)
		s.Errors.Briefing = ""
	}
	return s
}

func reduceSetFilter(s State, a SetFilter) State {
	next, err := s.Filters.Set(a.Field, a.Value)
	if err != nil {
		s.Errors.Filter = err.Error()
		return s
	}
	s.Filters = next
	s.Errors.Filter = ""

	switch a.Field {
	case FieldDistrict:
		s.Options.Schools = s.Options.NarrowSchools(a.Value)
		s.Options.Grades = nil
		s.SelectedSchoolForGrades = ""
		s.GradeRisks = nil
	case FieldSchool:
		s.Options.Grades = s.Options.NarrowGrades(a.Value)
		s.SelectedSchoolForGrades = ""
	}
	return s
}

func (s State) stale(c Concern, seq uint64) bool {
	return seq < s.latest[c]
}

func setLoading(s State, c Concern, on bool, mode AnalysisMode) State {
	switch c {
	case ConcernOptions:
		s.Loading.Options = on
	case ConcernSchools:
		s.Loading.Schools = on
	case ConcernGrades:
		s.Loading.Grades = on
	case ConcernAnalysis:
		s.Loading.Analysis = on
		if on {
			switch mode {
			case ModeInitial:
				s.Loading.Initial = true
			case ModeApply:
				s.Loading.ApplyingFilters = true
			case ModeReset:
				s.Loading.Resetting = true
			}
		} else {
			s.Loading.Initial = false
			s.Loading.ApplyingFilters = false
			s.Loading.Resetting = false
		}
	case ConcernGradeRisks:
		s.Loading.GradeRisks = on
	case ConcernSchoolRisks:
		s.Loading.SchoolRisks = on
	case ConcernReport:
		s.Loading.DownloadingReport = on
	case ConcernBriefing:
		s.Loading.ProcessingAI = on
	}
	return s
}

func setError(s State, c Concern, msg string) State {
	switch c {
	case ConcernOptions, ConcernAnalysis:
		s.Errors.General = msg
	case ConcernSchools, ConcernGrades:
		s.Errors.Filter = msg
	case ConcernGradeRisks:
		s.Errors.GradeRisk = msg
	case ConcernSchoolRisks:
		s.Errors.SchoolRisk = msg
	case ConcernReport:
		s.Errors.Download = msg
	case ConcernBriefing:
		s.Errors.Briefing = msg
	}
	return s
}

func withSeq(m map[Concern]uint64, c Concern, seq uint64) map[Concern]uint64 {
	out := make(map[Concern]uint64, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[c] = seq
	return out
}

func withCached(m map[string]*common.Analysis, c common.Criteria, a *common.Analysis) map[string]*common.Analysis {
	out := make(map[string]*common.Analysis, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if a != nil {
		out[c.Key()] = a
	}
	return out
}

func mergeSchools(all []common.Option, district string, fetched []common.Option) []common.Option {
	if district == "" {
		return append([]common.Option(nil), fetched...)
	}
	code := common.DistrictCode(district)
	out := make([]common.Option, 0, len(all)+len(fetched))
	for _, o := range all {
		if common.DistrictCode(o.District) != code {
			out = append(out, o)
		}
	}
	for _, o := range fetched {
		if o.District == "" {
			o.District = district
		}
		out = append(out, o)
	}
	return out
}

func mergeGrades(all []common.Option, school string, fetched []common.Option) []common.Option {
	out := make([]common.Option, 0, len(all)+len(fetched))
	for _, o := range all {
		if o.School != school {
			out = append(out, o)
		}
	}
	for _, o := range fetched {
		if o.School == "" {
			o.School = school
		}
		out = append(out, o)
	}
	return out
}
