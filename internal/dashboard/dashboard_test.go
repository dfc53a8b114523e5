package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/yildizm/AttendSum/internal/apiclient"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	options  *common.FilterOptions
	schools  []common.Option
	grades   []common.Option
	analysis map[string]*common.Analysis
	report   []byte
	errs     map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		options: &common.FilterOptions{
			Districts: []common.Option{{Value: "D12", Label: "District 12"}},
			Schools:   []common.Option{{Value: "12-0034", Label: "Lincoln", District: "12"}},
		},
		schools: []common.Option{{Value: "7-0001", Label: "Adams"}},
		grades:  []common.Option{{Value: "5", Label: "Grade 5"}},
		analysis: map[string]*common.Analysis{
			common.Criteria{}.Key(): {KeyInsights: []common.TextItem{common.PlainItem("global")}},
		},
		report: []byte("xlsx"),
		errs:   make(map[string]error),
	}
}

func (f *fakeBackend) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.errs[strings.SplitN(call, " ", 2)[0]]
}

func (f *fakeBackend) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) FilterOptions(ctx context.Context) (*common.FilterOptions, error) {
	if err := f.record("options"); err != nil {
		return nil, err
	}
	return f.options, nil
}

func (f *fakeBackend) SchoolsByDistrict(ctx context.Context, district string) ([]common.Option, error) {
	if err := f.record("schools " + district); err != nil {
		return nil, err
	}
	return f.schools, nil
}

func (f *fakeBackend) GradesBySchool(ctx context.Context, district, school string) ([]common.Option, error) {
	if err := f.record("grades " + district + "/" + school); err != nil {
		return nil, err
	}
	return f.grades, nil
}

func (f *fakeBackend) PredictionInsights(ctx context.Context, criteria common.Criteria) (*common.Analysis, error) {
	if err := f.record("analysis " + criteria.Key()); err != nil {
		return nil, err
	}
	if a, ok := f.analysis[criteria.Key()]; ok {
		return a, nil
	}
	return &common.Analysis{KeyInsights: []common.TextItem{common.PlainItem(criteria.Key())}}, nil
}

func (f *fakeBackend) GradeRisks(ctx context.Context, district, school string) (*apiclient.GradeRiskReport, error) {
	if err := f.record("grade-risks " + district + "/" + school); err != nil {
		return nil, err
	}
	return &apiclient.GradeRiskReport{Grades: []common.GradeRisk{{Grade: "5", RiskPercentage: 12}}}, nil
}

func (f *fakeBackend) SchoolRisks(ctx context.Context, district string) (*apiclient.SchoolRiskReport, error) {
	if err := f.record("school-risks " + district); err != nil {
		return nil, err
	}
	return &apiclient.SchoolRiskReport{Schools: []common.SchoolRisk{{SchoolName: "Lincoln", RiskPercentage: 22}}, AverageRisk: 22}, nil
}

func (f *fakeBackend) DownloadReport(ctx context.Context, kind common.ReportType, criteria common.Criteria) ([]byte, error) {
	if err := f.record("report " + string(kind)); err != nil {
		return nil, err
	}
	return f.report, nil
}

type memorySink struct {
	saved map[common.ReportType][]byte
	err   error
}

func (m *memorySink) Save(kind common.ReportType, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = make(map[common.ReportType][]byte)
	}
	m.saved[kind] = data
	return "/tmp/" + string(kind) + ".xlsx", nil
}

func TestFiltersSetCascade(t *testing.T) {
	start := Filters{District: "12", School: "12-0034", Grade: "5"}

	tests := []struct {
		name  string
		field Field
		value string
		want  Filters
	}{
		{"district clears school and grade", FieldDistrict, "7", Filters{District: "7"}},
		{"same district still clears", FieldDistrict, "12", Filters{District: "12"}},
		{"school clears grade", FieldSchool, "12-0099", Filters{District: "12", School: "12-0099"}},
		{"grade only changes grade", FieldGrade, "K", Filters{District: "12", School: "12-0034", Grade: "K"}},
		{"empty district clears everything", FieldDistrict, "", Filters{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := start.Set(tt.field, tt.value)
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Set() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := start.Set(Field("region"), "x"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestReduceSetDistrictNarrowsOptions(t *testing.T) {
	s := Initial()
	s.Options.AllSchools = []common.Option{
		{Value: "12-0034", District: "12"},
		{Value: "7-0001", District: "D7"},
	}
	s.Options.Grades = []common.Option{{Value: "5"}}
	s.GradeRisks = []common.GradeRisk{{Grade: "5"}}
	s.SelectedSchoolForGrades = "12-0034"

	s = Reduce(s, SetFilter{Field: FieldDistrict, Value: "7"})

	if len(s.Options.Schools) != 1 || s.Options.Schools[0].Value != "7-0001" {
		t.Errorf("Schools = %+v, want only 7-0001", s.Options.Schools)
	}
	if s.Options.Grades != nil {
		t.Errorf("Grades = %+v, want nil", s.Options.Grades)
	}
	if s.GradeRisks != nil || s.SelectedSchoolForGrades != "" {
		t.Error("expected grade breakdown to be cleared")
	}
}

func TestReduceDiscardsStaleResults(t *testing.T) {
	s := Initial()
	s = Reduce(s, Started{Concern: ConcernAnalysis, Seq: 1, Mode: ModeApply})
	s = Reduce(s, Started{Concern: ConcernAnalysis, Seq: 2, Mode: ModeApply})

	old := &common.Analysis{KeyInsights: []common.TextItem{common.PlainItem("old")}}
	s = Reduce(s, AnalysisLoaded{Seq: 1, Criteria: common.Criteria{DistrictCode: "7"}, Analysis: old})

	if s.Analysis != nil {
		t.Fatal("stale result was applied")
	}
	if !s.Loading.Analysis || !s.Loading.ApplyingFilters {
		t.Error("loading flags cleared by a stale result")
	}

	s = Reduce(s, Failed{Concern: ConcernAnalysis, Seq: 1, Message: "boom"})
	if s.Errors.General != "" {
		t.Errorf("stale failure set error %q", s.Errors.General)
	}

	fresh := &common.Analysis{KeyInsights: []common.TextItem{common.PlainItem("new")}}
	s = Reduce(s, AnalysisLoaded{Seq: 2, Criteria: common.Criteria{DistrictCode: "12"}, Analysis: fresh})
	if s.Analysis != fresh {
		t.Error("current result was not applied")
	}
	if s.Loading.Analysis || s.Loading.ApplyingFilters {
		t.Error("loading flags not cleared")
	}
	if s.UI.GlobalView {
		t.Error("filtered analysis should leave the global view")
	}
}

func TestReduceConcernsAreIndependent(t *testing.T) {
	s := Initial()
	s = Reduce(s, Started{Concern: ConcernReport, Seq: 1})
	s = Reduce(s, Failed{Concern: ConcernReport, Seq: 1, Message: MsgDownloadPrefix + "boom"})
	s = Reduce(s, Started{Concern: ConcernGradeRisks, Seq: 1})
	s = Reduce(s, Failed{Concern: ConcernGradeRisks, Seq: 1, Message: MsgGradeRiskFailed})

	if s.Errors.Download != MsgDownloadPrefix+"boom" {
		t.Errorf("Download = %q", s.Errors.Download)
	}

	s = Reduce(s, ClearErrors{})
	if s.Errors.GradeRisk != "" {
		t.Error("ClearErrors kept grade risk error")
	}
	if s.Errors.Download == "" {
		t.Error("ClearErrors dropped the download error")
	}

	s = Reduce(s, ClearDownloadError{})
	if s.Errors.Any() {
		t.Errorf("Errors = %+v, want none", s.Errors)
	}
}

func TestReduceFailedNeedsLogin(t *testing.T) {
	s := Initial()
	s = Reduce(s, SessionChanged{Authenticated: true})
	s = Reduce(s, Started{Concern: ConcernSchoolRisks, Seq: 3})
	s = Reduce(s, Failed{Concern: ConcernSchoolRisks, Seq: 3, Message: "Unauthorized", NeedsLogin: true})

	if s.Auth.Authenticated || !s.Auth.NeedsLogin {
		t.Errorf("Auth = %+v, want signed out with login prompt", s.Auth)
	}
	if s.Loading.SchoolRisks {
		t.Error("loading flag left set")
	}
}

func TestControllerLoadInitial(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend)

	st := c.State()
	if !st.Loading.Initial {
		t.Fatal("initial state should be loading")
	}

	st = c.Run(context.Background(), c.LoadInitial()...)

	if st.Loading.Any() {
		t.Errorf("Loading = %+v, want idle", st.Loading)
	}
	if len(st.Options.Districts) != 1 || st.Options.Districts[0].Value != "12" {
		t.Errorf("Districts = %+v, want normalized 12", st.Options.Districts)
	}
	if st.Analysis == nil || !st.UI.GlobalView {
		t.Error("expected global analysis")
	}
	if st.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", st.CacheSize())
	}
}

func TestControllerInitialFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.errs["analysis"] = errors.New("connection refused")
	backend.errs["options"] = errors.New("connection refused")
	c := NewController(backend)

	st := c.Run(context.Background(), c.LoadInitial()...)

	if st.Errors.General != MsgInitialFailed && st.Errors.General != MsgOptionsFailed {
		t.Errorf("General = %q", st.Errors.General)
	}
	if st.Loading.Initial {
		t.Error("initial flag left set")
	}
}

func TestControllerSelectDistrictFetchesUncachedSchools(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend)
	c.Run(context.Background(), c.LoadInitial()...)

	st := c.Run(context.Background(), c.SelectDistrict("D12")...)
	if backend.called("schools") != 0 {
		t.Error("cached district should not refetch schools")
	}
	if len(st.Options.Schools) != 1 {
		t.Errorf("Schools = %+v", st.Options.Schools)
	}
	if backend.called("school-risks 12") != 1 {
		t.Error("expected school risks for district 12")
	}

	st = c.Run(context.Background(), c.SelectDistrict("7")...)
	if backend.called("schools 7") != 1 {
		t.Error("expected schools fetch for district 7")
	}
	if len(st.Options.Schools) != 1 || st.Options.Schools[0].District != "7" {
		t.Errorf("Schools = %+v, want Adams tagged with district 7", st.Options.Schools)
	}
}

func TestControllerSelectSchoolLoadsGradesAndRisks(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend)
	c.Run(context.Background(), c.SelectDistrict("12")...)

	st := c.Run(context.Background(), c.SelectSchool("12-0034")...)

	if backend.called("grades 12/0034") != 1 {
		t.Errorf("calls = %v", backend.calls)
	}
	if len(st.Options.Grades) != 1 {
		t.Errorf("Grades = %+v", st.Options.Grades)
	}
	if backend.called("grade-risks 12/0034") != 1 {
		t.Errorf("calls = %v", backend.calls)
	}
	if len(st.GradeRisks) != 1 {
		t.Errorf("GradeRisks = %+v", st.GradeRisks)
	}
}

func TestControllerGradeRisksSkippedWithoutSelection(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend)

	cmds := c.LoadGradeRisks()
	if len(cmds) != 0 {
		t.Fatalf("expected no request, got %d", len(cmds))
	}
	st := c.State()
	if st.Loading.GradeRisks || st.GradeRisks != nil {
		t.Errorf("expected empty settled breakdown, got %+v", st.GradeRisks)
	}
}

func TestControllerResetReusesCachedGlobalAnalysis(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend)
	c.Run(context.Background(), c.LoadInitial()...)
	c.Run(context.Background(), c.SelectDistrict("12")...)
	c.Run(context.Background(), c.ApplyFilters()...)

	if c.State().UI.GlobalView {
		t.Fatal("expected filtered view after apply")
	}

	before := backend.called("analysis")
	st := c.Run(context.Background(), c.ResetFilters()...)

	if backend.called("analysis") != before {
		t.Error("reset should reuse the cached global analysis")
	}
	if !st.UI.GlobalView || !st.Filters.IsEmpty() {
		t.Errorf("state after reset: global=%v filters=%+v", st.UI.GlobalView, st.Filters)
	}
	if st.Loading.Resetting {
		t.Error("resetting flag left set")
	}
	if backend.called("grade-risks -1/-1") != 1 {
		t.Errorf("calls = %v", backend.calls)
	}
}

func TestControllerResetFetchesWhenNotCached(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend)
	c.Dispatch(ClearCache{})

	c.Run(context.Background(), c.ResetFilters()...)
	if backend.called("analysis ||") != 1 {
		t.Errorf("calls = %v", backend.calls)
	}
}

func TestControllerSupersededRequestIsDropped(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend)

	c.SelectDistrict("7")
	first := c.ApplyFilters()
	c.SelectDistrict("12")
	second := c.ApplyFilters()

	ctx := context.Background()
	c.Run(ctx, second...)
	st := c.Run(ctx, first...)

	if st.AnalysisCriteria.DistrictCode != "12" {
		t.Errorf("AnalysisCriteria = %+v, want district 12", st.AnalysisCriteria)
	}
}

func TestControllerDownloadReport(t *testing.T) {
	t.Run("saved", func(t *testing.T) {
		sink := &memorySink{}
		c := NewController(newFakeBackend(), WithReportSink(sink))

		st := c.Run(context.Background(), c.DownloadReport(common.ReportTier4)...)

		if st.LastReport == nil || st.LastReport.Bytes != 4 {
			t.Fatalf("LastReport = %+v", st.LastReport)
		}
		if string(sink.saved[common.ReportTier4]) != "xlsx" {
			t.Error("report not handed to sink")
		}
	})

	t.Run("backend error keeps other errors untouched", func(t *testing.T) {
		backend := newFakeBackend()
		backend.errs["report"] = &apiclient.Error{Kind: apiclient.ErrKindServer, Message: "Server error: 500", StatusCode: http.StatusInternalServerError}
		c := NewController(backend, WithReportSink(&memorySink{}))

		st := c.Run(context.Background(), c.DownloadReport(common.ReportSummary)...)

		if st.Errors.Download != MsgDownloadPrefix+"Server error: 500" {
			t.Errorf("Download = %q", st.Errors.Download)
		}
		if st.Errors.General != "" {
			t.Errorf("General = %q, want empty", st.Errors.General)
		}
		if st.Loading.DownloadingReport {
			t.Error("downloading flag left set")
		}
	})

	t.Run("no sink", func(t *testing.T) {
		c := NewController(newFakeBackend())
		if cmds := c.DownloadReport(common.ReportSummary); len(cmds) != 0 {
			t.Fatal("expected no request without a sink")
		}
		if !strings.HasPrefix(c.State().Errors.Download, MsgDownloadPrefix) {
			t.Errorf("Download = %q", c.State().Errors.Download)
		}
	})
}

func TestControllerUnauthorizedPromptsLogin(t *testing.T) {
	backend := newFakeBackend()
	backend.errs["school-risks"] = &apiclient.Error{Kind: apiclient.ErrKindUnauthorized, Message: "Unauthorized", StatusCode: 401, PromptLogin: true}
	c := NewController(backend)

	st := c.Run(context.Background(), c.SelectDistrict("12")...)

	if !st.Auth.NeedsLogin {
		t.Error("expected login prompt")
	}
	if st.Errors.SchoolRisk != "Unauthorized" {
		t.Errorf("SchoolRisk = %q", st.Errors.SchoolRisk)
	}
}

type stubBriefer struct{ text string }

func (b stubBriefer) Brief(ctx context.Context, a *common.Analysis, f Filters) (string, error) {
	return b.text, nil
}

func TestControllerBrief(t *testing.T) {
	c := NewController(newFakeBackend())
	c.Brief()
	if c.State().Errors.Briefing != errNoBriefer.Error() {
		t.Errorf("Briefing error = %q", c.State().Errors.Briefing)
	}

	c = NewController(newFakeBackend(), WithBriefer(stubBriefer{text: "All good."}))
	c.Brief()
	if c.State().Errors.Briefing != errNoAnalysis.Error() {
		t.Errorf("Briefing error = %q", c.State().Errors.Briefing)
	}

	c.Run(context.Background(), c.LoadInitial()...)
	st := c.Run(context.Background(), c.Brief()...)
	if st.Briefing != "All good." || st.Errors.Briefing != "" {
		t.Errorf("Briefing = %q, error = %q", st.Briefing, st.Errors.Briefing)
	}
}

func TestControllerBindSession(t *testing.T) {
	s, err := session.New(&session.MemoryStore{})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	c := NewController(newFakeBackend())
	stop := c.BindSession(s)
	defer stop()

	if c.State().Auth.Authenticated {
		t.Fatal("expected signed out")
	}
	if err := s.SetToken("abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if !c.State().Auth.Authenticated {
		t.Error("expected state to follow the session")
	}
}

func TestControllerSubscribe(t *testing.T) {
	c := NewController(newFakeBackend())

	var mu sync.Mutex
	seen := 0
	stop := c.Subscribe(func(State) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	c.Dispatch(ToggleFilters{})
	stop()
	c.Dispatch(ToggleFilters{})

	mu.Lock()
	defer mu.Unlock()
	if seen != 1 {
		t.Errorf("seen = %d, want 1", seen)
	}
}
