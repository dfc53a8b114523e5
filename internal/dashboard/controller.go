package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/yildizm/AttendSum/internal/apiclient"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/logger"
	"github.com/yildizm/AttendSum/internal/session"
	"github.com/yildizm/AttendSum/internal/views"
)

// Backend is the attendance API as the dashboard uses it
type Backend interface {
	FilterOptions(ctx context.Context) (*common.FilterOptions, error)
	SchoolsByDistrict(ctx context.Context, district string) ([]common.Option, error)
	GradesBySchool(ctx context.Context, district, school string) ([]common.Option, error)
	PredictionInsights(ctx context.Context, criteria common.Criteria) (*common.Analysis, error)
	GradeRisks(ctx context.Context, district, school string) (*apiclient.GradeRiskReport, error)
	SchoolRisks(ctx context.Context, district string) (*apiclient.SchoolRiskReport, error)
	DownloadReport(ctx context.Context, kind common.ReportType, criteria common.Criteria) ([]byte, error)
}

// ReportSink stores a downloaded report and returns where it went
type ReportSink interface {
	Save(kind common.ReportType, data []byte) (string, error)
}

// Briefer writes a short narrative for an analysis
type Briefer interface {
	Brief(ctx context.Context, analysis *common.Analysis, filters Filters) (string, error)
}

// SessionNotifier is the part of the session the dashboard observes
type SessionNotifier interface {
	Authenticated() bool
	Subscribe(fn func(session.Change)) func()
}

// Cmd performs a request and returns the action describing its outcome.
// Cmds never return errors: failures come back as Failed actions.
type Cmd func(ctx context.Context) Action

// anyDistrict is the path placeholder for "no district/school selected"
const anyDistrict = "-1"

var (
	errNoReportSink = errors.New("no report destination configured")
	errNoBriefer    = errors.New("AI briefing is disabled")
	errNoAnalysis   = errors.New("no analysis loaded yet")
)

// Controller owns the dashboard state and turns user intents into
// requests. Every operation updates state synchronously (the filter
// change, the loading flag) and returns the Cmds still to run.
type Controller struct {
	mu        sync.Mutex
	state     State
	issued    map[Concern]uint64
	backend   Backend
	reports   ReportSink
	briefer   Briefer
	log       *logger.Logger
	listeners map[int]func(State)
	nextID    int
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithReportSink sets where downloaded reports are stored
func WithReportSink(r ReportSink) ControllerOption {
	return func(c *Controller) { c.reports = r }
}

// WithBriefer enables AI briefings
func WithBriefer(b Briefer) ControllerOption {
	return func(c *Controller) { c.briefer = b }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController creates a controller in the Initial state
func NewController(backend Backend, opts ...ControllerOption) *Controller {
	c := &Controller{
		state:     Initial(),
		issued:    make(map[Concern]uint64),
		backend:   backend,
		log:       logger.Discard(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch applies an action and notifies subscribers
func (c *Controller) Dispatch(a Action) State {
	if a == nil {
		return c.State()
	}

	c.mu.Lock()
	if concern, seq, ok := resultOf(a); ok && c.state.stale(concern, seq) {
		c.log.DebugWithFields("discarding superseded result", []logger.Field{
			logger.F("concern", concern),
			logger.F("seq", seq),
			logger.F("latest", c.state.Latest(concern)),
		})
	}
	c.state = Reduce(c.state, a)
	next := c.state
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
	return next
}

// Subscribe registers fn for state changes
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Run executes cmds concurrently, dispatches their results and waits
func (c *Controller) Run(ctx context.Context, cmds ...Cmd) State {
	var wg sync.WaitGroup
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		wg.Add(1)
		go func(cmd Cmd) {
			defer wg.Done()
			c.Dispatch(cmd(ctx))
		}(cmd)
	}
	wg.Wait()
	return c.State()
}

// BindSession mirrors session changes into state until the returned
// function is called
func (c *Controller) BindSession(s SessionNotifier) func() {
	c.Dispatch(SessionChanged{Authenticated: s.Authenticated()})
	return s.Subscribe(func(ch session.Change) {
		c.Dispatch(SessionChanged{Authenticated: ch.Authenticated, NeedsLogin: !ch.Authenticated && ch.Source == session.SourceExpired})
	})
}

func (c *Controller) begin(concern Concern, mode AnalysisMode) uint64 {
	c.mu.Lock()
	c.issued[concern]++
	seq := c.issued[concern]
	c.mu.Unlock()

	c.Dispatch(Started{Concern: concern, Seq: seq, Mode: mode})
	return seq
}

func failed(concern Concern, seq uint64, msg string, err error) Action {
	return Failed{Concern: concern, Seq: seq, Message: msg, NeedsLogin: apiclient.NeedsLogin(err)}
}

// LoadInitial fetches the option lists and the district-wide analysis
func (c *Controller) LoadInitial() []Cmd {
	return []Cmd{
		c.fetchOptions(),
		c.fetchAnalysis(common.Criteria{}, ModeInitial),
	}
}

// SelectDistrict changes the district, clearing school and grade, and
// fetches the district's schools when they are not cached
func (c *Controller) SelectDistrict(district string) []Cmd {
	st := c.Dispatch(SetFilter{Field: FieldDistrict, Value: district})

	var cmds []Cmd
	if district != "" && !st.Options.HasSchoolsFor(district) {
		cmds = append(cmds, c.fetchSchools(district))
	}
	return append(cmds, c.LoadSchoolRisks()...)
}

// SelectSchool changes the school, clearing grade, and fetches the
// school's grades when they are not cached
func (c *Controller) SelectSchool(school string) []Cmd {
	st := c.Dispatch(SetFilter{Field: FieldSchool, Value: school})

	var cmds []Cmd
	if school != "" && !st.Options.HasGradesFor(school) {
		cmds = append(cmds, c.fetchGrades(st.Filters.District, school))
	}
	return append(cmds, c.LoadGradeRisks()...)
}

// SelectGrade changes the grade
func (c *Controller) SelectGrade(grade string) []Cmd {
	c.Dispatch(SetFilter{Field: FieldGrade, Value: grade})
	return nil
}

// ApplyFilters fetches the analysis and breakdowns for the current filters
func (c *Controller) ApplyFilters() []Cmd {
	st := c.State()
	cmds := []Cmd{c.fetchAnalysis(st.Filters.Criteria(), ModeApply)}
	cmds = append(cmds, c.LoadGradeRisks()...)
	return append(cmds, c.LoadSchoolRisks()...)
}

// Refresh refetches the analysis for the current filters
func (c *Controller) Refresh() []Cmd {
	return []Cmd{c.fetchAnalysis(c.State().Filters.Criteria(), ModeRefresh)}
}

// ResetFilters clears the filters and returns to the district-wide view.
// A cached district-wide analysis is reused without a request.
func (c *Controller) ResetFilters() []Cmd {
	st := c.Dispatch(ResetFilters{})

	var cmds []Cmd
	global := common.Criteria{}
	if cached, ok := st.Cached(global); ok {
		seq := c.begin(ConcernAnalysis, ModeReset)
		c.Dispatch(AnalysisLoaded{Seq: seq, Criteria: global, Analysis: cached})
	} else {
		cmds = append(cmds, c.fetchAnalysis(global, ModeReset))
	}
	cmds = append(cmds, c.LoadGradeRisks()...)
	return append(cmds, c.LoadSchoolRisks()...)
}

// SelectSchoolForGrades picks the school shown in the grade breakdown
func (c *Controller) SelectSchoolForGrades(school string) []Cmd {
	c.Dispatch(SelectSchoolForGrades{School: school})
	return c.LoadGradeRisks()
}

// LoadGradeRisks fetches the grade breakdown for the selected school.
// Without a district, a school or the global view it settles on an empty
// breakdown without a request.
func (c *Controller) LoadGradeRisks() []Cmd {
	st := c.State()
	district, school := st.Filters.District, st.GradeSchool()

	seq := c.begin(ConcernGradeRisks, ModeRefresh)
	if district == "" && school == "" && !st.UI.GlobalView {
		c.Dispatch(GradeRisksLoaded{Seq: seq})
		return nil
	}

	return []Cmd{func(ctx context.Context) Action {
		report, err := c.backend.GradeRisks(ctx, orAny(common.DistrictCode(district)), orAny(common.SchoolCode(school)))
		if err != nil {
			c.log.Warn("grade risks failed: %v", err)
			return failed(ConcernGradeRisks, seq, MsgGradeRiskFailed, err)
		}
		return GradeRisksLoaded{Seq: seq, Grades: report.Grades}
	}}
}

// LoadSchoolRisks fetches the school breakdown when the table is relevant
func (c *Controller) LoadSchoolRisks() []Cmd {
	st := c.State()
	district := st.Filters.District

	seq := c.begin(ConcernSchoolRisks, ModeRefresh)
	if !views.ShowSchoolTable(st.UI.GlobalView, district, st.Filters.School) {
		c.Dispatch(SchoolRisksLoaded{Seq: seq})
		return nil
	}

	return []Cmd{func(ctx context.Context) Action {
		report, err := c.backend.SchoolRisks(ctx, orAny(common.DistrictCode(district)))
		if err != nil {
			c.log.Warn("school risks failed: %v", err)
			return failed(ConcernSchoolRisks, seq, apiclient.Message(err), err)
		}
		return SchoolRisksLoaded{Seq: seq, Schools: report.Schools, Average: report.AverageRisk}
	}}
}

// DownloadReport fetches a report for the current filters and stores it
func (c *Controller) DownloadReport(kind common.ReportType) []Cmd {
	st := c.State()
	seq := c.begin(ConcernReport, ModeRefresh)

	if c.reports == nil {
		c.Dispatch(failed(ConcernReport, seq, MsgDownloadPrefix+errNoReportSink.Error(), nil))
		return nil
	}

	criteria := st.Filters.Criteria()
	return []Cmd{func(ctx context.Context) Action {
		data, err := c.backend.DownloadReport(ctx, kind, criteria)
		if err != nil {
			return failed(ConcernReport, seq, MsgDownloadPrefix+apiclient.Message(err), err)
		}
		path, err := c.reports.Save(kind, data)
		if err != nil {
			return failed(ConcernReport, seq, MsgDownloadPrefix+err.Error(), nil)
		}
		c.log.Info("saved %s report to %s", kind, path)
		return ReportSaved{Seq: seq, Report: SavedReport{Type: kind, Path: path, Bytes: len(data)}}
	}}
}

// Brief asks the AI briefer to narrate the current analysis
func (c *Controller) Brief() []Cmd {
	st := c.State()
	seq := c.begin(ConcernBriefing, ModeRefresh)

	switch {
	case c.briefer == nil:
		c.Dispatch(failed(ConcernBriefing, seq, errNoBriefer.Error(), nil))
		return nil
	case st.Analysis == nil:
		c.Dispatch(failed(ConcernBriefing, seq, errNoAnalysis.Error(), nil))
		return nil
	}

	analysis, filters := st.Analysis, st.Filters
	return []Cmd{func(ctx context.Context) Action {
		text, err := c.briefer.Brief(ctx, analysis, filters)
		if err != nil {
			return failed(ConcernBriefing, seq, err.Error(), nil)
		}
		return BriefingLoaded{Seq: seq, Text: text}
	}}
}

func (c *Controller) fetchOptions() Cmd {
	seq := c.begin(ConcernOptions, ModeRefresh)
	return func(ctx context.Context) Action {
		opts, err := c.backend.FilterOptions(ctx)
		if err != nil {
			c.log.Warn("filter options failed: %v", err)
			return failed(ConcernOptions, seq, MsgOptionsFailed, err)
		}
		return OptionsLoaded{Seq: seq, Options: *opts}
	}
}

func (c *Controller) fetchSchools(district string) Cmd {
	seq := c.begin(ConcernSchools, ModeRefresh)
	return func(ctx context.Context) Action {
		schools, err := c.backend.SchoolsByDistrict(ctx, common.DistrictCode(district))
		if err != nil {
			return failed(ConcernSchools, seq, apiclient.Message(err), err)
		}
		return SchoolsLoaded{Seq: seq, District: district, Schools: schools}
	}
}

func (c *Controller) fetchGrades(district, school string) Cmd {
	seq := c.begin(ConcernGrades, ModeRefresh)
	return func(ctx context.Context) Action {
		grades, err := c.backend.GradesBySchool(ctx, orAny(common.DistrictCode(district)), common.SchoolCode(school))
		if err != nil {
			return failed(ConcernGrades, seq, apiclient.Message(err), err)
		}
		return GradesLoaded{Seq: seq, School: school, Grades: grades}
	}
}

func (c *Controller) fetchAnalysis(criteria common.Criteria, mode AnalysisMode) Cmd {
	seq := c.begin(ConcernAnalysis, mode)
	return func(ctx context.Context) Action {
		analysis, err := c.backend.PredictionInsights(ctx, criteria)
		if err != nil {
			msg := apiclient.Message(err)
			if mode == ModeInitial {
				msg = MsgInitialFailed
			}
			c.log.Warn("analysis failed: %v", err)
			return failed(ConcernAnalysis, seq, msg, err)
		}
		return AnalysisLoaded{Seq: seq, Criteria: criteria, Analysis: analysis}
	}
}

func orAny(v string) string {
	if v == "" {
		return anyDistrict
	}
	return v
}

// resultOf extracts the concern and sequence number of a result action
func resultOf(a Action) (Concern, uint64, bool) {
	switch a := a.(type) {
	case Failed:
		return a.Concern, a.Seq, true
	case OptionsLoaded:
		return ConcernOptions, a.Seq, true
	case SchoolsLoaded:
		return ConcernSchools, a.Seq, true
	case GradesLoaded:
		return ConcernGrades, a.Seq, true
	case AnalysisLoaded:
		return ConcernAnalysis, a.Seq, true
	case GradeRisksLoaded:
		return ConcernGradeRisks, a.Seq, true
	case SchoolRisksLoaded:
		return ConcernSchoolRisks, a.Seq, true
	case ReportSaved:
		return ConcernReport, a.Seq, true
	case BriefingLoaded:
		return ConcernBriefing, a.Seq, true
	}
	return "", 0, false
}
