package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/dashboard"
	"github.com/yildizm/AttendSum/internal/views"
)

// Pane is the focused section of the dashboard
type Pane int

const (
	PaneOverview Pane = iota
	PaneGrades
	PaneSchools
)

var paneNames = [...]string{"Overview", "Grades", "Schools"}

func (p Pane) String() string {
	return paneNames[p]
}

// Options configures the dashboard
type Options struct {
	PageSize      int
	GradeSortDesc bool
	SchoolSort    views.SchoolSortKey
	ReportType    common.ReportType
	AIEnabled     bool
}

// optionItem adapts a filter option to the list component
type optionItem struct {
	opt common.Option
}

func (i optionItem) Title() string {
	if i.opt.Value == "" {
		return "All"
	}
	return i.opt.Label
}

func (i optionItem) Description() string {
	if i.opt.Value == "" {
		return "Clear this filter"
	}
	return i.opt.Value
}

func (i optionItem) FilterValue() string { return i.opt.Label + " " + i.opt.Value }

// Model is the bubbletea model of the attendance dashboard. All state
// the backend produces lives in the controller; the model only keeps
// view-local settings like pages, sort order and focus.
type Model struct {
	ctx    context.Context
	ctrl   *dashboard.Controller
	state  dashboard.State
	styles *Styles
	keys   keyMap
	help   help.Model

	spinner spinner.Model
	picker  list.Model
	picking dashboard.Field
	search  textinput.Model

	searching    bool
	pane         Pane
	pageSize     int
	gradeDesc    bool
	gradePage    int
	schoolQuery  views.SchoolTableQuery
	schoolCursor int
	reportIndex  int
	aiEnabled    bool

	width  int
	height int

	changed     chan struct{}
	unsubscribe func()
}

// New creates the dashboard model for ctrl. Call Close when done.
func New(ctx context.Context, ctrl *dashboard.Controller, opts Options) *Model {
	if opts.PageSize <= 0 {
		opts.PageSize = views.DefaultPageSize
	}
	if opts.SchoolSort == "" {
		opts.SchoolSort = views.SortByRisk
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	picker := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(true)
	picker.SetShowHelp(false)

	search := textinput.New()
	search.Placeholder = "school name"
	search.Prompt = "/ "
	search.CharLimit = 64
	search.Cursor.SetMode(cursor.CursorStatic)

	m := &Model{
		ctx:       ctx,
		ctrl:      ctrl,
		state:     ctrl.State(),
		styles:    GetStyles(),
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		picker:    picker,
		search:    search,
		pageSize:  opts.PageSize,
		gradeDesc: opts.GradeSortDesc,
		gradePage: 1,
		schoolQuery: views.SchoolTableQuery{
			SortKey:  opts.SchoolSort,
			Desc:     opts.SchoolSort.DefaultDesc(),
			Page:     1,
			PageSize: opts.PageSize,
		},
		aiEnabled: opts.AIEnabled,
		changed:   make(chan struct{}, 1),
	}
	for i, kind := range common.ReportTypes {
		if kind == opts.ReportType {
			m.reportIndex = i
		}
	}

	m.unsubscribe = ctrl.Subscribe(func(dashboard.State) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	return m
}

// Close stops listening for controller changes
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// State returns the last state the model rendered
func (m *Model) State() dashboard.State {
	return m.state
}

// Focus returns the focused pane
func (m *Model) Focus() Pane {
	return m.pane
}

// ReportType is the report the download key fetches
func (m *Model) ReportType() common.ReportType {
	return common.ReportTypes[m.reportIndex]
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		commands(m.ctx, m.ctrl.LoadInitial()),
		waitForChange(m.changed),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.picker.SetSize(min(msg.Width, 60), max(msg.Height-4, 5))
		return m, nil

	case actionMsg:
		m.state = m.ctrl.Dispatch(msg.action)
		m.clampPages()
		return m, nil

	case changedMsg:
		m.state = m.ctrl.State()
		m.clampPages()
		return m, waitForChange(m.changed)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case m.picking != "":
			return m.updatePicker(msg)
		case m.searching:
			return m.updateSearch(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// run issues cmds and re-reads the state they changed synchronously
func (m *Model) run(cmds []dashboard.Cmd) tea.Cmd {
	m.state = m.ctrl.State()
	m.clampPages()
	return commands(m.ctx, cmds)
}

func (m *Model) dispatch(a dashboard.Action) {
	m.state = m.ctrl.Dispatch(a)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.District):
		m.openPicker(dashboard.FieldDistrict, m.state.Options.Districts)
	case key.Matches(msg, m.keys.School):
		if m.state.Filters.District != "" || len(m.state.Options.Schools) > 0 {
			m.openPicker(dashboard.FieldSchool, m.state.Options.Schools)
		}
	case key.Matches(msg, m.keys.Grade):
		if m.state.Filters.School != "" {
			m.openPicker(dashboard.FieldGrade, m.state.Options.Grades)
		}
	case key.Matches(msg, m.keys.Apply):
		return m, m.run(m.ctrl.ApplyFilters())
	case key.Matches(msg, m.keys.Refresh):
		return m, m.run(m.ctrl.Refresh())
	case key.Matches(msg, m.keys.Reset):
		m.gradePage, m.schoolQuery.Page, m.schoolCursor = 1, 1, 0
		return m, m.run(m.ctrl.ResetFilters())
	case key.Matches(msg, m.keys.Download):
		return m, m.run(m.ctrl.DownloadReport(m.ReportType()))
	case key.Matches(msg, m.keys.ReportType):
		m.reportIndex = (m.reportIndex + 1) % len(common.ReportTypes)
	case key.Matches(msg, m.keys.Brief):
		return m, m.run(m.ctrl.Brief())
	case key.Matches(msg, m.keys.ToggleFilters):
		m.dispatch(dashboard.ToggleFilters{})
	case key.Matches(msg, m.keys.Notifications):
		m.dispatch(dashboard.ToggleNotifications{})
	case key.Matches(msg, m.keys.ClearErrors):
		m.dispatch(dashboard.ClearErrors{})
	case key.Matches(msg, m.keys.DismissReport):
		m.dispatch(dashboard.ClearDownloadError{})
	case key.Matches(msg, m.keys.NextPane):
		m.pane = (m.pane + 1) % Pane(len(paneNames))
	default:
		return m.handlePaneKey(msg)
	}
	return m, nil
}

// handlePaneKey handles keys whose meaning depends on the focused pane
func (m *Model) handlePaneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.pane {
	case PaneGrades:
		switch {
		case key.Matches(msg, m.keys.Sort), key.Matches(msg, m.keys.Reverse):
			m.gradeDesc = !m.gradeDesc
			m.gradePage = 1
		case key.Matches(msg, m.keys.PrevPage):
			m.gradePage--
		case key.Matches(msg, m.keys.NextPage):
			m.gradePage++
		}

	case PaneSchools:
		switch {
		case key.Matches(msg, m.keys.Search):
			m.searching = true
			m.search.SetValue(m.schoolQuery.Search)
			return m, m.search.Focus()
		case key.Matches(msg, m.keys.Sort):
			m.cycleSchoolSort()
		case key.Matches(msg, m.keys.Reverse):
			m.schoolQuery.Desc = !m.schoolQuery.Desc
			m.schoolQuery.Page = 1
		case key.Matches(msg, m.keys.PrevPage):
			m.schoolQuery.Page--
			m.schoolCursor = 0
		case key.Matches(msg, m.keys.NextPage):
			m.schoolQuery.Page++
			m.schoolCursor = 0
		case key.Matches(msg, m.keys.Up):
			m.schoolCursor--
		case key.Matches(msg, m.keys.Down):
			m.schoolCursor++
		case key.Matches(msg, m.keys.Select):
			if row, ok := m.selectedSchool(); ok {
				school := row.SchoolID
				if school == "" {
					school = row.SchoolName
				}
				m.gradePage = 1
				return m, m.run(m.ctrl.SelectSchoolForGrades(school))
			}
		}
	}
	m.clampPages()
	return m, nil
}

var schoolSortOrder = []views.SchoolSortKey{views.SortByRisk, views.SortByName, views.SortByStudents}

func (m *Model) cycleSchoolSort() {
	next := schoolSortOrder[0]
	for i, k := range schoolSortOrder {
		if k == m.schoolQuery.SortKey {
			next = schoolSortOrder[(i+1)%len(schoolSortOrder)]
		}
	}
	m.schoolQuery.SortKey = next
	m.schoolQuery.Desc = next.DefaultDesc()
	m.schoolQuery.Page = 1
}

func (m *Model) openPicker(field dashboard.Field, opts []common.Option) {
	items := make([]list.Item, 0, len(opts)+1)
	items = append(items, optionItem{})
	current := 0
	selected := m.selectedValue(field)
	for _, o := range opts {
		if o.Value == selected {
			current = len(items)
		}
		items = append(items, optionItem{opt: o})
	}

	m.picker.Title = "Select " + string(field)
	m.picker.ResetFilter()
	m.picker.SetItems(items)
	m.picker.Select(current)
	m.picking = field
}

func (m *Model) selectedValue(field dashboard.Field) string {
	switch field {
	case dashboard.FieldDistrict:
		return m.state.Filters.District
	case dashboard.FieldSchool:
		return m.state.Filters.School
	default:
		return m.state.Filters.Grade
	}
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Back):
			m.picking = ""
			return m, nil
		case key.Matches(msg, m.keys.Select):
			field := m.picking
			m.picking = ""
			item, ok := m.picker.SelectedItem().(optionItem)
			if !ok {
				return m, nil
			}
			return m, m.run(m.selectFilter(field, item.opt.Value))
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *Model) selectFilter(field dashboard.Field, value string) []dashboard.Cmd {
	m.gradePage, m.schoolQuery.Page, m.schoolCursor = 1, 1, 0
	switch field {
	case dashboard.FieldDistrict:
		return m.ctrl.SelectDistrict(value)
	case dashboard.FieldSchool:
		return m.ctrl.SelectSchool(value)
	default:
		return m.ctrl.SelectGrade(value)
	}
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		if msg.Type == tea.KeyEsc {
			m.search.SetValue("")
		}
		m.schoolQuery.Search = m.search.Value()
		m.schoolQuery.Page = 1
		m.schoolCursor = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.schoolQuery.Search = m.search.Value()
	m.schoolQuery.Page = 1
	m.schoolCursor = 0
	return m, cmd
}

// gradeRows is the visible page of the grade breakdown
func (m *Model) gradeRows() ([]common.GradeRisk, int) {
	rows := views.SortGradeRisks(m.state.GradeRisks, m.gradeDesc)
	return views.Paginate(rows, m.gradePage, m.pageSize), views.PageCount(len(rows), m.pageSize)
}

func (m *Model) schoolTable() views.SchoolTable {
	return views.BuildSchoolTable(m.state.SchoolRisks, m.schoolQuery)
}

func (m *Model) selectedSchool() (views.SchoolRow, bool) {
	t := m.schoolTable()
	if m.schoolCursor < 0 || m.schoolCursor >= len(t.Rows) {
		return views.SchoolRow{}, false
	}
	return t.Rows[m.schoolCursor], true
}

// clampPages keeps pages and the cursor inside the current data
func (m *Model) clampPages() {
	m.gradePage = views.ClampPage(m.gradePage, len(m.state.GradeRisks), m.pageSize)
	matched := len(views.FilterSchools(m.state.SchoolRisks, m.schoolQuery.Search))
	m.schoolQuery.Page = views.ClampPage(m.schoolQuery.Page, matched, m.pageSize)

	rows := len(views.Paginate(make([]struct{}, matched), m.schoolQuery.Page, m.pageSize))
	m.schoolCursor = max(0, min(m.schoolCursor, rows-1))
}

// Run shows the dashboard until the user quits or ctx is done
func Run(ctx context.Context, ctrl *dashboard.Controller, opts Options) error {
	m := New(ctx, ctrl, opts)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
