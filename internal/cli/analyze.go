package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yildizm/AttendSum/internal/formatter"
	"github.com/yildizm/AttendSum/internal/views"
)

var (
	analyzeScope      scopeFlags
	analyzeGrades     bool
	analyzeSchools    bool
	analyzeSearch     string
	analyzeSort       string
	analyzeDesc       bool
	analyzePage       int
	analyzeBrief      bool
	analyzeOutputFile string
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show attendance statistics and insights",
		Long: `Fetch the attendance analysis for a district, school or grade and print the
tier summary, categorized insights and recommendations.

Without filters the whole service area is analyzed.

Examples:
  attendsum analyze
  attendsum analyze --district 12 --grades
  attendsum analyze -d 12 -s 12-0034 --format markdown --output-file report.md
  attendsum analyze -d 12 --schools --sort name --search lincoln`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}

	analyzeScope.bind(cmd)
	cmd.Flags().BoolVar(&analyzeGrades, "grades", false, "include the grade risk breakdown")
	cmd.Flags().BoolVar(&analyzeSchools, "schools", false, "include the school risk table")
	cmd.Flags().StringVar(&analyzeSearch, "search", "", "filter the school table by name")
	cmd.Flags().StringVar(&analyzeSort, "sort", "", "school table sort: risk, name or students")
	cmd.Flags().BoolVar(&analyzeDesc, "desc", false, "sort the school table in descending order")
	cmd.Flags().IntVar(&analyzePage, "page", 1, "school table page")
	cmd.Flags().BoolVar(&analyzeBrief, "brief", false, "add an AI briefing (needs ai.enabled)")
	cmd.Flags().StringVar(&analyzeOutputFile, "output-file", "", "save output to file instead of stdout")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()

	sortKey, err := views.ParseSchoolSortKey(analyzeSort)
	if err != nil {
		return err
	}
	if analyzeSort == "" {
		sortKey, _ = views.ParseSchoolSortKey(cfg.Dashboard.SchoolSort)
	}
	desc := sortKey.DefaultDesc()
	if cmd.Flag("desc").Changed {
		desc = analyzeDesc
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl, err := a.controller()
	if err != nil {
		return err
	}

	st, err := loadScope(cmd.Context(), ctrl, analyzeScope)
	if err != nil {
		return err
	}

	r := &formatter.Report{
		Criteria:  st.AnalysisCriteria,
		Analysis:  st.Analysis,
		Generated: time.Now(),
	}
	if analyzeGrades {
		if st.Errors.GradeRisk != "" {
			a.log.Warn("%s", st.Errors.GradeRisk)
		}
		r.GradeRisks = views.SortGradeRisks(st.GradeRisks, cfg.Dashboard.GradeSortDesc)
	}
	if analyzeSchools {
		if st.Errors.SchoolRisk != "" {
			a.log.Warn("%s", st.Errors.SchoolRisk)
		}
		table := views.BuildSchoolTable(st.SchoolRisks, views.SchoolTableQuery{
			Search:   analyzeSearch,
			SortKey:  sortKey,
			Desc:     desc,
			Page:     analyzePage,
			PageSize: cfg.Dashboard.PageSize,
		})
		r.Schools = &table
	}
	if analyzeBrief {
		st = ctrl.Run(cmd.Context(), ctrl.Brief()...)
		if st.Errors.Briefing != "" {
			return fmt.Errorf("briefing failed: %s", st.Errors.Briefing)
		}
		r.Briefing = st.Briefing
	}

	f, err := formatter.New(getOutputFormat(), analyzeOutputFile == "" && colorEnabled(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	output, err := f.Format(r)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return writeOutput(cmd, output, analyzeOutputFile)
}
