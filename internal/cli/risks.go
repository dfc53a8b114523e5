package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/dashboard"
	"github.com/yildizm/AttendSum/internal/views"
)

func newRisksCommand() *cobra.Command {
	risksCmd := &cobra.Command{
		Use:   "risks",
		Short: "Show grade and school risk breakdowns",
	}
	risksCmd.AddCommand(newGradeRisksCommand())
	risksCmd.AddCommand(newSchoolRisksCommand())
	return risksCmd
}

// selectScope sets the filters on ctrl without fetching the analysis. An
// empty scope switches to the global view.
func selectScope(ctrl *dashboard.Controller, s scopeFlags) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.district == "" {
		ctrl.Dispatch(dashboard.ResetFilters{})
		return nil
	}
	ctrl.Dispatch(dashboard.SetFilter{Field: dashboard.FieldDistrict, Value: s.district})
	if s.school != "" {
		ctrl.Dispatch(dashboard.SetFilter{Field: dashboard.FieldSchool, Value: s.school})
	}
	return nil
}

func newGradeRisksCommand() *cobra.Command {
	var (
		scope scopeFlags
		desc  bool
	)

	cmd := &cobra.Command{
		Use:   "grades",
		Short: "Risk of chronic absence per grade",
		Example: `  attendsum risks grades --district 12
  attendsum risks grades -d 12 -s 12-0034 --desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			if err := selectScope(ctrl, scope); err != nil {
				return err
			}

			st := ctrl.Run(cmd.Context(), ctrl.LoadGradeRisks()...)
			if st.Errors.GradeRisk != "" {
				return errors.New(st.Errors.GradeRisk)
			}

			if !cmd.Flag("desc").Changed {
				desc = GetGlobalConfig().Dashboard.GradeSortDesc
			}
			rows := views.SortGradeRisks(st.GradeRisks, desc)
			totals := views.SummarizeGradeRisks(rows)

			if wantJSON() {
				return writeJSON(cmd, map[string]any{"grades": rows, "totals": totals})
			}

			var b bytes.Buffer
			fmt.Fprintf(&b, "%s Grade risk for %s\n", GetEmoji("grade"), scopeLabel(scope.criteria()))
			if len(rows) == 0 {
				b.WriteString("No grade data for this selection\n")
				return writeOutput(cmd, b.Bytes(), "")
			}

			table := newRiskTable(&b, "Grade", "Risk", "Students", "Level", "")
			for _, r := range rows {
				level := views.RiskLevelFor(r.RiskPercentage)
				table.Append([]string{
					r.Grade,
					fmt.Sprintf("%.1f%%", r.RiskPercentage),
					fmt.Sprintf("%d", r.StudentCount),
					GetRiskEmoji(level) + " " + level.String(),
					CreateRiskBar(r.RiskPercentage),
				})
			}
			table.Render()
			fmt.Fprintf(&b, "Average %.1f%% (%s) across %d students, highest grade %s at %.1f%%\n",
				totals.AverageRisk, totals.AverageLevel, totals.TotalStudents, totals.HighestGrade, totals.HighestRisk)

			return writeOutput(cmd, b.Bytes(), "")
		},
	}

	scope.bind(cmd)
	cmd.Flags().Lookup("grade").Hidden = true
	cmd.Flags().BoolVar(&desc, "desc", false, "list the highest grades first")
	return cmd
}

func newSchoolRisksCommand() *cobra.Command {
	var (
		scope  scopeFlags
		search string
		sortBy string
		desc   bool
		page   int
	)

	cmd := &cobra.Command{
		Use:   "schools",
		Short: "Risk of chronic absence per school",
		Example: `  attendsum risks schools --district 12
  attendsum risks schools -d 12 --sort name --search high --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetGlobalConfig()
			if sortBy == "" {
				sortBy = cfg.Dashboard.SchoolSort
			}
			key, err := views.ParseSchoolSortKey(sortBy)
			if err != nil {
				return err
			}
			if !cmd.Flag("desc").Changed {
				desc = key.DefaultDesc()
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
			if err := selectScope(ctrl, scope); err != nil {
				return err
			}

			st := ctrl.Run(cmd.Context(), ctrl.LoadSchoolRisks()...)
			if st.Errors.SchoolRisk != "" {
				return errors.New(st.Errors.SchoolRisk)
			}

			t := views.BuildSchoolTable(st.SchoolRisks, views.SchoolTableQuery{
				Search:   search,
				SortKey:  key,
				Desc:     desc,
				Page:     page,
				PageSize: cfg.Dashboard.PageSize,
			})

			if wantJSON() {
				return writeJSON(cmd, map[string]any{"table": t, "average_risk": st.SchoolRiskAverage})
			}

			var b bytes.Buffer
			fmt.Fprintf(&b, "%s School risk for %s (average %.1f%%)\n", GetEmoji("school"), scopeLabel(scope.criteria()), st.SchoolRiskAverage)
			if len(t.Rows) == 0 {
				b.WriteString("No schools match\n")
				return writeOutput(cmd, b.Bytes(), "")
			}

			table := newRiskTable(&b, "School", "Risk", "Students", "Level", "")
			for _, r := range t.Rows {
				table.Append([]string{
					r.SchoolName,
					fmt.Sprintf("%.1f%%", r.RiskPercentage),
					fmt.Sprintf("%d", r.StudentCount),
					GetRiskEmoji(r.Level) + " " + r.Level.String(),
					CreateRiskBar(r.RiskPercentage),
				})
			}
			table.Render()
			fmt.Fprintf(&b, "Page %d of %d, %d of %d schools\n", t.Page, t.PageCount, t.Matched, t.Total)

			return writeOutput(cmd, b.Bytes(), "")
		},
	}

	scope.bind(cmd)
	cmd.Flags().Lookup("grade").Hidden = true
	cmd.Flags().StringVar(&search, "search", "", "filter by school name")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by risk, name or students")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	return cmd
}

func newRiskTable(b *bytes.Buffer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(b)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}
