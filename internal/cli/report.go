package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/dashboard"
	"github.com/yildizm/AttendSum/internal/report"
)

func newReportCommand() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Download, preview and chart attendance reports",
	}
	reportCmd.AddCommand(newReportDownloadCommand())
	reportCmd.AddCommand(newReportPreviewCommand())
	reportCmd.AddCommand(newReportChartCommand())
	return reportCmd
}

func reportTypeNames() string {
	names := make([]string, 0, len(common.ReportTypes))
	for _, t := range common.ReportTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func parseReportType(name string) (common.ReportType, error) {
	kind, ok := common.ParseReportType(name)
	if !ok {
		return "", fmt.Errorf("unknown report type %q, expected one of %s", name, reportTypeNames())
	}
	return kind, nil
}

func newReportDownloadCommand() *cobra.Command {
	var scope scopeFlags

	cmd := &cobra.Command{
		Use:   "download [type]",
		Short: "Download a spreadsheet report for the selected scope",
		Long: fmt.Sprintf(`Download a report workbook and save it under reports.directory.

Report types: %s. Without a type reports.default_type is used.`, reportTypeNames()),
		Example: `  attendsum report download summary --district 12
  attendsum report download tier4 -d 12 -s 12-0034`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := GetGlobalConfig().Reports.DefaultType
			if len(args) == 1 {
				name = args[0]
			}
			kind, err := parseReportType(name)
			if err != nil {
				return err
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
			if scope.grade != "" {
				ctrl.Dispatch(dashboard.SetFilter{Field: dashboard.FieldGrade, Value: scope.grade})
			}

			st := ctrl.Run(cmd.Context(), ctrl.DownloadReport(kind)...)
			if st.Errors.Download != "" {
				return errors.New(st.Errors.Download)
			}
			if st.LastReport == nil {
				return errors.New("report was not saved")
			}

			if wantJSON() {
				return writeJSON(cmd, st.LastReport)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Saved %s report for %s to %s (%d bytes)\n",
				GetEmoji("report"), kind, scopeLabel(scope.criteria()), st.LastReport.Path, st.LastReport.Bytes)
			return nil
		},
	}

	scope.bind(cmd)
	return cmd
}

func newReportPreviewCommand() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:     "preview <file>",
		Short:   "Show the first rows of each sheet in a downloaded report",
		Example: `  attendsum report preview ~/attendsum-reports/summary_report_2026-10-15.xlsx --rows 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFilePath(args[0]); err != nil {
				return err
			}
			p, err := report.PreviewFile(args[0], rows)
			if err != nil {
				return err
			}
			if wantJSON() {
				return writeJSON(cmd, p)
			}
			return writeOutput(cmd, previewText(p), "")
		},
	}

	cmd.Flags().IntVar(&rows, "rows", report.DefaultPreviewRows, "rows to show per sheet")
	return cmd
}

func previewText(p *report.Preview) []byte {
	var b bytes.Buffer
	for i, sheet := range p.Sheets {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s (%d rows)\n", GetEmoji("statistics"), sheet.Name, sheet.TotalRows)
		if len(sheet.Rows) == 0 {
			b.WriteString("  (empty)\n")
			continue
		}

		header, body := sheet.Rows[0], sheet.Rows[1:]
		table := newRiskTable(&b, header...)
		for _, row := range body {
			table.Append(padRow(row, len(header)))
		}
		table.Render()
		if shown := len(sheet.Rows); shown < sheet.TotalRows {
			fmt.Fprintf(&b, "  ... %d more rows\n", sheet.TotalRows-shown)
		}
	}
	return b.Bytes()
}

// padRow stretches a short row to n cells so the table stays aligned
func padRow(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

func newReportChartCommand() *cobra.Command {
	var (
		scope scopeFlags
		out   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "chart <grades|schools>",
		Short: "Render the grade or school risk breakdown as a PNG bar chart",
		Example: `  attendsum report chart grades -d 12 -s 12-0034 --out grades.png
  attendsum report chart schools -d 12 --limit 15 --out schools.png`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"grades", "schools"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if kind != "grades" && kind != "schools" {
				return fmt.Errorf("unknown chart %q, expected grades or schools", kind)
			}
			if err := validateOutputFilePath(out); err != nil {
				return fmt.Errorf("invalid output file path: %w", err)
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

			var buf bytes.Buffer
			title := scopeLabel(scope.criteria())
			if kind == "grades" {
				st := ctrl.Run(cmd.Context(), ctrl.LoadGradeRisks()...)
				if st.Errors.GradeRisk != "" {
					return errors.New(st.Errors.GradeRisk)
				}
				err = report.RenderGradeChart(&buf, "Grade risk, "+title, st.GradeRisks)
			} else {
				st := ctrl.Run(cmd.Context(), ctrl.LoadSchoolRisks()...)
				if st.Errors.SchoolRisk != "" {
					return errors.New(st.Errors.SchoolRisk)
				}
				err = report.RenderSchoolChart(&buf, "School risk, "+title, st.SchoolRisks, limit)
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(out, buf.Bytes(), 0o600); err != nil {
				return fmt.Errorf("failed to write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Chart written to %s\n", GetEmoji("chart"), out)
			return nil
		},
	}

	scope.bind(cmd)
	cmd.Flags().Lookup("grade").Hidden = true
	cmd.Flags().StringVarP(&out, "out", "o", "risk-chart.png", "PNG file to write")
	cmd.Flags().IntVar(&limit, "limit", report.DefaultChartBars, "most schools to plot")
	return cmd
}
