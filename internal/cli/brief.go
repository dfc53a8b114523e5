package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/ai"
	"github.com/yildizm/AttendSum/internal/formatter"
	"github.com/yildizm/AttendSum/internal/views"
)

func newBriefCommand() *cobra.Command {
	var (
		scope  scopeFlags
		check  bool
		grades bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Ask the configured model for a short attendance briefing",
		Long: `Send the analysis for the selected scope to the configured AI provider and
print its headline, concerns and suggested actions. Needs ai.enabled: true.

--check only verifies that the provider answers and the model exists.`,
		Example: `  attendsum brief --district 12
  attendsum brief -d 12 -s 12-0034 --grades --format markdown
  attendsum brief --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if check {
				provider, err := a.aiProvider()
				if err != nil {
					return err
				}
				if err := provider.HealthCheck(cmd.Context()); err != nil {
					return withAIHint(fmt.Errorf("%s is not reachable: %w", provider.Name(), err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is ready (model %s)\n", GetEmoji("brain"), provider.Name(), a.cfg.AI.Model)
				return nil
			}

			writer, err := a.briefer()
			if err != nil {
				return err
			}
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			st, err := loadScope(cmd.Context(), ctrl, scope)
			if err != nil {
				return err
			}

			gradeRows := st.GradeRisks
			if !grades {
				gradeRows = nil
			}
			b, err := writer.Generate(cmd.Context(), st.Analysis, st.AnalysisCriteria, gradeRows)
			if err != nil {
				return withAIHint(err)
			}

			if wantJSON() {
				return writeJSON(cmd, b)
			}

			r := &formatter.Report{
				Title:     "Attendance Briefing",
				Criteria:  st.AnalysisCriteria,
				Analysis:  st.Analysis,
				Briefing:  b.String(),
				Generated: time.Now(),
			}
			if grades {
				r.GradeRisks = views.SortGradeRisks(st.GradeRisks, a.cfg.Dashboard.GradeSortDesc)
			}
			f, err := formatter.New(getOutputFormat(), output == "" && colorEnabled(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			out, err := f.Format(r)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return writeOutput(cmd, out, output)
		},
	}

	scope.bind(cmd)
	cmd.Flags().BoolVar(&check, "check", false, "only check that the AI provider is reachable")
	cmd.Flags().BoolVar(&grades, "grades", false, "include the grade risk breakdown in the prompt")
	cmd.Flags().StringVar(&output, "output-file", "", "save output to file instead of stdout")
	return cmd
}

func withAIHint(err error) error {
	if hint := ai.Hint(err); hint != "" {
		return fmt.Errorf("%w (%s)", err, hint)
	}
	return err
}
