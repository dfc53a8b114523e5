package cli

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/apiclient"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/dashboard"
)

func newOptionsCommand() *cobra.Command {
	var scope scopeFlags

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the selectable districts, schools and grades",
		Long: `List filter values. Without flags the districts are listed; --district lists
that district's schools and --district with --school lists the school's grades.`,
		Example: `  attendsum options
  attendsum options --district 12
  attendsum options --district 12 --school 12-0034`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scope.validate(); err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var (
				title string
				opts  []common.Option
			)
			switch {
			case scope.school != "":
				title = "Grades"
				opts, err = a.client.GradesBySchool(ctx, common.DistrictCode(scope.district), common.SchoolCode(scope.school))
			case scope.district != "":
				title = "Schools"
				opts, err = a.client.SchoolsByDistrict(ctx, common.DistrictCode(scope.district))
			default:
				title = "Districts"
				var all *common.FilterOptions
				if all, err = a.client.FilterOptions(ctx); err == nil {
					opts = dashboard.NormalizeDistricts(all.Districts)
				}
			}
			if err != nil {
				return fmt.Errorf("failed to load %s: %s", title, apiclient.Message(err))
			}

			if wantJSON() {
				return writeJSON(cmd, opts)
			}
			return writeOutput(cmd, optionsTable(title, opts), "")
		},
	}

	scope.bind(cmd)
	cmd.Flags().Lookup("grade").Hidden = true
	return cmd
}

func optionsTable(title string, opts []common.Option) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s (%d)\n", title, len(opts))
	if len(opts) == 0 {
		return b.Bytes()
	}

	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"Value", "Label"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, o := range opts {
		table.Append([]string{o.Value, o.Label})
	}
	table.Render()
	return b.Bytes()
}
