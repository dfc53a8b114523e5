package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yildizm/AttendSum/internal/common"
	"github.com/yildizm/AttendSum/internal/dashboard"
)

// scopeFlags are the --district/--school/--grade filters shared by the
// data commands
type scopeFlags struct {
	district string
	school   string
	grade    string
}

func (s *scopeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.district, "district", "d", "", "district code, e.g. 12 or D12")
	cmd.Flags().StringVarP(&s.school, "school", "s", "", "school code, e.g. 12-0034 (needs --district)")
	cmd.Flags().StringVarP(&s.grade, "grade", "g", "", "grade, e.g. K or 9 (needs --school)")
}

func (s scopeFlags) validate() error {
	if s.school != "" && s.district == "" {
		return errors.New("--school needs --district")
	}
	if s.grade != "" && s.school == "" {
		return errors.New("--grade needs --school")
	}
	return nil
}

func (s scopeFlags) filters() dashboard.Filters {
	return dashboard.Filters{District: s.district, School: s.school, Grade: s.grade}
}

func (s scopeFlags) criteria() common.Criteria {
	return s.filters().Criteria()
}

// loadScope walks the filter cascade on ctrl the way the dashboard does
// and applies it. The returned state carries the analysis and the risk
// breakdowns for the scope.
func loadScope(ctx context.Context, ctrl *dashboard.Controller, s scopeFlags) (dashboard.State, error) {
	if err := s.validate(); err != nil {
		return dashboard.State{}, err
	}

	if s.district != "" {
		ctrl.Run(ctx, ctrl.SelectDistrict(s.district)...)
	}
	if s.school != "" {
		ctrl.Run(ctx, ctrl.SelectSchool(s.school)...)
	}
	if s.grade != "" {
		ctrl.Run(ctx, ctrl.SelectGrade(s.grade)...)
	}
	st := ctrl.Run(ctx, ctrl.ApplyFilters()...)

	if st.Auth.NeedsLogin {
		return st, errors.New("session expired, run attendsum login")
	}
	if st.Errors.General != "" {
		return st, errors.New(st.Errors.General)
	}
	if st.Analysis == nil {
		return st, fmt.Errorf("no analysis returned for %s", scopeLabel(s.criteria()))
	}
	return st, nil
}

func scopeLabel(c common.Criteria) string {
	if c.IsGlobal() {
		return "all districts"
	}
	label := "district " + c.DistrictCode
	if c.SchoolCode != "" {
		label += ", school " + c.SchoolCode
	}
	if c.GradeCode != "" {
		label += ", grade " + c.GradeCode
	}
	return label
}
