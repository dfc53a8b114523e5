package cli

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/views"
)

func newSimulateCommand() *cobra.Command {
	var (
		scope      scopeFlags
		improve    map[string]int
		strategies map[string]string
		list       bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project tier counts under what-if improvements",
		Long: `Project how many students leave each attendance tier when attendance
improves by the given percentage. A named strategy adds its own impact on top.
Improvements are clamped to -50..50 percent per tier.`,
		Example: `  attendsum simulate --district 12 --improve 1=10,4=5
  attendsum simulate -d 12 --improve 2=8 --strategy "2=Mentorship Program"
  attendsum simulate --list-strategies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return writeStrategies(cmd)
			}

			sc, err := parseScenario(improve, strategies)
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
			st, err := loadScope(cmd.Context(), ctrl, scope)
			if err != nil {
				return err
			}

			p, err := views.Simulate(st.Analysis.SummaryStatistics, sc)
			if err != nil {
				return err
			}

			if wantJSON() {
				return writeJSON(cmd, p)
			}
			return writeOutput(cmd, projectionText(scopeLabel(st.AnalysisCriteria), st.Analysis.SummaryStatistics.TotalStudents, p), "")
		},
	}

	scope.bind(cmd)
	cmd.Flags().StringToIntVar(&improve, "improve", nil, "improvement percent per tier, e.g. 1=10,3=5")
	cmd.Flags().StringToStringVar(&strategies, "strategy", nil, `strategy per tier, e.g. "1=Early Intervention"`)
	cmd.Flags().BoolVar(&list, "list-strategies", false, "list the strategies for each tier and exit")
	return cmd
}

// parseScenario turns tier=value flags into a scenario
func parseScenario(improve map[string]int, strategies map[string]string) (views.Scenario, error) {
	sc := views.Scenario{Improvement: map[int]int{}, Strategy: map[int]string{}}
	for k, v := range improve {
		tier, err := parseTier(k)
		if err != nil {
			return views.Scenario{}, err
		}
		sc.Improvement[tier] = v
	}
	for k, v := range strategies {
		tier, err := parseTier(k)
		if err != nil {
			return views.Scenario{}, err
		}
		name := strings.TrimSpace(v)
		if _, ok := views.FindStrategy(tier, name); !ok {
			return views.Scenario{}, fmt.Errorf("unknown strategy %q for tier %d (see --list-strategies)", name, tier)
		}
		sc.Strategy[tier] = name
	}
	return sc, nil
}

func parseTier(s string) (int, error) {
	tier, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "tier"))
	if err != nil || tier < 1 || tier > 4 {
		return 0, fmt.Errorf("invalid tier %q, expected 1 to 4", s)
	}
	return tier, nil
}

func projectionText(scope string, total int, p views.Projection) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s What-if projection for %s (%d students)\n\n", GetEmoji("target"), scope, total)

	table := newRiskTable(&b, "Tier", "Current", "Change", "Strategy", "Improved", "Projected")
	for _, o := range p.Outcomes {
		strategy := "-"
		if o.Strategy != "" {
			strategy = fmt.Sprintf("%s (%+d%%)", o.Strategy, o.StrategyImpact)
		}
		table.Append([]string{
			fmt.Sprintf("Tier %d", o.Tier),
			strconv.Itoa(o.CurrentStudents),
			fmt.Sprintf("%+d%%", o.ImprovementPercentage),
			strategy,
			strconv.Itoa(o.ImprovedStudents),
			strconv.Itoa(o.ProjectedStudents),
		})
	}
	table.Render()

	fmt.Fprintf(&b, "\n%s %d students improved, %.1f%% of the total\n", GetEmoji("success"), p.TotalImproved, p.OverallImprovementPct)
	return b.Bytes()
}

func writeStrategies(cmd *cobra.Command) error {
	if wantJSON() {
		return writeJSON(cmd, views.Strategies)
	}

	tiers := make([]int, 0, len(views.Strategies))
	for tier := range views.Strategies {
		tiers = append(tiers, tier)
	}
	sort.Ints(tiers)

	var b bytes.Buffer
	table := newRiskTable(&b, "Tier", "Strategy", "Success", "Impact", "Description")
	for _, tier := range tiers {
		for _, s := range views.Strategies[tier] {
			table.Append([]string{
				strconv.Itoa(tier),
				s.Name,
				fmt.Sprintf("%.0f%%", s.SuccessRate*100),
				fmt.Sprintf("%+d%%", views.StrategyImpact(s)),
				s.Description,
			})
		}
	}
	table.Render()
	return writeOutput(cmd, b.Bytes(), "")
}
