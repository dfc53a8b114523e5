package views

import (
	"fmt"
	"math"

	"github.com/yildizm/AttendSum/internal/common"
)

// Strategy is an intervention with an observed success rate
type Strategy struct {
	Name        string  `json:"name"`
	SuccessRate float64 `json:"success_rate"`
	Description string  `json:"description"`
}

// Strategies lists the interventions available for each tier
var Strategies = map[int][]Strategy{
	1: {
		{Name: "Early Intervention", SuccessRate: 0.85, Description: "Proactive support for at-risk students"},
		{Name: "Parent Engagement", SuccessRate: 0.75, Description: "Increased communication with parents"},
	},
	2: {
		{Name: "Mentorship Program", SuccessRate: 0.7, Description: "Peer or teacher mentorship"},
		{Name: "Attendance Contracts", SuccessRate: 0.65, Description: "Formal agreements with students"},
	},
	3: {
		{Name: "Counseling Services", SuccessRate: 0.6, Description: "Professional support services"},
		{Name: "Personalized Learning", SuccessRate: 0.55, Description: "Tailored educational plans"},
	},
	4: {
		{Name: "Case Management", SuccessRate: 0.5, Description: "Intensive one-on-one support"},
		{Name: "Community Resources", SuccessRate: 0.45, Description: "External support services"},
	},
}

// improvement bounds, in percent
const (
	minImprovement = -50
	maxImprovement = 50
)

// Scenario is a what-if input: an improvement percentage and an optional
// strategy name per tier
type Scenario struct {
	Improvement map[int]int
	Strategy    map[int]string
}

// Outcome is the projected effect of a scenario on one tier
type Outcome struct {
	Tier                  int    `json:"tier"`
	CurrentStudents       int    `json:"current_students"`
	ImprovedStudents      int    `json:"improved_students"`
	ImprovementPercentage int    `json:"improvement_percentage"`
	StrategyImpact        int    `json:"strategy_impact"`
	ProjectedStudents     int    `json:"projected_students"`
	Strategy              string `json:"strategy,omitempty"`
}

// Projection is the whole what-if result
type Projection struct {
	Outcomes              []Outcome `json:"outcomes"`
	TotalImproved         int       `json:"total_improved"`
	OverallImprovementPct float64   `json:"overall_improvement_pct"`
}

// FindStrategy looks up a strategy for a tier by name
func FindStrategy(tier int, name string) (Strategy, bool) {
	for _, s := range Strategies[tier] {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// StrategyImpact is the extra improvement a strategy contributes
func StrategyImpact(s Strategy) int {
	return int(math.Floor((s.SuccessRate - 0.5) * 6))
}

// Simulate projects each tier's student count after the scenario
func Simulate(stats common.SummaryStatistics, sc Scenario) (Projection, error) {
	var p Projection
	for tier := 1; tier <= 4; tier++ {
		current := stats.TierStudents(tier)
		improvement := sc.Improvement[tier]

		impact := 0
		name := sc.Strategy[tier]
		if name != "" {
			s, ok := FindStrategy(tier, name)
			if !ok {
				return Projection{}, fmt.Errorf("unknown strategy %q for tier %d", name, tier)
			}
			impact = StrategyImpact(s)
		}

		effective := max(minImprovement, min(maxImprovement, improvement+impact))
		improved := int(math.Floor(float64(current) * float64(effective) / 100))

		p.Outcomes = append(p.Outcomes, Outcome{
			Tier:                  tier,
			CurrentStudents:       current,
			ImprovedStudents:      improved,
			ImprovementPercentage: effective,
			StrategyImpact:        impact,
			ProjectedStudents:     max(0, current-improved),
			Strategy:              name,
		})
		p.TotalImproved += improved
	}

	total := stats.TotalStudents
	if total == 0 {
		total = 1
	}
	p.OverallImprovementPct = float64(p.TotalImproved) / float64(total) * 100
	return p, nil
}
