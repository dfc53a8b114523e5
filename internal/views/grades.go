// Package views turns analysis payloads into display-ready slices, tables
// and text. Every function here is pure.
package views

import (
	"sort"
	"strconv"
	"strings"

	"github.com/yildizm/AttendSum/internal/common"
)

// Grade ranks used by SortGrades. Pre-kindergarten and kindergarten sort
// ahead of numbered grades; anything non-numeric sorts after them.
const (
	rankPreK = iota
	rankKindergarten
	rankNumeric
	rankOther
)

func gradeRank(g string) (int, int) {
	switch strings.ToUpper(strings.TrimSpace(g)) {
	case "PK":
		return rankPreK, 0
	case "K":
		return rankKindergarten, 0
	}
	if n, err := strconv.Atoi(strings.TrimSpace(g)); err == nil {
		return rankNumeric, n
	}
	return rankOther, 0
}

// CompareGrades orders two grade labels: PK < K < numeric < everything else.
// Numeric grades compare by value, the rest lexicographically.
func CompareGrades(a, b string) int {
	ra, na := gradeRank(a)
	rb, nb := gradeRank(b)
	if ra != rb {
		return ra - rb
	}
	if ra == rankNumeric {
		return na - nb
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// SortGrades returns a sorted copy of grades
func SortGrades(grades []string, desc bool) []string {
	out := make([]string, len(grades))
	copy(out, grades)
	sort.SliceStable(out, func(i, j int) bool {
		c := CompareGrades(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// SortGradeRisks returns a copy of rows ordered by grade
func SortGradeRisks(rows []common.GradeRisk, desc bool) []common.GradeRisk {
	out := make([]common.GradeRisk, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		c := CompareGrades(out[i].Grade, out[j].Grade)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// GradeRiskTotals summarizes a grade-risk breakdown
type GradeRiskTotals struct {
	TotalStudents  int     `json:"total_students"`
	AverageRisk    float64 `json:"average_risk"`
	HighestGrade   string  `json:"highest_grade,omitempty"`
	HighestRisk    float64 `json:"highest_risk"`
	AverageLevel   string  `json:"average_level"`
	CriticalGrades int     `json:"critical_grades"`
}

// SummarizeGradeRisks totals students and computes a student-weighted
// average risk. With no students the plain mean is used.
func SummarizeGradeRisks(rows []common.GradeRisk) GradeRiskTotals {
	var t GradeRiskTotals
	if len(rows) == 0 {
		t.AverageLevel = RiskLevelFor(0).String()
		return t
	}

	var weighted, plain float64
	for i, r := range rows {
		t.TotalStudents += r.StudentCount
		weighted += r.RiskPercentage * float64(r.StudentCount)
		plain += r.RiskPercentage
		if i == 0 || r.RiskPercentage > t.HighestRisk {
			t.HighestRisk = r.RiskPercentage
			t.HighestGrade = r.Grade
		}
		if RiskLevelFor(r.RiskPercentage) == RiskCritical {
			t.CriticalGrades++
		}
	}

	if t.TotalStudents > 0 {
		t.AverageRisk = weighted / float64(t.TotalStudents)
	} else {
		t.AverageRisk = plain / float64(len(rows))
	}
	t.AverageLevel = RiskLevelFor(t.AverageRisk).String()
	return t
}
