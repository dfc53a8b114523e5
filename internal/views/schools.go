package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yildizm/AttendSum/internal/common"
)

// SchoolSortKey selects the school table column to order by
type SchoolSortKey string

const (
	SortByRisk     SchoolSortKey = "risk"
	SortByName     SchoolSortKey = "name"
	SortByStudents SchoolSortKey = "students"
)

// ParseSchoolSortKey validates a sort key name
func ParseSchoolSortKey(s string) (SchoolSortKey, error) {
	switch SchoolSortKey(strings.ToLower(s)) {
	case SortByRisk, "":
		return SortByRisk, nil
	case SortByName:
		return SortByName, nil
	case SortByStudents:
		return SortByStudents, nil
	}
	return "", fmt.Errorf("unknown sort key %q (use risk, name or students)", s)
}

// DefaultDesc is the initial direction when switching to key. Risk starts
// highest-first, the other columns ascending.
func (k SchoolSortKey) DefaultDesc() bool {
	return k == SortByRisk
}

// SchoolRow is a school risk row ready for display
type SchoolRow struct {
	common.SchoolRisk
	Level RiskLevel `json:"-"`
}

// SchoolTableQuery describes search, sort and paging for the school table
type SchoolTableQuery struct {
	Search   string
	SortKey  SchoolSortKey
	Desc     bool
	Page     int
	PageSize int
}

// SchoolTable is one rendered page of the school risk table
type SchoolTable struct {
	Rows       []SchoolRow `json:"rows"`
	Matched    int         `json:"matched"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageCount  int         `json:"page_count"`
	IsFiltered bool        `json:"is_filtered"`
}

// FilterSchools keeps rows whose name contains search, case-insensitively
func FilterSchools(rows []common.SchoolRisk, search string) []common.SchoolRisk {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		out := make([]common.SchoolRisk, len(rows))
		copy(out, rows)
		return out
	}
	var out []common.SchoolRisk
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.SchoolName), search) {
			out = append(out, r)
		}
	}
	return out
}

// SortSchools orders rows in place by key
func SortSchools(rows []common.SchoolRisk, key SchoolSortKey, desc bool) {
	less := func(a, b common.SchoolRisk) bool {
		switch key {
		case SortByStudents:
			return a.StudentCount < b.StudentCount
		case SortByName:
			return strings.ToLower(a.SchoolName) < strings.ToLower(b.SchoolName)
		default:
			return a.RiskPercentage < b.RiskPercentage
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

// BuildSchoolTable searches, sorts and pages the school risk rows
func BuildSchoolTable(rows []common.SchoolRisk, q SchoolTableQuery) SchoolTable {
	if q.SortKey == "" {
		q.SortKey = SortByRisk
	}
	matched := FilterSchools(rows, q.Search)
	SortSchools(matched, q.SortKey, q.Desc)

	page := ClampPage(q.Page, len(matched), q.PageSize)
	slice := Paginate(matched, page, q.PageSize)

	out := make([]SchoolRow, len(slice))
	for i, r := range slice {
		level := RiskLevelFor(r.RiskPercentage)
		if r.RiskLevel != "" {
			level = ParseRiskLevel(r.RiskLevel)
		}
		out[i] = SchoolRow{SchoolRisk: r, Level: level}
	}

	return SchoolTable{
		Rows:       out,
		Matched:    len(matched),
		Total:      len(rows),
		Page:       page,
		PageCount:  PageCount(len(matched), q.PageSize),
		IsFiltered: strings.TrimSpace(q.Search) != "",
	}
}

// ShowSchoolTable reports whether the school risk table is relevant for the
// current view: a global view or any district or school selection.
func ShowSchoolTable(globalView bool, district, school string) bool {
	return globalView || district != "" || school != ""
}
